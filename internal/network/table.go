package network

import "fmt"

// Table is the columnar attribute store for one component kind. Rows are
// assets with unique names, columns are typed attributes. Tables are filled
// before model building starts and read-only afterwards.
type Table struct {
	kind   Kind
	names  []string
	index  map[string]int
	floats map[Attr][]float64
	bools  map[Attr][]bool
	ints   map[Attr][]int
	strs   map[Attr][]string
}

func NewTable(k Kind) *Table {
	return &Table{
		kind:   k,
		index:  make(map[string]int),
		floats: make(map[Attr][]float64),
		bools:  make(map[Attr][]bool),
		ints:   make(map[Attr][]int),
		strs:   make(map[Attr][]string),
	}
}

func (t *Table) Kind() Kind { return t.kind }

func (t *Table) Len() int { return len(t.names) }

func (t *Table) Empty() bool { return len(t.names) == 0 }

func (t *Table) Names() []string { return t.names }

func (t *Table) Name(row int) string { return t.names[row] }

// Row returns the row index of an asset, or -1 if absent.
func (t *Table) Row(name string) int {
	i, ok := t.index[name]
	if !ok {
		return -1
	}
	return i
}

// Add appends an asset row, initializing all existing columns with their
// defaults, and returns its row index.
func (t *Table) Add(name string) (int, error) {
	if _, ok := t.index[name]; ok {
		return -1, fmt.Errorf("%s %q already exists", t.kind, name)
	}
	row := len(t.names)
	t.names = append(t.names, name)
	t.index[name] = row
	for a := range t.floats {
		t.floats[a] = append(t.floats[a], FloatDefault(t.kind, a))
	}
	for a := range t.bools {
		t.bools[a] = append(t.bools[a], BoolDefault(a))
	}
	for a := range t.ints {
		t.ints[a] = append(t.ints[a], 0)
	}
	for a := range t.strs {
		t.strs[a] = append(t.strs[a], "")
	}
	return row, nil
}

func (t *Table) ensureFloat(a Attr) []float64 {
	col, ok := t.floats[a]
	if !ok {
		col = make([]float64, len(t.names))
		def := FloatDefault(t.kind, a)
		for i := range col {
			col[i] = def
		}
		t.floats[a] = col
	}
	return col
}

func (t *Table) ensureBool(a Attr) []bool {
	col, ok := t.bools[a]
	if !ok {
		col = make([]bool, len(t.names))
		def := BoolDefault(a)
		for i := range col {
			col[i] = def
		}
		t.bools[a] = col
	}
	return col
}

func (t *Table) ensureInt(a Attr) []int {
	col, ok := t.ints[a]
	if !ok {
		col = make([]int, len(t.names))
		t.ints[a] = col
	}
	return col
}

func (t *Table) ensureStr(a Attr) []string {
	col, ok := t.strs[a]
	if !ok {
		col = make([]string, len(t.names))
		t.strs[a] = col
	}
	return col
}

// Float returns the attribute column, materializing it with defaults first if
// it was never set. The returned slice is shared, not a copy.
func (t *Table) Float(a Attr) []float64 { return t.ensureFloat(a) }

func (t *Table) Bool(a Attr) []bool { return t.ensureBool(a) }

func (t *Table) Int(a Attr) []int { return t.ensureInt(a) }

func (t *Table) Str(a Attr) []string { return t.ensureStr(a) }

func (t *Table) SetFloat(row int, a Attr, v float64) { t.ensureFloat(a)[row] = v }

func (t *Table) SetBool(row int, a Attr, v bool) { t.ensureBool(a)[row] = v }

func (t *Table) SetInt(row int, a Attr, v int) { t.ensureInt(a)[row] = v }

func (t *Table) SetStr(row int, a Attr, v string) { t.ensureStr(a)[row] = v }
