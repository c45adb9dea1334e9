package lp

import (
	"math"

	"gridopt/internal/table"
)

// VarID identifies a single scalar decision variable. None marks cells that
// were masked out and therefore never entered the model.
type VarID int32

// None is the id of a masked-out variable cell.
const None VarID = -1

// Valid reports whether the id refers to an allocated variable.
func (v VarID) Valid() bool { return v >= 0 }

// Sense of a constraint row.
type Sense int8

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "="
	}
}

// Term is one coefficient-variable product in a linear expression.
type Term struct {
	Coeff float64
	Var   VarID
}

// Row is a single constraint: sum of terms, sense, right-hand side. The label
// names the (snapshot, asset) or cycle cell for diagnostics.
type Row struct {
	Label string
	Terms []Term
	Sense Sense
	RHS   float64
}

// VarSpec declares a variable set. Snaps == 0 declares a static (asset-only)
// set; otherwise the set is snapshot x asset shaped. Lower/Upper default to
// -inf/+inf when NaN is passed via the scalar bounds. Frame bounds override
// the scalars cell-wise. Masked-out cells are not allocated.
type VarSpec struct {
	Key     VarKey
	Assets  []string
	Snaps   int
	Lower   float64
	Upper   float64
	LowerF  *table.Frame
	UpperF  *table.Frame
	Integer bool
	Mask    *table.Mask
}

// VarSet is a declared variable group. Bounds are stored per cell.
type VarSet struct {
	Key     VarKey
	Assets  []string
	Snaps   int // 0 = static
	Integer bool

	index map[string]int
	ids   []VarID
	lower []float64
	upper []float64
}

func (v *VarSet) cells() int {
	if v.Snaps == 0 {
		return len(v.Assets)
	}
	return v.Snaps * len(v.Assets)
}

// Col returns the column of an asset within the set, or -1.
func (v *VarSet) Col(asset string) int {
	j, ok := v.index[asset]
	if !ok {
		return -1
	}
	return j
}

func (v *VarSet) cell(t, j int) int {
	if v.Snaps == 0 {
		return j
	}
	return t*len(v.Assets) + j
}

// ID returns the variable id at (t, j); t is ignored for static sets.
// Masked cells return None.
func (v *VarSet) ID(t, j int) VarID { return v.ids[v.cell(t, j)] }

// IDByName is ID with an asset name instead of a column index.
func (v *VarSet) IDByName(t int, asset string) VarID {
	j := v.Col(asset)
	if j < 0 {
		return None
	}
	return v.ID(t, j)
}

func (v *VarSet) Lower(t, j int) float64 { return v.lower[v.cell(t, j)] }

func (v *VarSet) Upper(t, j int) float64 { return v.upper[v.cell(t, j)] }

// ConSet is a named constraint group.
type ConSet struct {
	Key  ConKey
	Rows []Row
}

// Model is the algebraic container populated during one build pass and handed
// to the external solver. Re-adding a variable or constraint key overwrites
// the previous definition, which makes repeated builds idempotent.
type Model struct {
	nextID   VarID
	vars     map[VarKey]*VarSet
	varOrder []VarKey
	cons     map[ConKey]*ConSet
	conOrder []ConKey
	obj      []Term
}

func NewModel() *Model {
	return &Model{
		vars: make(map[VarKey]*VarSet),
		cons: make(map[ConKey]*ConSet),
	}
}

// AddVariables declares a variable set, allocating ids for all unmasked
// cells. An existing set under the same key is replaced.
func (m *Model) AddVariables(spec VarSpec) *VarSet {
	v := &VarSet{
		Key:     spec.Key,
		Assets:  spec.Assets,
		Snaps:   spec.Snaps,
		Integer: spec.Integer,
		index:   make(map[string]int, len(spec.Assets)),
	}
	for j, a := range spec.Assets {
		v.index[a] = j
	}
	n := v.cells()
	v.ids = make([]VarID, n)
	v.lower = make([]float64, n)
	v.upper = make([]float64, n)

	lo, hi := spec.Lower, spec.Upper
	if math.IsNaN(lo) {
		lo = math.Inf(-1)
	}
	if math.IsNaN(hi) {
		hi = math.Inf(1)
	}
	rows := spec.Snaps
	if rows == 0 {
		rows = 1
	}
	for t := 0; t < rows; t++ {
		for j := range spec.Assets {
			cell := t*len(spec.Assets) + j
			if spec.Mask != nil && !spec.Mask.At(t, j) {
				v.ids[cell] = None
				continue
			}
			v.ids[cell] = m.nextID
			m.nextID++
			v.lower[cell] = lo
			v.upper[cell] = hi
			if spec.LowerF != nil {
				v.lower[cell] = spec.LowerF.At(t, j)
			}
			if spec.UpperF != nil {
				v.upper[cell] = spec.UpperF.At(t, j)
			}
		}
	}
	if _, exists := m.vars[spec.Key]; !exists {
		m.varOrder = append(m.varOrder, spec.Key)
	}
	m.vars[spec.Key] = v
	return v
}

// Var looks up a variable set, or nil when it was never declared.
func (m *Model) Var(key VarKey) *VarSet { return m.vars[key] }

// HasVar reports whether a variable set exists under the key.
func (m *Model) HasVar(key VarKey) bool { return m.vars[key] != nil }

// AddConstraints installs a constraint group, replacing any prior group with
// the same key. Empty groups are dropped (silent no-op).
func (m *Model) AddConstraints(key ConKey, rows []Row) {
	if len(rows) == 0 {
		return
	}
	if _, exists := m.cons[key]; !exists {
		m.conOrder = append(m.conOrder, key)
	}
	m.cons[key] = &ConSet{Key: key, Rows: rows}
}

// Con looks up a constraint group, or nil.
func (m *Model) Con(key ConKey) *ConSet { return m.cons[key] }

// Variables iterates the declared variable sets in declaration order.
func (m *Model) Variables() []*VarSet {
	out := make([]*VarSet, 0, len(m.varOrder))
	for _, k := range m.varOrder {
		out = append(out, m.vars[k])
	}
	return out
}

// Constraints iterates the constraint groups in declaration order.
func (m *Model) Constraints() []*ConSet {
	out := make([]*ConSet, 0, len(m.conOrder))
	for _, k := range m.conOrder {
		out = append(out, m.cons[k])
	}
	return out
}

// AddObjective appends linear objective terms (minimization).
func (m *Model) AddObjective(terms ...Term) {
	for _, t := range terms {
		if t.Var.Valid() && t.Coeff != 0 {
			m.obj = append(m.obj, t)
		}
	}
}

// Objective returns the accumulated objective terms.
func (m *Model) Objective() []Term { return m.obj }

// NumVars returns the count of allocated scalar variables.
func (m *Model) NumVars() int { return int(m.nextID) }

// NumCons returns the count of constraint rows.
func (m *Model) NumCons() int {
	n := 0
	for _, c := range m.cons {
		n += len(c.Rows)
	}
	return n
}
