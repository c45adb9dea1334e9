package table

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Frame is a dense snapshot x asset table of float64 values. Rows follow the
// order of the build window's snapshots, columns follow the asset order the
// frame was created with.
type Frame struct {
	assets []string
	index  map[string]int
	data   *mat.Dense
}

// NewFrame allocates a rows x len(assets) frame filled with zeros.
func NewFrame(rows int, assets []string) *Frame {
	f := &Frame{
		assets: assets,
		index:  make(map[string]int, len(assets)),
	}
	if rows > 0 && len(assets) > 0 {
		f.data = mat.NewDense(rows, len(assets), nil)
	}
	for j, a := range assets {
		f.index[a] = j
	}
	return f
}

// NewFrameFilled allocates a frame with every cell set to v.
func NewFrameFilled(rows int, assets []string, v float64) *Frame {
	f := NewFrame(rows, assets)
	f.Fill(v)
	return f
}

func (f *Frame) Rows() int {
	if f.data == nil {
		return 0
	}
	r, _ := f.data.Dims()
	return r
}

func (f *Frame) Cols() int { return len(f.assets) }

func (f *Frame) Assets() []string { return f.assets }

// Col returns the column index of an asset, or -1 if absent.
func (f *Frame) Col(asset string) int {
	j, ok := f.index[asset]
	if !ok {
		return -1
	}
	return j
}

func (f *Frame) At(t, j int) float64 { return f.data.At(t, j) }

func (f *Frame) Set(t, j int, v float64) { f.data.Set(t, j, v) }

func (f *Frame) Fill(v float64) {
	if f.data == nil {
		return
	}
	r, c := f.data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			f.data.Set(i, j, v)
		}
	}
}

// SetCol sets an entire asset column to v.
func (f *Frame) SetCol(j int, v float64) {
	for t := 0; t < f.Rows(); t++ {
		f.data.Set(t, j, v)
	}
}

// Apply replaces every cell with fn(t, j, value).
func (f *Frame) Apply(fn func(t, j int, v float64) float64) {
	for t := 0; t < f.Rows(); t++ {
		for j := 0; j < f.Cols(); j++ {
			f.data.Set(t, j, fn(t, j, f.data.At(t, j)))
		}
	}
}

// Max returns the largest value in the frame, or -Inf for an empty frame.
func (f *Frame) Max() float64 {
	max := math.Inf(-1)
	for t := 0; t < f.Rows(); t++ {
		for j := 0; j < f.Cols(); j++ {
			if v := f.data.At(t, j); v > max {
				max = v
			}
		}
	}
	return max
}

// Mask is a boolean snapshot x asset table, used to suppress variables and
// constraints for inactive asset/time pairs. A nil *Mask means "all active".
type Mask struct {
	assets []string
	index  map[string]int
	rows   int
	cells  []bool
}

func NewMask(rows int, assets []string) *Mask {
	m := &Mask{
		assets: assets,
		index:  make(map[string]int, len(assets)),
		rows:   rows,
		cells:  make([]bool, rows*len(assets)),
	}
	for j, a := range assets {
		m.index[a] = j
	}
	return m
}

// NewMaskFilled allocates a mask with every cell set to v.
func NewMaskFilled(rows int, assets []string, v bool) *Mask {
	m := NewMask(rows, assets)
	if v {
		for i := range m.cells {
			m.cells[i] = true
		}
	}
	return m
}

func (m *Mask) Rows() int { return m.rows }

func (m *Mask) Cols() int { return len(m.assets) }

func (m *Mask) Assets() []string { return m.assets }

func (m *Mask) Col(asset string) int {
	j, ok := m.index[asset]
	if !ok {
		return -1
	}
	return j
}

func (m *Mask) At(t, j int) bool { return m.cells[t*len(m.assets)+j] }

func (m *Mask) Set(t, j int, v bool) { m.cells[t*len(m.assets)+j] = v }

// Active reports whether the cell is active; a nil mask is all-active.
func (m *Mask) Active(t, j int) bool {
	if m == nil {
		return true
	}
	return m.At(t, j)
}

// All reports whether every cell is active.
func (m *Mask) All() bool {
	if m == nil {
		return true
	}
	for _, v := range m.cells {
		if !v {
			return false
		}
	}
	return true
}

// And intersects the mask in place with other (which must share the shape).
func (m *Mask) And(other *Mask) {
	if m == nil || other == nil {
		return
	}
	for i := range m.cells {
		m.cells[i] = m.cells[i] && other.cells[i]
	}
}
