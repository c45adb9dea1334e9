package network

import (
	"fmt"

	"gridopt/internal/table"
)

// Network owns the component tables, the snapshot index and the per-attribute
// time series. It is the read-only input of a model build.
type Network struct {
	snapshots *Snapshots
	tables    map[Kind]*Table
	series    map[Kind]map[Attr]*table.Frame
}

func New(sns *Snapshots) *Network {
	return &Network{
		snapshots: sns,
		tables:    make(map[Kind]*Table),
		series:    make(map[Kind]map[Attr]*table.Frame),
	}
}

func (n *Network) Snapshots() *Snapshots { return n.snapshots }

// MultiPeriod reports whether the network is set up for a multi-period
// investment study.
func (n *Network) MultiPeriod() bool { return n.snapshots.MultiPeriod() }

// Table returns the component table for a kind, creating an empty one on
// first access.
func (n *Network) Table(k Kind) *Table {
	t, ok := n.tables[k]
	if !ok {
		t = NewTable(k)
		n.tables[k] = t
	}
	return t
}

// SetSeries installs a per-snapshot override for an attribute. The frame must
// span the full snapshot horizon; its columns name the assets it overrides.
func (n *Network) SetSeries(k Kind, a Attr, f *table.Frame) error {
	if f.Rows() != n.snapshots.Len() {
		return fmt.Errorf("%s-%s series has %d rows, want %d", k, a, f.Rows(), n.snapshots.Len())
	}
	t := n.Table(k)
	for _, asset := range f.Assets() {
		if t.Row(asset) < 0 {
			return fmt.Errorf("%s-%s series names unknown asset %q", k, a, asset)
		}
	}
	byAttr, ok := n.series[k]
	if !ok {
		byAttr = make(map[Attr]*table.Frame)
		n.series[k] = byAttr
	}
	byAttr[a] = f
	return nil
}

// Series returns the time series for an attribute, or nil when the attribute
// is entirely static.
func (n *Network) Series(k Kind, a Attr) *table.Frame {
	byAttr, ok := n.series[k]
	if !ok {
		return nil
	}
	return byAttr[a]
}

// ExtendableRows returns the row indices of assets whose nominal capacity is
// a decision variable.
func (n *Network) ExtendableRows(k Kind) []int {
	t := n.Table(k)
	ext := t.Bool(Extendable)
	var rows []int
	for i := range t.Names() {
		if ext[i] {
			rows = append(rows, i)
		}
	}
	return rows
}

// FixedRows returns the row indices of assets with fixed nominal capacity.
func (n *Network) FixedRows(k Kind) []int {
	t := n.Table(k)
	ext := t.Bool(Extendable)
	var rows []int
	for i := range t.Names() {
		if !ext[i] {
			rows = append(rows, i)
		}
	}
	return rows
}

// CommittableRows returns the row indices of assets with on/off commitment.
func (n *Network) CommittableRows(k Kind) []int {
	if !k.Caps().HasCommitment {
		return nil
	}
	t := n.Table(k)
	com := t.Bool(Committable)
	var rows []int
	for i := range t.Names() {
		if com[i] {
			rows = append(rows, i)
		}
	}
	return rows
}

// ModularRows returns the row indices of assets with a positive capacity
// module size.
func (n *Network) ModularRows(k Kind) []int {
	t := n.Table(k)
	mod := t.Float(NominalModule)
	var rows []int
	for i := range t.Names() {
		if mod[i] > 0 {
			rows = append(rows, i)
		}
	}
	return rows
}
