package build

import (
	"math"

	"gridopt/internal/lp"
	"gridopt/internal/network"
)

func allRows(t *network.Table) []int {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func rowNames(t *network.Table, rows []int) []string {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = t.Name(r)
	}
	return names
}

// defineOperationalVariables declares the per-snapshot dispatch variable of a
// component kind: continuous, unbounded, masked to inactive cells.
func defineOperationalVariables(m *lp.Model, n *network.Network, ctx Context, k network.Kind, attr lp.VarAttr) {
	t := n.Table(k)
	if t.Empty() {
		return
	}
	rows := allRows(t)
	m.AddVariables(lp.VarSpec{
		Key:    lp.VarKey{Kind: k, Attr: attr},
		Assets: rowNames(t, rows),
		Snaps:  ctx.End - ctx.Start,
		Lower:  math.Inf(-1),
		Upper:  math.Inf(1),
		Mask:   activityMaskOrNil(n, ctx, k, rows),
	})
}

// defineNominalVariables declares the capacity variable over the extendable
// assets of a kind: static shape, continuous, non-negative.
func defineNominalVariables(m *lp.Model, n *network.Network, k network.Kind) {
	ext := n.ExtendableRows(k)
	if len(ext) == 0 {
		return
	}
	m.AddVariables(lp.VarSpec{
		Key:    lp.VarKey{Kind: k, Attr: lp.VarNominal},
		Assets: rowNames(n.Table(k), ext),
		Lower:  0,
		Upper:  math.Inf(1),
	})
}

// defineCommitabilityVariables declares status, start-up and shut-down over
// the committable assets. The variables are integer unless the linearized
// unit-commitment relaxation is enabled; their upper limit is imposed by the
// commitment constraints so that modular assets can raise it to the module
// count.
func defineCommitabilityVariables(m *lp.Model, n *network.Network, ctx Context, k network.Kind) {
	com := n.CommittableRows(k)
	if len(com) == 0 {
		return
	}
	assets := rowNames(n.Table(k), com)
	mask := activityMaskOrNil(n, ctx, k, com)
	for _, attr := range []lp.VarAttr{lp.VarStatus, lp.VarStartUp, lp.VarShutDown} {
		m.AddVariables(lp.VarSpec{
			Key:     lp.VarKey{Kind: k, Attr: attr},
			Assets:  assets,
			Snaps:   ctx.End - ctx.Start,
			Lower:   0,
			Upper:   math.Inf(1),
			Integer: !ctx.LinearizedUC,
			Mask:    mask,
		})
	}
}

// defineModularVariables declares the integer module-count variable over
// assets that are both extendable and modular.
func defineModularVariables(m *lp.Model, n *network.Network, k network.Kind) {
	t := n.Table(k)
	ext := t.Bool(network.Extendable)
	mod := t.Float(network.NominalModule)
	var rows []int
	for i := range t.Names() {
		if ext[i] && mod[i] > 0 {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return
	}
	m.AddVariables(lp.VarSpec{
		Key:     lp.VarKey{Kind: k, Attr: lp.VarModules},
		Assets:  rowNames(t, rows),
		Lower:   0,
		Upper:   math.Inf(1),
		Integer: true,
	})
}

// defineSpillVariables declares storage overflow variables bounded above by
// inflow, only when any storage unit actually has inflow. Cells without
// inflow are masked out.
func defineSpillVariables(m *lp.Model, n *network.Network, ctx Context) {
	k := network.StorageUnit
	t := n.Table(k)
	if t.Empty() {
		return
	}
	rows := allRows(t)
	inflow := asDense(n, ctx, k, network.Inflow, rows)
	if inflow.Max() <= 0 {
		return
	}
	mask := activityMask(n, ctx, k, rows)
	for ti := 0; ti < mask.Rows(); ti++ {
		for j := 0; j < mask.Cols(); j++ {
			if inflow.At(ti, j) <= 0 {
				mask.Set(ti, j, false)
			}
		}
	}
	m.AddVariables(lp.VarSpec{
		Key:    lp.VarKey{Kind: k, Attr: lp.VarSpill},
		Assets: rowNames(t, rows),
		Snaps:  ctx.End - ctx.Start,
		Lower:  0,
		UpperF: inflow,
		Mask:   mask,
	})
}

// defineLossVariables declares non-negative transmission-loss variables for a
// passive branch kind, masked identically to its flow variable.
func defineLossVariables(m *lp.Model, n *network.Network, ctx Context, k network.Kind) {
	if !k.Caps().PassiveBranch {
		return
	}
	t := n.Table(k)
	if t.Empty() {
		return
	}
	rows := allRows(t)
	m.AddVariables(lp.VarSpec{
		Key:    lp.VarKey{Kind: k, Attr: lp.VarLoss},
		Assets: rowNames(t, rows),
		Snaps:  ctx.End - ctx.Start,
		Lower:  0,
		Upper:  math.Inf(1),
		Mask:   activityMaskOrNil(n, ctx, k, rows),
	})
}

// defineStateVariables declares the storage-unit state of charge and the
// store energy level. Both are non-negative dispatch-like variables bounded
// by their capacity constraints.
func defineStateVariables(m *lp.Model, n *network.Network, ctx Context) {
	if t := n.Table(network.StorageUnit); !t.Empty() {
		rows := allRows(t)
		m.AddVariables(lp.VarSpec{
			Key:    lp.VarKey{Kind: network.StorageUnit, Attr: lp.VarCharge},
			Assets: rowNames(t, rows),
			Snaps:  ctx.End - ctx.Start,
			Lower:  math.Inf(-1),
			Upper:  math.Inf(1),
			Mask:   activityMaskOrNil(n, ctx, network.StorageUnit, rows),
		})
		m.AddVariables(lp.VarSpec{
			Key:    lp.VarKey{Kind: network.StorageUnit, Attr: lp.VarState},
			Assets: rowNames(t, rows),
			Snaps:  ctx.End - ctx.Start,
			Lower:  math.Inf(-1),
			Upper:  math.Inf(1),
			Mask:   activityMaskOrNil(n, ctx, network.StorageUnit, rows),
		})
	}
	if t := n.Table(network.Store); !t.Empty() {
		rows := allRows(t)
		m.AddVariables(lp.VarSpec{
			Key:    lp.VarKey{Kind: network.Store, Attr: lp.VarEnergy},
			Assets: rowNames(t, rows),
			Snaps:  ctx.End - ctx.Start,
			Lower:  math.Inf(-1),
			Upper:  math.Inf(1),
			Mask:   activityMaskOrNil(n, ctx, network.Store, rows),
		})
	}
}
