package build

import (
	"fmt"
	"math"

	"gridopt/internal/lp"
	"gridopt/internal/network"
)

// defineNodalBalanceConstraints enforces energy conservation at every bus and
// snapshot: the signed sum of all attached injections equals the fixed
// demand. One-port components inject with their sign, branch flows withdraw
// at bus0 and arrive at bus1 (scaled by the port efficiencies for links), and
// branch losses withdraw half at each end. A bus with demand but nothing
// attached to supply it is a modeling error.
func defineNodalBalanceConstraints(m *lp.Model, n *network.Network, ctx Context) error {
	buses := n.Table(network.Bus)
	if buses.Empty() {
		return nil
	}
	horizon := ctx.End - ctx.Start
	nb := buses.Len()

	terms := make([][][]lp.Term, horizon)
	rhs := make([][]float64, horizon)
	for ti := range terms {
		terms[ti] = make([][]lp.Term, nb)
		rhs[ti] = make([]float64, nb)
	}
	add := func(ti, bus int, coeff float64, id lp.VarID) {
		if id.Valid() && coeff != 0 {
			terms[ti][bus] = append(terms[ti][bus], lp.Term{Coeff: coeff, Var: id})
		}
	}

	// one-port injections
	onePorts := []struct {
		kind network.Kind
		attr lp.VarAttr
		sign float64
	}{
		{network.Generator, lp.VarDispatch, 1},
		{network.Store, lp.VarDispatch, 1},
		{network.StorageUnit, lp.VarDispatch, 1},
		{network.StorageUnit, lp.VarCharge, -1},
	}
	for _, op := range onePorts {
		t := n.Table(op.kind)
		if t.Empty() {
			continue
		}
		rows := allRows(t)
		active := activityMaskOrNil(n, ctx, op.kind, rows)
		bus := t.Str(network.BusAttr)
		sign := t.Float(network.Sign)
		vs := m.Var(lp.VarKey{Kind: op.kind, Attr: op.attr})
		if vs == nil {
			continue
		}
		for j, r := range rows {
			bi := buses.Row(bus[r])
			if bi < 0 {
				return fmt.Errorf("%s %q: unknown bus %q", op.kind, t.Name(r), bus[r])
			}
			for ti := 0; ti < horizon; ti++ {
				if !active.Active(ti, j) {
					continue
				}
				add(ti, bi, op.sign*sign[r], vs.IDByName(ti, t.Name(r)))
			}
		}
	}

	// passive branch flows and losses
	for _, k := range []network.Kind{network.Line, network.Transformer} {
		t := n.Table(k)
		if t.Empty() {
			continue
		}
		rows := allRows(t)
		active := activityMaskOrNil(n, ctx, k, rows)
		bus0 := t.Str(network.Bus0)
		bus1 := t.Str(network.Bus1)
		flow := m.Var(lp.VarKey{Kind: k, Attr: lp.VarDispatch})
		var loss *lp.VarSet
		if ctx.Tangents > 0 {
			loss = m.Var(lp.VarKey{Kind: k, Attr: lp.VarLoss})
		}
		for j, r := range rows {
			b0 := buses.Row(bus0[r])
			b1 := buses.Row(bus1[r])
			if b0 < 0 || b1 < 0 {
				return fmt.Errorf("%s %q: unknown bus %q or %q", k, t.Name(r), bus0[r], bus1[r])
			}
			for ti := 0; ti < horizon; ti++ {
				if !active.Active(ti, j) {
					continue
				}
				id := flow.IDByName(ti, t.Name(r))
				add(ti, b0, -1, id)
				add(ti, b1, 1, id)
				if loss != nil {
					lid := loss.IDByName(ti, t.Name(r))
					add(ti, b0, -0.5, lid)
					add(ti, b1, -0.5, lid)
				}
			}
		}
	}

	// link flows across up to four ports
	if t := n.Table(network.Link); !t.Empty() {
		rows := allRows(t)
		active := activityMaskOrNil(n, ctx, network.Link, rows)
		bus0 := t.Str(network.Bus0)
		flow := m.Var(lp.VarKey{Kind: network.Link, Attr: lp.VarDispatch})
		ports := []struct {
			bus network.Attr
			eff network.Attr
		}{
			{network.Bus1, network.Efficiency},
			{network.Bus2, network.Efficiency2},
			{network.Bus3, network.Efficiency3},
		}
		for j, r := range rows {
			b0 := buses.Row(bus0[r])
			if b0 < 0 {
				return fmt.Errorf("link %q: unknown bus %q", t.Name(r), bus0[r])
			}
			for ti := 0; ti < horizon; ti++ {
				if !active.Active(ti, j) {
					continue
				}
				add(ti, b0, -1, flow.IDByName(ti, t.Name(r)))
			}
		}
		for _, port := range ports {
			busCol := t.Str(port.bus)
			eff := asDense(n, ctx, network.Link, port.eff, rows)
			for j, r := range rows {
				if busCol[r] == "" {
					continue
				}
				bi := buses.Row(busCol[r])
				if bi < 0 {
					return fmt.Errorf("link %q: unknown bus %q", t.Name(r), busCol[r])
				}
				for ti := 0; ti < horizon; ti++ {
					if !active.Active(ti, j) {
						continue
					}
					add(ti, bi, eff.At(ti, j), flow.IDByName(ti, t.Name(r)))
				}
			}
		}
	}

	// fixed demand
	if t := n.Table(network.Load); !t.Empty() {
		rows := allRows(t)
		active := activityMaskOrNil(n, ctx, network.Load, rows)
		bus := t.Str(network.BusAttr)
		sign := t.Float(network.Sign)
		pSet := asDense(n, ctx, network.Load, network.PSet, rows)
		for j, r := range rows {
			bi := buses.Row(bus[r])
			if bi < 0 {
				return fmt.Errorf("load %q: unknown bus %q", t.Name(r), bus[r])
			}
			for ti := 0; ti < horizon; ti++ {
				if !active.Active(ti, j) {
					continue
				}
				v := pSet.At(ti, j)
				if math.IsNaN(v) {
					continue
				}
				rhs[ti][bi] -= v * sign[r]
			}
		}
	}

	var out []lp.Row
	for ti := 0; ti < horizon; ti++ {
		for bi := 0; bi < nb; bi++ {
			if len(terms[ti][bi]) == 0 {
				if rhs[ti][bi] != 0 {
					return fmt.Errorf("bus %q: demand %g at snapshot %s has no attached components to balance it",
						buses.Name(bi), rhs[ti][bi], n.Snapshots().Label(ctx.Start+ti))
				}
				continue
			}
			out = append(out, lp.Row{
				Label: cellLabel(n, ctx, ti, buses.Name(bi)),
				Terms: terms[ti][bi],
				Sense: lp.Equal,
				RHS:   rhs[ti][bi],
			})
		}
	}
	m.AddConstraints(lp.ConKey{Kind: network.Bus, Name: lp.ConNodalBalance}, out)
	return nil
}
