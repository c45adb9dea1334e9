package build

import (
	"gridopt/internal/lp"
	"gridopt/internal/network"
)

// defineObjective assembles the minimized cost: snapshot-weighted marginal
// costs on dispatch, capital costs on extendable capacity and transition
// costs on the commitment indicators. Capital costs of fixed assets are
// constant and stay out of the objective.
func defineObjective(m *lp.Model, n *network.Network, ctx Context) {
	var terms []lp.Term

	marginal := []struct {
		kind network.Kind
		attr lp.VarAttr
	}{
		{network.Generator, lp.VarDispatch},
		{network.Link, lp.VarDispatch},
		{network.Store, lp.VarDispatch},
		{network.StorageUnit, lp.VarDispatch},
	}
	horizon := ctx.End - ctx.Start
	for _, mc := range marginal {
		t := n.Table(mc.kind)
		if t.Empty() {
			continue
		}
		vs := m.Var(lp.VarKey{Kind: mc.kind, Attr: mc.attr})
		if vs == nil {
			continue
		}
		rows := allRows(t)
		cost := asDense(n, ctx, mc.kind, network.MarginalCost, rows)
		active := activityMaskOrNil(n, ctx, mc.kind, rows)
		for ti := 0; ti < horizon; ti++ {
			w := n.Snapshots().ObjectiveWeight(ctx.Start + ti)
			for j, r := range rows {
				c := cost.At(ti, j)
				if c == 0 || !active.Active(ti, j) {
					continue
				}
				terms = append(terms, lp.Term{
					Coeff: w * c,
					Var:   vs.IDByName(ti, t.Name(r)),
				})
			}
		}
	}

	for _, k := range network.AllKinds {
		if !k.Caps().HasNominal {
			continue
		}
		ext := n.ExtendableRows(k)
		if len(ext) == 0 {
			continue
		}
		t := n.Table(k)
		cost := t.Float(network.CapitalCost)
		capacity := m.Var(lp.VarKey{Kind: k, Attr: lp.VarNominal})
		for _, r := range ext {
			if cost[r] == 0 {
				continue
			}
			terms = append(terms, lp.Term{
				Coeff: cost[r],
				Var:   capacity.IDByName(0, t.Name(r)),
			})
		}
	}

	for _, k := range network.AllKinds {
		com := n.CommittableRows(k)
		if len(com) == 0 {
			continue
		}
		t := n.Table(k)
		suCost := t.Float(network.StartUpCost)
		sdCost := t.Float(network.ShutDownCost)
		startUp := m.Var(lp.VarKey{Kind: k, Attr: lp.VarStartUp})
		shutDown := m.Var(lp.VarKey{Kind: k, Attr: lp.VarShutDown})
		for ti := 0; ti < horizon; ti++ {
			for _, r := range com {
				name := t.Name(r)
				if suCost[r] != 0 {
					terms = append(terms, lp.Term{Coeff: suCost[r], Var: startUp.IDByName(ti, name)})
				}
				if sdCost[r] != 0 {
					terms = append(terms, lp.Term{Coeff: sdCost[r], Var: shutDown.IDByName(ti, name)})
				}
			}
		}
	}

	m.AddObjective(terms...)
}
