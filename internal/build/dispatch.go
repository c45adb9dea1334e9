package build

import (
	"math"

	"gridopt/internal/lp"
	"gridopt/internal/network"
)

// defineOperationalConstraintsForNonExtendables bounds dispatch for fixed,
// non-committable assets: min_pu * nominal <= dispatch <= max_pu * nominal.
// For lossy passive branches the inequalities are split into loss-adjusted
// lower/upper forms.
func defineOperationalConstraintsForNonExtendables(m *lp.Model, n *network.Network, ctx Context, k network.Kind, attr lp.VarAttr, fam varFamily) {
	fix := difference(n.FixedRows(k), n.CommittableRows(k))
	if len(fix) == 0 {
		return
	}
	t := n.Table(k)
	sns := ctx.window()
	nominal := t.Float(network.Nominal)
	minPu, maxPu := boundsPu(n, ctx, k, fam, fix)
	active := activityMaskOrNil(n, ctx, k, fix)

	vkey := lp.VarKey{Kind: k, Attr: attr}
	dispatch := m.Var(vkey)
	withLoss := k.Caps().PassiveBranch && ctx.Tangents > 0 && attr == lp.VarDispatch
	var loss *lp.VarSet
	if withLoss {
		loss = m.Var(lp.VarKey{Kind: k, Attr: lp.VarLoss})
	}

	var lowerRows, upperRows []lp.Row
	for ti := range sns {
		for j, r := range fix {
			if !active.Active(ti, j) {
				continue
			}
			name := t.Name(r)
			id := dispatch.IDByName(ti, name)
			if !id.Valid() {
				continue
			}
			lo := lp.Row{
				Label: cellLabel(n, ctx, ti, name),
				Terms: []lp.Term{{Coeff: 1, Var: id}},
				Sense: lp.GreaterEqual,
				RHS:   minPu.At(ti, j) * nominal[r],
			}
			up := lp.Row{
				Label: cellLabel(n, ctx, ti, name),
				Terms: []lp.Term{{Coeff: 1, Var: id}},
				Sense: lp.LessEqual,
				RHS:   maxPu.At(ti, j) * nominal[r],
			}
			if withLoss {
				lid := loss.IDByName(ti, name)
				lo.Terms = append(lo.Terms, lp.Term{Coeff: -1, Var: lid})
				up.Terms = append(up.Terms, lp.Term{Coeff: 1, Var: lid})
			}
			lowerRows = append(lowerRows, lo)
			upperRows = append(upperRows, up)
		}
	}
	variant := vkey.AttrName()
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConFixLower, Variant: variant}, lowerRows)
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConFixUpper, Variant: variant}, upperRows)
}

// defineOperationalConstraintsForExtendables bounds dispatch for extendable,
// non-committable assets against the capacity variable:
// dispatch - bound_pu * capacity (-/+ loss) >=/<= 0. Extendable committable
// assets without modularity are handled here as well; their on/off gating
// happens in the commitment family.
func defineOperationalConstraintsForExtendables(m *lp.Model, n *network.Network, ctx Context, k network.Kind, attr lp.VarAttr, fam varFamily) {
	ext := n.ExtendableRows(k)
	com := n.CommittableRows(k)
	mod := n.ModularRows(k)
	rows := union(difference(ext, com), difference(intersect(ext, com), mod))
	if len(rows) == 0 {
		return
	}
	t := n.Table(k)
	sns := ctx.window()
	minPu, maxPu := boundsPu(n, ctx, k, fam, rows)
	active := activityMaskOrNil(n, ctx, k, rows)

	vkey := lp.VarKey{Kind: k, Attr: attr}
	dispatch := m.Var(vkey)
	capacity := m.Var(lp.VarKey{Kind: k, Attr: lp.VarNominal})
	withLoss := k.Caps().PassiveBranch && ctx.Tangents > 0 && attr == lp.VarDispatch
	var loss *lp.VarSet
	if withLoss {
		loss = m.Var(lp.VarKey{Kind: k, Attr: lp.VarLoss})
	}

	var lowerRows, upperRows []lp.Row
	for ti := range sns {
		for j, r := range rows {
			if !active.Active(ti, j) {
				continue
			}
			name := t.Name(r)
			id := dispatch.IDByName(ti, name)
			capID := capacity.IDByName(0, name)
			if !id.Valid() || !capID.Valid() {
				continue
			}
			lo := lp.Row{
				Label: cellLabel(n, ctx, ti, name),
				Terms: []lp.Term{{Coeff: 1, Var: id}, {Coeff: -minPu.At(ti, j), Var: capID}},
				Sense: lp.GreaterEqual,
			}
			up := lp.Row{
				Label: cellLabel(n, ctx, ti, name),
				Terms: []lp.Term{{Coeff: 1, Var: id}, {Coeff: -maxPu.At(ti, j), Var: capID}},
				Sense: lp.LessEqual,
			}
			if withLoss {
				lid := loss.IDByName(ti, name)
				lo.Terms = append(lo.Terms, lp.Term{Coeff: -1, Var: lid})
				up.Terms = append(up.Terms, lp.Term{Coeff: 1, Var: lid})
			}
			lowerRows = append(lowerRows, lo)
			upperRows = append(upperRows, up)
		}
	}
	variant := vkey.AttrName()
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConExtLower, Variant: variant}, lowerRows)
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConExtUpper, Variant: variant}, upperRows)
}

// defineNominalConstraintsForExtendables bounds the capacity variable by the
// static expansion limits. Infinite upper bounds are masked out instead of
// being handed to the solver.
func defineNominalConstraintsForExtendables(m *lp.Model, n *network.Network, k network.Kind) {
	ext := n.ExtendableRows(k)
	if len(ext) == 0 {
		return
	}
	t := n.Table(k)
	nomMin := t.Float(network.NominalMin)
	nomMax := t.Float(network.NominalMax)
	capacity := m.Var(lp.VarKey{Kind: k, Attr: lp.VarNominal})

	var lowerRows, upperRows []lp.Row
	for _, r := range ext {
		name := t.Name(r)
		capID := capacity.IDByName(0, name)
		if !capID.Valid() {
			continue
		}
		lowerRows = append(lowerRows, lp.Row{
			Label: name,
			Terms: []lp.Term{{Coeff: 1, Var: capID}},
			Sense: lp.GreaterEqual,
			RHS:   nomMin[r],
		})
		if !math.IsInf(nomMax[r], 1) {
			upperRows = append(upperRows, lp.Row{
				Label: name,
				Terms: []lp.Term{{Coeff: 1, Var: capID}},
				Sense: lp.LessEqual,
				RHS:   nomMax[r],
			})
		}
	}
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConNominalLower}, lowerRows)
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConNominalUpper}, upperRows)
}

// defineFixedNominalConstraints pins extendable capacities carrying a set
// value to that value.
func defineFixedNominalConstraints(m *lp.Model, n *network.Network, k network.Kind) {
	ext := n.ExtendableRows(k)
	if len(ext) == 0 {
		return
	}
	t := n.Table(k)
	set := t.Float(network.NominalSet)
	capacity := m.Var(lp.VarKey{Kind: k, Attr: lp.VarNominal})

	var rows []lp.Row
	for _, r := range ext {
		if math.IsNaN(set[r]) {
			continue
		}
		name := t.Name(r)
		capID := capacity.IDByName(0, name)
		if !capID.Valid() {
			continue
		}
		rows = append(rows, lp.Row{
			Label: name,
			Terms: []lp.Term{{Coeff: 1, Var: capID}},
			Sense: lp.Equal,
			RHS:   set[r],
		})
	}
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConNominalSet}, rows)
}

// defineFixedOperationConstraints pins dispatch cells carrying a per-snapshot
// set value to that value, honoring the activity mask.
func defineFixedOperationConstraints(m *lp.Model, n *network.Network, ctx Context, k network.Kind, attr lp.VarAttr) {
	t := n.Table(k)
	if t.Empty() {
		return
	}
	if n.Series(k, network.PSet) == nil && allNaN(t.Float(network.PSet)) {
		return
	}
	rows := allRows(t)
	set := asDense(n, ctx, k, network.PSet, rows)
	active := activityMaskOrNil(n, ctx, k, rows)
	dispatch := m.Var(lp.VarKey{Kind: k, Attr: attr})

	var out []lp.Row
	for ti := 0; ti < set.Rows(); ti++ {
		for j, r := range rows {
			v := set.At(ti, j)
			if math.IsNaN(v) || !active.Active(ti, j) {
				continue
			}
			name := t.Name(r)
			id := dispatch.IDByName(ti, name)
			if !id.Valid() {
				continue
			}
			out = append(out, lp.Row{
				Label: cellLabel(n, ctx, ti, name),
				Terms: []lp.Term{{Coeff: 1, Var: id}},
				Sense: lp.Equal,
				RHS:   v,
			})
		}
	}
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConDispatchSet}, out)
}

func allNaN(vs []float64) bool {
	for _, v := range vs {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// cellLabel names a (snapshot, asset) constraint cell for diagnostics.
func cellLabel(n *network.Network, ctx Context, ti int, asset string) string {
	return n.Snapshots().Label(ctx.Start+ti) + "/" + asset
}
