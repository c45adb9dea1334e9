package build

import (
	"math"

	"gridopt/internal/lp"
	"gridopt/internal/network"
	"gridopt/internal/table"
)

// defineRampLimitConstraints limits dispatch changes between consecutive
// snapshots. The assets split into four partitions with different scalings:
//
//   - fixed, non-committable: limits scale the static nominal capacity
//   - extendable, non-committable (plus extendable committable without
//     modules): limits multiply the capacity variable
//   - committable fixed without modules: limits scale the static nominal and
//     couple to the status variable so start-up and shut-down snapshots get
//     their own limits
//   - committable modular: as above with the module size as scaling
//
// In rolling-horizon mode the leading snapshot anchors against the persisted
// dispatch (and status) history instead of a variable.
func defineRampLimitConstraints(m *lp.Model, n *network.Network, ctx Context, k network.Kind, attr lp.VarAttr) {
	if !k.Caps().HasRamp {
		return
	}
	t := n.Table(k)
	if t.Empty() || !rampLimited(n, k) {
		return
	}

	fix := n.FixedRows(k)
	ext := n.ExtendableRows(k)
	com := n.CommittableRows(k)
	mod := n.ModularRows(k)

	b := rampBuilder{
		m: m, n: n, ctx: ctx, k: k,
		dispatch: m.Var(lp.VarKey{Kind: k, Attr: attr}),
		status:   m.Var(lp.VarKey{Kind: k, Attr: lp.VarStatus}),
		capacity: m.Var(lp.VarKey{Kind: k, Attr: lp.VarNominal}),
		pHist:    n.Series(k, network.DispatchHistory),
		sHist:    n.Series(k, network.StatusHistory),
	}

	b.nonCommittableFixed(difference(fix, com))
	b.nonCommittableExtendable(union(difference(ext, com), difference(intersect(ext, com), mod)))
	b.committable(difference(intersect(com, fix), mod), network.Nominal, "com-non-ext-non-mod")
	b.committable(intersect(com, mod), network.NominalModule, "com-mod")
}

// rampLimited reports whether any ramp limit is set for the kind, statically
// or as a series.
func rampLimited(n *network.Network, k network.Kind) bool {
	t := n.Table(k)
	for _, a := range []network.Attr{network.RampLimitUp, network.RampLimitDown} {
		if n.Series(k, a) != nil {
			return true
		}
		for _, v := range t.Float(a) {
			if !math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}

type rampBuilder struct {
	m   *lp.Model
	n   *network.Network
	ctx Context
	k   network.Kind

	dispatch, status, capacity *lp.VarSet
	pHist, sHist               *table.Frame
}

// anchored reports whether the leading window snapshot can be constrained
// against history. Without a persisted dispatch series the first delta is
// simply skipped.
func (b *rampBuilder) anchored() bool {
	return b.ctx.rolling() && b.pHist != nil
}

func (b *rampBuilder) histDispatch(name string) float64 {
	j := b.pHist.Col(name)
	if j < 0 {
		return 0
	}
	return b.pHist.At(b.ctx.Start-1, j)
}

func (b *rampBuilder) histStatus(name string) float64 {
	if b.sHist == nil {
		return 0
	}
	j := b.sHist.Col(name)
	if j < 0 {
		return 0
	}
	return b.sHist.At(b.ctx.Start-1, j)
}

func (b *rampBuilder) nonCommittableFixed(rows []int) {
	if len(rows) == 0 {
		return
	}
	t := b.n.Table(b.k)
	nominal := t.Float(network.Nominal)
	up := asDense(b.n, b.ctx, b.k, network.RampLimitUp, rows)
	down := asDense(b.n, b.ctx, b.k, network.RampLimitDown, rows)
	active := activityMaskOrNil(b.n, b.ctx, b.k, rows)

	var upRows, downRows []lp.Row
	first := 1
	if b.anchored() {
		first = 0
	}
	horizon := b.ctx.End - b.ctx.Start
	for ti := first; ti < horizon; ti++ {
		for j, r := range rows {
			if !active.Active(ti, j) {
				continue
			}
			name := t.Name(r)
			id := b.dispatch.IDByName(ti, name)
			if !id.Valid() {
				continue
			}
			terms := []lp.Term{{Coeff: 1, Var: id}}
			var rhs float64
			if ti == 0 {
				rhs = b.histDispatch(name)
			} else {
				prev := b.dispatch.IDByName(ti-1, name)
				if !prev.Valid() {
					continue
				}
				terms = append(terms, lp.Term{Coeff: -1, Var: prev})
			}
			if v := up.At(ti, j); !math.IsNaN(v) {
				upRows = append(upRows, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, name),
					Terms: terms,
					Sense: lp.LessEqual,
					RHS:   rhs + v*nominal[r],
				})
			}
			if v := down.At(ti, j); !math.IsNaN(v) {
				downRows = append(downRows, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, name),
					Terms: terms,
					Sense: lp.GreaterEqual,
					RHS:   rhs - v*nominal[r],
				})
			}
		}
	}
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConRampUp, Variant: "fix-non-comm"}, upRows)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConRampDown, Variant: "fix-non-comm"}, downRows)
}

func (b *rampBuilder) nonCommittableExtendable(rows []int) {
	if len(rows) == 0 {
		return
	}
	t := b.n.Table(b.k)
	up := asDense(b.n, b.ctx, b.k, network.RampLimitUp, rows)
	down := asDense(b.n, b.ctx, b.k, network.RampLimitDown, rows)
	active := activityMaskOrNil(b.n, b.ctx, b.k, rows)

	var upRows, downRows []lp.Row
	first := 1
	if b.anchored() {
		first = 0
	}
	horizon := b.ctx.End - b.ctx.Start
	for ti := first; ti < horizon; ti++ {
		for j, r := range rows {
			if !active.Active(ti, j) {
				continue
			}
			name := t.Name(r)
			id := b.dispatch.IDByName(ti, name)
			capID := b.capacity.IDByName(0, name)
			if !id.Valid() || !capID.Valid() {
				continue
			}
			terms := []lp.Term{{Coeff: 1, Var: id}}
			var rhs float64
			if ti == 0 {
				rhs = b.histDispatch(name)
			} else {
				prev := b.dispatch.IDByName(ti-1, name)
				if !prev.Valid() {
					continue
				}
				terms = append(terms, lp.Term{Coeff: -1, Var: prev})
			}
			if v := up.At(ti, j); !math.IsNaN(v) {
				upRows = append(upRows, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, name),
					Terms: append(append([]lp.Term(nil), terms...), lp.Term{Coeff: -v, Var: capID}),
					Sense: lp.LessEqual,
					RHS:   rhs,
				})
			}
			if v := down.At(ti, j); !math.IsNaN(v) {
				downRows = append(downRows, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, name),
					Terms: append(append([]lp.Term(nil), terms...), lp.Term{Coeff: v, Var: capID}),
					Sense: lp.GreaterEqual,
					RHS:   rhs,
				})
			}
		}
	}
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConRampUp, Variant: "ext-non-comm"}, upRows)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConRampDown, Variant: "ext-non-comm"}, downRows)
}

// committable couples the ramp limits to the status variable. Unset up and
// down limits default to one full scaling per step so the start-up and
// shut-down limits stay binding on transition snapshots.
func (b *rampBuilder) committable(rows []int, scaling network.Attr, variant string) {
	if len(rows) == 0 {
		return
	}
	t := b.n.Table(b.k)
	nominal := t.Float(scaling)
	up := asDense(b.n, b.ctx, b.k, network.RampLimitUp, rows)
	down := asDense(b.n, b.ctx, b.k, network.RampLimitDown, rows)
	start := asDense(b.n, b.ctx, b.k, network.RampLimitStartUp, rows)
	shut := asDense(b.n, b.ctx, b.k, network.RampLimitShutDown, rows)
	active := activityMaskOrNil(b.n, b.ctx, b.k, rows)

	fill1 := func(_, _ int, v float64) float64 {
		if math.IsNaN(v) {
			return 1
		}
		return v
	}
	up.Apply(fill1)
	down.Apply(fill1)

	var upRows, downRows []lp.Row
	first := 1
	if b.anchored() {
		first = 0
	}
	horizon := b.ctx.End - b.ctx.Start
	for ti := first; ti < horizon; ti++ {
		for j, r := range rows {
			if !active.Active(ti, j) {
				continue
			}
			name := t.Name(r)
			id := b.dispatch.IDByName(ti, name)
			statusID := b.status.IDByName(ti, name)
			if !id.Valid() || !statusID.Valid() {
				continue
			}
			limUp := up.At(ti, j) * nominal[r]
			limDown := down.At(ti, j) * nominal[r]
			limStart := start.At(ti, j) * nominal[r]
			limShut := shut.At(ti, j) * nominal[r]

			// p_t - p_{t-1} <= limUp*status_{t-1} + limStart*(status_t - status_{t-1})
			upTerms := []lp.Term{
				{Coeff: 1, Var: id},
				{Coeff: -limStart, Var: statusID},
			}
			// p_{t-1} - p_t <= limDown*status_t + limShut*(status_{t-1} - status_t)
			downTerms := []lp.Term{
				{Coeff: 1, Var: id},
				{Coeff: limDown - limShut, Var: statusID},
			}
			var upRHS, downRHS float64
			if ti == 0 {
				p0 := b.histDispatch(name)
				s0 := b.histStatus(name)
				upRHS = p0 + (limUp-limStart)*s0
				downRHS = p0 - limShut*s0
			} else {
				prev := b.dispatch.IDByName(ti-1, name)
				prevStatus := b.status.IDByName(ti-1, name)
				if !prev.Valid() || !prevStatus.Valid() {
					continue
				}
				upTerms = append(upTerms,
					lp.Term{Coeff: -1, Var: prev},
					lp.Term{Coeff: limStart - limUp, Var: prevStatus})
				downTerms = append(downTerms,
					lp.Term{Coeff: -1, Var: prev},
					lp.Term{Coeff: limShut, Var: prevStatus})
			}
			upRows = append(upRows, lp.Row{
				Label: cellLabel(b.n, b.ctx, ti, name),
				Terms: upTerms,
				Sense: lp.LessEqual,
				RHS:   upRHS,
			})
			downRows = append(downRows, lp.Row{
				Label: cellLabel(b.n, b.ctx, ti, name),
				Terms: downTerms,
				Sense: lp.GreaterEqual,
				RHS:   downRHS,
			})
		}
	}
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConRampUp, Variant: variant}, upRows)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConRampDown, Variant: variant}, downRows)
}
