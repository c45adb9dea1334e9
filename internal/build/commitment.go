package build

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"gridopt/internal/lp"
	"gridopt/internal/network"
	"gridopt/internal/table"
)

// defineCommitmentConstraints builds the unit-commitment family for a
// component kind: upper limits on the binary variables, status-gated dispatch
// bounds, start-up/shut-down transition coupling, minimum up and down times
// and, under the linearized relaxation, the tightening inequalities.
func defineCommitmentConstraints(m *lp.Model, n *network.Network, ctx Context, k network.Kind, attr lp.VarAttr) error {
	com := n.CommittableRows(k)
	if len(com) == 0 {
		return nil
	}
	fix := n.FixedRows(k)
	ext := n.ExtendableRows(k)
	mod := n.ModularRows(k)

	b := commitBuilder{
		m: m, n: n, ctx: ctx, k: k,
		dispatch: m.Var(lp.VarKey{Kind: k, Attr: attr}),
		status:   m.Var(lp.VarKey{Kind: k, Attr: lp.VarStatus}),
		startUp:  m.Var(lp.VarKey{Kind: k, Attr: lp.VarStartUp}),
		shutDown: m.Var(lp.VarKey{Kind: k, Attr: lp.VarShutDown}),
		modules:  m.Var(lp.VarKey{Kind: k, Attr: lp.VarModules}),
		sHist:    n.Series(k, network.StatusHistory),
	}

	if err := b.fixedUpperLimits(intersect(intersect(com, mod), fix), difference(com, mod)); err != nil {
		return err
	}
	b.variableUpperLimits(intersect(intersect(com, mod), ext))

	comMod := intersect(com, mod)
	comFixNonMod := difference(intersect(com, fix), mod)
	b.dispatchBounds(comMod, network.NominalModule, "com-mod")
	b.dispatchBounds(comFixNonMod, network.Nominal, "com-non-mod-fix")

	b.transitions(com)
	b.minimumWindows(com)

	if ctx.LinearizedUC {
		b.tightening(comMod, network.NominalModule, "com-mod")
		b.tightening(comFixNonMod, network.Nominal, "com-non-mod-fix")
	}
	return nil
}

type commitBuilder struct {
	m   *lp.Model
	n   *network.Network
	ctx Context
	k   network.Kind

	dispatch, status, startUp, shutDown, modules *lp.VarSet
	sHist                                        *table.Frame
}

func (b *commitBuilder) horizon() int { return b.ctx.End - b.ctx.Start }

// fixedUpperLimits caps the commitment variables of assets whose module count
// is fixed: by the number of installed modules for modular assets, by one for
// everything else. A fixed capacity that is not an integer multiple of the
// module size is a data error.
func (b *commitBuilder) fixedUpperLimits(modFix, nonMod []int) error {
	t := b.n.Table(b.k)
	nominal := t.Float(network.Nominal)
	modSize := t.Float(network.NominalModule)

	limits := make(map[int]float64, len(modFix)+len(nonMod))
	for _, r := range modFix {
		count := nominal[r] / modSize[r]
		if math.Abs(count-math.Round(count)) > 1e-6 {
			return fmt.Errorf("%s %q: nominal capacity %g is not an integer multiple of module size %g",
				b.k, t.Name(r), nominal[r], modSize[r])
		}
		limits[r] = math.Round(count)
	}
	for _, r := range nonMod {
		limits[r] = 1
	}
	rows := union(modFix, nonMod)
	if len(rows) == 0 {
		return nil
	}
	active := activityMaskOrNil(b.n, b.ctx, b.k, rows)

	emit := func(vs *lp.VarSet, name lp.ConName) {
		var out []lp.Row
		for ti := 0; ti < b.horizon(); ti++ {
			for j, r := range rows {
				if !active.Active(ti, j) {
					continue
				}
				asset := t.Name(r)
				id := vs.IDByName(ti, asset)
				if !id.Valid() {
					continue
				}
				out = append(out, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, asset),
					Terms: []lp.Term{{Coeff: 1, Var: id}},
					Sense: lp.LessEqual,
					RHS:   limits[r],
				})
			}
		}
		b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: name}, out)
	}
	emit(b.status, lp.ConStatusFixedUpper)
	emit(b.startUp, lp.ConStartFixedUpper)
	emit(b.shutDown, lp.ConStopFixedUpper)
	return nil
}

// variableUpperLimits caps the commitment variables of extendable modular
// assets by the module-count variable.
func (b *commitBuilder) variableUpperLimits(rows []int) {
	if len(rows) == 0 {
		return
	}
	t := b.n.Table(b.k)
	active := activityMaskOrNil(b.n, b.ctx, b.k, rows)

	emit := func(vs *lp.VarSet, name lp.ConName) {
		var out []lp.Row
		for ti := 0; ti < b.horizon(); ti++ {
			for j, r := range rows {
				if !active.Active(ti, j) {
					continue
				}
				asset := t.Name(r)
				id := vs.IDByName(ti, asset)
				modID := b.modules.IDByName(0, asset)
				if !id.Valid() || !modID.Valid() {
					continue
				}
				out = append(out, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, asset),
					Terms: []lp.Term{{Coeff: 1, Var: id}, {Coeff: -1, Var: modID}},
					Sense: lp.LessEqual,
				})
			}
		}
		b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: name}, out)
	}
	emit(b.status, lp.ConStatusVarUpper)
	emit(b.startUp, lp.ConStartVarUpper)
	emit(b.shutDown, lp.ConStopVarUpper)
}

// dispatchBounds gates dispatch by the status variable:
// lower_p * status <= p <= upper_p * status, with per-unit bounds scaled by
// the given nominal attribute.
func (b *commitBuilder) dispatchBounds(rows []int, scaling network.Attr, variant string) {
	if len(rows) == 0 {
		return
	}
	t := b.n.Table(b.k)
	nominal := t.Float(scaling)
	minPu, maxPu := boundsPu(b.n, b.ctx, b.k, famDispatch, rows)
	active := activityMaskOrNil(b.n, b.ctx, b.k, rows)

	var lowerRows, upperRows []lp.Row
	for ti := 0; ti < b.horizon(); ti++ {
		for j, r := range rows {
			if !active.Active(ti, j) {
				continue
			}
			asset := t.Name(r)
			id := b.dispatch.IDByName(ti, asset)
			statusID := b.status.IDByName(ti, asset)
			if !id.Valid() || !statusID.Valid() {
				continue
			}
			lowerRows = append(lowerRows, lp.Row{
				Label: cellLabel(b.n, b.ctx, ti, asset),
				Terms: []lp.Term{
					{Coeff: 1, Var: id},
					{Coeff: -minPu.At(ti, j) * nominal[r], Var: statusID},
				},
				Sense: lp.GreaterEqual,
			})
			upperRows = append(upperRows, lp.Row{
				Label: cellLabel(b.n, b.ctx, ti, asset),
				Terms: []lp.Term{
					{Coeff: 1, Var: id},
					{Coeff: -maxPu.At(ti, j) * nominal[r], Var: statusID},
				},
				Sense: lp.LessEqual,
			})
		}
	}
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComLower, Variant: variant}, lowerRows)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComUpper, Variant: variant}, upperRows)
}

// initiallyUp reports whether an asset enters the window running, and the up
// and down times it brings along. In rolling-horizon mode both are recounted
// from the persisted status history, clipped to the minimum times.
func (b *commitBuilder) initialState(r int) (up bool, upBefore, downBefore int) {
	t := b.n.Table(b.k)
	upBefore = t.Int(network.UpTimeBefore)[r]
	downBefore = t.Int(network.DownTimeBefore)[r]
	if b.ctx.rolling() && b.sHist != nil {
		name := t.Name(r)
		j := b.sHist.Col(name)
		if j >= 0 {
			upBefore, downBefore = 0, 0
			on := b.sHist.At(b.ctx.Start-1, j) > 0.5
			for ti := b.ctx.Start - 1; ti >= 0; ti-- {
				if (b.sHist.At(ti, j) > 0.5) != on {
					break
				}
				if on {
					upBefore++
				} else {
					downBefore++
				}
			}
			if minUp := t.Int(network.MinUpTime)[r]; upBefore > minUp {
				upBefore = minUp
			}
			if minDown := t.Int(network.MinDownTime)[r]; downBefore > minDown {
				downBefore = minDown
			}
		}
	}
	return upBefore > 0, upBefore, downBefore
}

// transitions couples start-up and shut-down indicators to status changes:
// start_up_t >= status_t - status_{t-1} and shut_down_t >= status_{t-1} -
// status_t. On the leading snapshot the previous status comes from the
// initial state or, in rolling mode, the status history.
func (b *commitBuilder) transitions(rows []int) {
	t := b.n.Table(b.k)
	active := activityMaskOrNil(b.n, b.ctx, b.k, rows)

	var startRows, stopRows []lp.Row
	for ti := 0; ti < b.horizon(); ti++ {
		for j, r := range rows {
			if !active.Active(ti, j) {
				continue
			}
			asset := t.Name(r)
			statusID := b.status.IDByName(ti, asset)
			suID := b.startUp.IDByName(ti, asset)
			sdID := b.shutDown.IDByName(ti, asset)
			if !statusID.Valid() || !suID.Valid() || !sdID.Valid() {
				continue
			}
			su := lp.Row{
				Label: cellLabel(b.n, b.ctx, ti, asset),
				Terms: []lp.Term{{Coeff: 1, Var: suID}, {Coeff: -1, Var: statusID}},
				Sense: lp.GreaterEqual,
			}
			sd := lp.Row{
				Label: cellLabel(b.n, b.ctx, ti, asset),
				Terms: []lp.Term{{Coeff: 1, Var: sdID}, {Coeff: 1, Var: statusID}},
				Sense: lp.GreaterEqual,
			}
			if ti == 0 {
				up, _, _ := b.initialState(r)
				if up {
					su.RHS = -1
					sd.RHS = 1
				}
			} else {
				prev := b.status.IDByName(ti-1, asset)
				if !prev.Valid() {
					continue
				}
				su.Terms = append(su.Terms, lp.Term{Coeff: 1, Var: prev})
				sd.Terms = append(sd.Terms, lp.Term{Coeff: -1, Var: prev})
			}
			startRows = append(startRows, su)
			stopRows = append(stopRows, sd)
		}
	}
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComTransitionUp}, startRows)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComTransitionDown}, stopRows)
}

// minimumWindows enforces minimum up and down times with rolling sums over
// the start-up and shut-down indicators, and pins the leading snapshots where
// the initial state still binds.
func (b *commitBuilder) minimumWindows(rows []int) {
	t := b.n.Table(b.k)
	minUp := t.Int(network.MinUpTime)
	minDown := t.Int(network.MinDownTime)
	active := activityMaskOrNil(b.n, b.ctx, b.k, rows)

	var upRows, downRows, stayUp, stayDown []lp.Row
	for j, r := range rows {
		asset := t.Name(r)
		up, upBefore, downBefore := b.initialState(r)

		for ti := 1; ti < b.horizon(); ti++ {
			if !active.Active(ti, j) {
				continue
			}
			statusID := b.status.IDByName(ti, asset)
			if !statusID.Valid() {
				continue
			}
			if minUp[r] > 0 {
				terms := []lp.Term{{Coeff: -1, Var: statusID}}
				for w := ti - minUp[r] + 1; w <= ti; w++ {
					if w < 0 {
						continue
					}
					if id := b.startUp.IDByName(w, asset); id.Valid() {
						terms = append(terms, lp.Term{Coeff: 1, Var: id})
					}
				}
				upRows = append(upRows, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, asset),
					Terms: terms,
					Sense: lp.LessEqual,
				})
			}
			if minDown[r] > 0 {
				terms := []lp.Term{{Coeff: 1, Var: statusID}}
				for w := ti - minDown[r] + 1; w <= ti; w++ {
					if w < 0 {
						continue
					}
					if id := b.shutDown.IDByName(w, asset); id.Valid() {
						terms = append(terms, lp.Term{Coeff: 1, Var: id})
					}
				}
				downRows = append(downRows, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, asset),
					Terms: terms,
					Sense: lp.LessEqual,
					RHS:   1,
				})
			}
		}

		// leading snapshots still bound by the pre-window run
		mustUp := minUp[r] - upBefore
		mustDown := minDown[r] - downBefore
		for ti := 0; ti < b.horizon(); ti++ {
			if !active.Active(ti, j) {
				continue
			}
			statusID := b.status.IDByName(ti, asset)
			if !statusID.Valid() {
				continue
			}
			if up && ti < mustUp {
				stayUp = append(stayUp, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, asset),
					Terms: []lp.Term{{Coeff: 1, Var: statusID}},
					Sense: lp.Equal,
					RHS:   1,
				})
			}
			if !up && downBefore > 0 && ti < mustDown {
				stayDown = append(stayDown, lp.Row{
					Label: cellLabel(b.n, b.ctx, ti, asset),
					Terms: []lp.Term{{Coeff: 1, Var: statusID}},
					Sense: lp.Equal,
				})
			}
		}
	}
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComUpTime}, upRows)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComDownTime}, downRows)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComMustStayUp}, stayUp)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComMustStayDown}, stayDown)
}

// tightening adds the strengthened relaxation of Hua et al. (2017) for the
// linearized unit commitment. It relies on a single cost signal on the
// transition indicators, so assets with differing start-up and shut-down
// costs are skipped with a warning.
func (b *commitBuilder) tightening(rows []int, scaling network.Attr, variant string) {
	if len(rows) == 0 {
		return
	}
	t := b.n.Table(b.k)
	suCost := t.Float(network.StartUpCost)
	sdCost := t.Float(network.ShutDownCost)

	var eligible []int
	for _, r := range rows {
		if suCost[r] == sdCost[r] {
			eligible = append(eligible, r)
		} else {
			b.ctx.Log.Warn("skipping linearized unit-commitment tightening: start-up and shut-down costs differ",
				zap.String("component", b.k.String()),
				zap.String("asset", t.Name(r)))
		}
	}
	if len(eligible) == 0 {
		return
	}

	nominal := t.Float(scaling)
	minPu, maxPu := boundsPu(b.n, b.ctx, b.k, famDispatch, eligible)
	rampUp := asDense(b.n, b.ctx, b.k, network.RampLimitUp, eligible)
	rampDown := asDense(b.n, b.ctx, b.k, network.RampLimitDown, eligible)
	rampStart := asDense(b.n, b.ctx, b.k, network.RampLimitStartUp, eligible)
	rampShut := asDense(b.n, b.ctx, b.k, network.RampLimitShutDown, eligible)
	fill1 := func(_, _ int, v float64) float64 {
		if math.IsNaN(v) {
			return 1
		}
		return v
	}
	rampUp.Apply(fill1)
	rampDown.Apply(fill1)
	active := activityMaskOrNil(b.n, b.ctx, b.k, eligible)

	var before, current, partStart, partStop []lp.Row
	for ti := 1; ti < b.horizon(); ti++ {
		for j, r := range eligible {
			if !active.Active(ti, j) || !active.Active(ti-1, j) {
				continue
			}
			asset := t.Name(r)
			p := b.dispatch.IDByName(ti, asset)
			pPrev := b.dispatch.IDByName(ti-1, asset)
			s := b.status.IDByName(ti, asset)
			sPrev := b.status.IDByName(ti-1, asset)
			su := b.startUp.IDByName(ti, asset)
			if !p.Valid() || !pPrev.Valid() || !s.Valid() || !sPrev.Valid() || !su.Valid() {
				continue
			}
			upperP := maxPu.At(ti, j) * nominal[r]
			lowerP := minPu.At(ti, j) * nominal[r]
			rUp := rampUp.At(ti, j) * nominal[r]
			rDown := rampDown.At(ti, j) * nominal[r]
			rStart := rampStart.At(ti, j) * nominal[r]
			rShut := rampShut.At(ti, j) * nominal[r]
			label := cellLabel(b.n, b.ctx, ti, asset)

			before = append(before, lp.Row{
				Label: label,
				Terms: []lp.Term{
					{Coeff: 1, Var: pPrev},
					{Coeff: -rShut, Var: sPrev},
					{Coeff: rShut - upperP, Var: s},
					{Coeff: upperP - rShut, Var: su},
				},
				Sense: lp.LessEqual,
			})
			current = append(current, lp.Row{
				Label: label,
				Terms: []lp.Term{
					{Coeff: 1, Var: p},
					{Coeff: -upperP, Var: s},
					{Coeff: upperP - rStart, Var: su},
				},
				Sense: lp.LessEqual,
			})
			partStart = append(partStart, lp.Row{
				Label: label,
				Terms: []lp.Term{
					{Coeff: 1, Var: p},
					{Coeff: -1, Var: pPrev},
					{Coeff: -(lowerP + rUp), Var: s},
					{Coeff: lowerP, Var: sPrev},
					{Coeff: lowerP + rUp - rStart, Var: su},
				},
				Sense: lp.LessEqual,
			})
			partStop = append(partStop, lp.Row{
				Label: label,
				Terms: []lp.Term{
					{Coeff: 1, Var: pPrev},
					{Coeff: -1, Var: p},
					{Coeff: -rShut, Var: sPrev},
					{Coeff: rShut - rDown, Var: s},
					{Coeff: -(lowerP + rDown - rShut), Var: su},
				},
				Sense: lp.LessEqual,
			})
		}
	}
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComPBefore, Variant: variant}, before)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComPCurrent, Variant: variant}, current)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComPartlyStart, Variant: variant}, partStart)
	b.m.AddConstraints(lp.ConKey{Kind: b.k, Name: lp.ConComPartlyStop, Variant: variant}, partStop)
}
