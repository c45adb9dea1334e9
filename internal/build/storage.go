package build

import (
	"math"

	"gridopt/internal/lp"
	"gridopt/internal/network"
	"gridopt/internal/table"
)

// defineStorageConstraints links the storage-unit state of charge across
// snapshots:
//
//	soc_t = eff_stand^eh * soc_prev + eff_store*eh*p_store_t
//	      - eh/eff_dispatch*p_dispatch_t - eh*spill_t + inflow_t*eh
//
// where prev skips inactive snapshots. Cyclic assets wrap to the last active
// snapshot; everything else substitutes the configured initial state on its
// first active snapshot. Under multi-period investment the per-period flags
// confine both policies to each period.
func defineStorageConstraints(m *lp.Model, n *network.Network, ctx Context) {
	t := n.Table(network.StorageUnit)
	if t.Empty() {
		return
	}
	rows := allRows(t)
	active := activityMask(n, ctx, network.StorageUnit, rows)

	standing := asDense(n, ctx, network.StorageUnit, network.StandingLoss, rows)
	effStore := asDense(n, ctx, network.StorageUnit, network.EfficiencyStore, rows)
	effDispatch := asDense(n, ctx, network.StorageUnit, network.EfficiencyDispatch, rows)
	inflow := asDense(n, ctx, network.StorageUnit, network.Inflow, rows)

	cyclic := t.Bool(network.Cyclic)
	cyclicPP := t.Bool(network.CyclicPerPeriod)
	initialPP := t.Bool(network.InitialPerPeriod)
	socInit := t.Float(network.StateInitial)

	soc := m.Var(lp.VarKey{Kind: network.StorageUnit, Attr: lp.VarState})
	dispatch := m.Var(lp.VarKey{Kind: network.StorageUnit, Attr: lp.VarDispatch})
	charge := m.Var(lp.VarKey{Kind: network.StorageUnit, Attr: lp.VarCharge})
	spill := m.Var(lp.VarKey{Kind: network.StorageUnit, Attr: lp.VarSpill})

	var out []lp.Row
	for j, r := range rows {
		name := t.Name(r)
		perPeriod := cyclic[r] && cyclicPP[r] || !cyclic[r] && initialPP[r]
		for _, group := range activeGroups(n, ctx, active, j, perPeriod) {
			for i, ti := range group {
				socID := soc.IDByName(ti, name)
				pdID := dispatch.IDByName(ti, name)
				psID := charge.IDByName(ti, name)
				if !socID.Valid() || !pdID.Valid() || !psID.Valid() {
					continue
				}
				eh := n.Snapshots().StoreWeight(ctx.Start + ti)
				effStand := math.Pow(1-standing.At(ti, j), eh)

				row := lp.Row{
					Label: cellLabel(n, ctx, ti, name),
					Terms: []lp.Term{
						{Coeff: -1, Var: socID},
						{Coeff: -eh / effDispatch.At(ti, j), Var: pdID},
						{Coeff: effStore.At(ti, j) * eh, Var: psID},
					},
					Sense: lp.Equal,
					RHS:   -inflow.At(ti, j) * eh,
				}
				if spill != nil {
					if id := spill.IDByName(ti, name); id.Valid() {
						row.Terms = append(row.Terms, lp.Term{Coeff: -eh, Var: id})
					}
				}
				switch {
				case i > 0:
					prev := soc.IDByName(group[i-1], name)
					if prev.Valid() {
						row.Terms = append(row.Terms, lp.Term{Coeff: effStand, Var: prev})
					}
				case cyclic[r]:
					prev := soc.IDByName(group[len(group)-1], name)
					switch {
					case prev == socID:
						// single-snapshot cycle wraps onto itself
						row.Terms[0].Coeff += effStand
					case prev.Valid():
						row.Terms = append(row.Terms, lp.Term{Coeff: effStand, Var: prev})
					}
				case !cyclic[r]:
					row.RHS -= socInit[r]
				}
				out = append(out, row)
			}
		}
	}
	m.AddConstraints(lp.ConKey{Kind: network.StorageUnit, Name: lp.ConEnergyBalance}, out)
}

// defineStoreConstraints links the store energy level across snapshots:
// e_t = eff_stand^eh * e_prev - eh*p_t, with the same cyclic and initial
// policies as storage units.
func defineStoreConstraints(m *lp.Model, n *network.Network, ctx Context) {
	t := n.Table(network.Store)
	if t.Empty() {
		return
	}
	rows := allRows(t)
	active := activityMask(n, ctx, network.Store, rows)

	standing := asDense(n, ctx, network.Store, network.StandingLoss, rows)
	cyclic := t.Bool(network.Cyclic)
	cyclicPP := t.Bool(network.CyclicPerPeriod)
	initialPP := t.Bool(network.InitialPerPeriod)
	eInit := t.Float(network.StateInitial)

	energy := m.Var(lp.VarKey{Kind: network.Store, Attr: lp.VarEnergy})
	dispatch := m.Var(lp.VarKey{Kind: network.Store, Attr: lp.VarDispatch})

	var out []lp.Row
	for j, r := range rows {
		name := t.Name(r)
		perPeriod := cyclic[r] && cyclicPP[r] || !cyclic[r] && initialPP[r]
		for _, group := range activeGroups(n, ctx, active, j, perPeriod) {
			for i, ti := range group {
				eID := energy.IDByName(ti, name)
				pID := dispatch.IDByName(ti, name)
				if !eID.Valid() || !pID.Valid() {
					continue
				}
				eh := n.Snapshots().StoreWeight(ctx.Start + ti)
				effStand := math.Pow(1-standing.At(ti, j), eh)

				row := lp.Row{
					Label: cellLabel(n, ctx, ti, name),
					Terms: []lp.Term{
						{Coeff: -1, Var: eID},
						{Coeff: -eh, Var: pID},
					},
					Sense: lp.Equal,
				}
				switch {
				case i > 0:
					prev := energy.IDByName(group[i-1], name)
					if prev.Valid() {
						row.Terms = append(row.Terms, lp.Term{Coeff: effStand, Var: prev})
					}
				case cyclic[r]:
					prev := energy.IDByName(group[len(group)-1], name)
					switch {
					case prev == eID:
						// single-snapshot cycle wraps onto itself
						row.Terms[0].Coeff += effStand
					case prev.Valid():
						row.Terms = append(row.Terms, lp.Term{Coeff: effStand, Var: prev})
					}
				case !cyclic[r]:
					row.RHS = -eInit[r]
				}
				out = append(out, row)
			}
		}
	}
	m.AddConstraints(lp.ConKey{Kind: network.Store, Name: lp.ConEnergyBalance}, out)
}

// activeGroups returns the active window indices of one mask column, either
// as a single run or split by investment period.
func activeGroups(n *network.Network, ctx Context, mask *table.Mask, j int, perPeriod bool) [][]int {
	horizon := ctx.End - ctx.Start
	if !perPeriod || !n.MultiPeriod() {
		var run []int
		for ti := 0; ti < horizon; ti++ {
			if mask.Active(ti, j) {
				run = append(run, ti)
			}
		}
		if len(run) == 0 {
			return nil
		}
		return [][]int{run}
	}
	var groups [][]int
	var run []int
	last := 0
	for ti := 0; ti < horizon; ti++ {
		p := n.Snapshots().Period(ctx.Start + ti)
		if len(run) > 0 && p != last {
			groups = append(groups, run)
			run = nil
		}
		if mask.Active(ti, j) {
			run = append(run, ti)
		}
		last = p
	}
	if len(run) > 0 {
		groups = append(groups, run)
	}
	return groups
}
