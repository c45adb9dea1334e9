package build

import (
	"gridopt/internal/network"
	"gridopt/internal/table"
)

// activityMask returns the snapshot x asset activity mask for the given rows
// of a component table over the build window. A cell is active iff the asset
// is flagged active and, under multi-period investment, commissioned during
// the snapshot's period: build_year <= period < build_year + lifetime.
func activityMask(n *network.Network, ctx Context, k network.Kind, rows []int) *table.Mask {
	t := n.Table(k)
	sns := ctx.window()
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = t.Name(r)
	}
	m := table.NewMask(len(sns), names)

	active := t.Bool(network.Active)
	buildYear := t.Int(network.BuildYear)
	lifetime := t.Float(network.Lifetime)

	for ti, abs := range sns {
		period := n.Snapshots().Period(abs)
		for j, r := range rows {
			if !active[r] {
				continue
			}
			if n.MultiPeriod() {
				from := buildYear[r]
				until := float64(from) + lifetime[r]
				if period < from || float64(period) >= until {
					continue
				}
			}
			m.Set(ti, j, true)
		}
	}
	return m
}

// activityMaskOrNil returns nil when every cell would be active. Callers must
// treat nil as "all active"; the solved result is identical either way.
func activityMaskOrNil(n *network.Network, ctx Context, k network.Kind, rows []int) *table.Mask {
	if !ctx.MultiPeriod {
		active := n.Table(k).Bool(network.Active)
		allActive := true
		for _, r := range rows {
			if !active[r] {
				allActive = false
				break
			}
		}
		if allActive {
			return nil
		}
	}
	return activityMask(n, ctx, k, rows)
}
