package build

import (
	"gridopt/internal/network"
	"gridopt/internal/table"
)

// asDense resolves a possibly time-varying attribute into a dense
// snapshot x asset frame over the build window: per-snapshot series values
// where provided, static values broadcast elsewhere. Purely static attributes
// never fail; the window's snapshot identity is preserved.
func asDense(n *network.Network, ctx Context, k network.Kind, a network.Attr, rows []int) *table.Frame {
	t := n.Table(k)
	sns := ctx.window()
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = t.Name(r)
	}
	out := table.NewFrame(len(sns), names)

	static := t.Float(a)
	series := n.Series(k, a)
	for j, r := range rows {
		sj := -1
		if series != nil {
			sj = series.Col(names[j])
		}
		for ti, abs := range sns {
			if sj >= 0 {
				out.Set(ti, j, series.At(abs, sj))
			} else {
				out.Set(ti, j, static[r])
			}
		}
	}
	return out
}

// boundsPu resolves the per-unit dispatch bounds for a variable family of a
// component kind. The policy mirrors the data model's conventions:
//
//   - storage dispatch: [0, max_pu]
//   - storage charging: [0, -min_pu]
//   - storage state of charge: [0, max_hours]
//   - passive branch flow: [-max_pu, max_pu]
//   - everything else: [min_pu, max_pu]
func boundsPu(n *network.Network, ctx Context, k network.Kind, attr varFamily, rows []int) (minPu, maxPu *table.Frame) {
	switch attr {
	case famDispatch:
		maxPu = asDense(n, ctx, k, network.MaxPu, rows)
		if k == network.Line || k == network.Transformer {
			minPu = asDense(n, ctx, k, network.MaxPu, rows)
			minPu.Apply(func(_, _ int, v float64) float64 { return -v })
			return minPu, maxPu
		}
		if k == network.StorageUnit {
			minPu = table.NewFrame(maxPu.Rows(), maxPu.Assets())
			return minPu, maxPu
		}
		minPu = asDense(n, ctx, k, network.MinPu, rows)
		return minPu, maxPu
	case famCharge:
		maxPu = asDense(n, ctx, k, network.MinPu, rows)
		maxPu.Apply(func(_, _ int, v float64) float64 { return -v })
		minPu = table.NewFrame(maxPu.Rows(), maxPu.Assets())
		return minPu, maxPu
	case famState:
		maxPu = asDense(n, ctx, k, network.MaxHours, rows)
		minPu = table.NewFrame(maxPu.Rows(), maxPu.Assets())
		return minPu, maxPu
	case famEnergy:
		return asDense(n, ctx, k, network.MinPu, rows), asDense(n, ctx, k, network.MaxPu, rows)
	}
	return nil, nil
}

// varFamily selects the dispatch-bound policy in boundsPu.
type varFamily uint8

const (
	famDispatch varFamily = iota
	famCharge
	famState
	famEnergy
)
