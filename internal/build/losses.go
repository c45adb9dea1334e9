package build

import (
	"fmt"
	"math"

	"gridopt/internal/lp"
	"gridopt/internal/network"
)

// defineLossConstraints bounds the quadratic resistive loss of a passive
// branch from below with tangents and from above with the loss at maximum
// loading. The approximation needs a finite flow range, so extendable
// branches without a capacity expansion limit are rejected.
func defineLossConstraints(m *lp.Model, n *network.Network, ctx Context, k network.Kind) error {
	if !k.Caps().PassiveBranch || ctx.Tangents <= 0 {
		return nil
	}
	t := n.Table(k)
	if t.Empty() {
		return nil
	}
	rows := allRows(t)
	active := activityMaskOrNil(n, ctx, k, rows)

	nominal := t.Float(network.Nominal)
	nomMax := t.Float(network.NominalMax)
	ext := t.Bool(network.Extendable)
	r := t.Float(network.ResistancePuEff)
	maxPu := asDense(n, ctx, k, network.MaxPu, rows)

	cap := make([]float64, len(rows))
	for j, row := range rows {
		if ext[row] {
			cap[j] = nomMax[row]
			if math.IsInf(cap[j], 1) {
				return fmt.Errorf("%s %q: loss linearization needs a finite capacity limit for extendable branches", k, t.Name(row))
			}
		} else {
			cap[j] = nominal[row]
		}
	}

	flow := m.Var(lp.VarKey{Kind: k, Attr: lp.VarDispatch})
	loss := m.Var(lp.VarKey{Kind: k, Attr: lp.VarLoss})
	horizon := ctx.End - ctx.Start

	var upper []lp.Row
	tangents := make([][]lp.Row, 2*ctx.Tangents)
	for ti := 0; ti < horizon; ti++ {
		for j, row := range rows {
			if !active.Active(ti, j) {
				continue
			}
			name := t.Name(row)
			flowID := flow.IDByName(ti, name)
			lossID := loss.IDByName(ti, name)
			if !flowID.Valid() || !lossID.Valid() {
				continue
			}
			maxFlow := maxPu.At(ti, j) * cap[j]
			upper = append(upper, lp.Row{
				Label: cellLabel(n, ctx, ti, name),
				Terms: []lp.Term{{Coeff: 1, Var: lossID}},
				Sense: lp.LessEqual,
				RHS:   r[row] * maxFlow * maxFlow,
			})
			for i := 1; i <= ctx.Tangents; i++ {
				pk := float64(i) / float64(ctx.Tangents) * maxFlow
				slope := 2 * r[row] * pk
				offset := r[row]*pk*pk - slope*pk
				for si, sign := range []float64{-1, 1} {
					tangents[2*(i-1)+si] = append(tangents[2*(i-1)+si], lp.Row{
						Label: cellLabel(n, ctx, ti, name),
						Terms: []lp.Term{
							{Coeff: 1, Var: lossID},
							{Coeff: sign * slope, Var: flowID},
						},
						Sense: lp.GreaterEqual,
						RHS:   offset,
					})
				}
			}
		}
	}
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConLossUpper}, upper)
	for i := 1; i <= ctx.Tangents; i++ {
		for si, sign := range []int{-1, 1} {
			m.AddConstraints(lp.ConKey{
				Kind:    k,
				Name:    lp.ConLossTangents,
				Variant: fmt.Sprintf("%d-%d", i, sign),
			}, tangents[2*(i-1)+si])
		}
	}
	return nil
}
