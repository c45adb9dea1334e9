// Package build turns a network description into a linear (or mixed-integer)
// optimization model: dispatch, capacity and commitment variables, the
// physical and economic constraints coupling them, and the cost objective.
package build

import (
	"go.uber.org/zap"

	"gridopt/internal/lp"
	"gridopt/internal/network"
)

// dispatchBound pairs a variable family with its per-unit bound policy.
type dispatchBound struct {
	kind network.Kind
	attr lp.VarAttr
	fam  varFamily
}

func dispatchBounds() []dispatchBound {
	return []dispatchBound{
		{network.Generator, lp.VarDispatch, famDispatch},
		{network.Line, lp.VarDispatch, famDispatch},
		{network.Transformer, lp.VarDispatch, famDispatch},
		{network.Link, lp.VarDispatch, famDispatch},
		{network.Store, lp.VarEnergy, famEnergy},
		{network.StorageUnit, lp.VarDispatch, famDispatch},
		{network.StorageUnit, lp.VarCharge, famCharge},
		{network.StorageUnit, lp.VarState, famState},
	}
}

// Build assembles the full optimization model for a network over the context
// window. The returned model is self-contained: writing it out and solving it
// needs no further access to the network.
func Build(n *network.Network, ctx Context) (*lp.Model, error) {
	ctx = ctx.normalize(n)
	if err := ctx.validate(n); err != nil {
		return nil, err
	}
	m := lp.NewModel()

	// variables
	for _, k := range []network.Kind{network.Generator, network.Line, network.Transformer, network.Link, network.Store} {
		if n.Table(k).Empty() {
			continue
		}
		defineOperationalVariables(m, n, ctx, k, lp.VarDispatch)
	}
	if !n.Table(network.StorageUnit).Empty() {
		defineOperationalVariables(m, n, ctx, network.StorageUnit, lp.VarDispatch)
	}
	defineStateVariables(m, n, ctx)
	for _, k := range network.AllKinds {
		if k.Caps().HasNominal {
			defineNominalVariables(m, n, k)
			defineModularVariables(m, n, k)
		}
		if k.Caps().HasCommitment {
			defineCommitabilityVariables(m, n, ctx, k)
		}
	}
	defineSpillVariables(m, n, ctx)
	if ctx.Tangents > 0 {
		defineLossVariables(m, n, ctx, network.Line)
		defineLossVariables(m, n, ctx, network.Transformer)
	}

	// dispatch and capacity bounds
	for _, db := range dispatchBounds() {
		if n.Table(db.kind).Empty() {
			continue
		}
		defineOperationalConstraintsForNonExtendables(m, n, ctx, db.kind, db.attr, db.fam)
		defineOperationalConstraintsForExtendables(m, n, ctx, db.kind, db.attr, db.fam)
	}
	for _, k := range network.AllKinds {
		if !k.Caps().HasNominal {
			continue
		}
		defineNominalConstraintsForExtendables(m, n, k)
		defineFixedNominalConstraints(m, n, k)
		defineModularityConstraints(m, n, k)
	}
	for _, k := range []network.Kind{network.Generator, network.Link} {
		defineFixedOperationConstraints(m, n, ctx, k, lp.VarDispatch)
	}

	// unit commitment and ramping
	for _, k := range network.AllKinds {
		if !k.Caps().HasCommitment {
			continue
		}
		if err := defineCommitmentConstraints(m, n, ctx, k, lp.VarDispatch); err != nil {
			return nil, err
		}
		defineRampLimitConstraints(m, n, ctx, k, lp.VarDispatch)
	}

	// energy carry-over
	defineStorageConstraints(m, n, ctx)
	defineStoreConstraints(m, n, ctx)

	// network physics
	if err := defineNodalBalanceConstraints(m, n, ctx); err != nil {
		return nil, err
	}
	defineKirchhoffConstraints(m, n, ctx)
	for _, k := range []network.Kind{network.Line, network.Transformer} {
		if err := defineLossConstraints(m, n, ctx, k); err != nil {
			return nil, err
		}
	}

	defineObjective(m, n, ctx)

	ctx.Log.Info("model assembled",
		zap.Int("variables", m.NumVars()),
		zap.Int("constraints", m.NumCons()),
		zap.Int("snapshots", ctx.End-ctx.Start))
	return m, nil
}
