package build

import (
	"gridopt/internal/lp"
	"gridopt/internal/network"
)

// defineModularityConstraints ties the capacity variable of extendable
// modular assets to the integer module count: capacity == n_mod * module
// size.
func defineModularityConstraints(m *lp.Model, n *network.Network, k network.Kind) {
	rows := intersect(n.ModularRows(k), n.ExtendableRows(k))
	if len(rows) == 0 {
		return
	}
	t := n.Table(k)
	modSize := t.Float(network.NominalModule)
	capacity := m.Var(lp.VarKey{Kind: k, Attr: lp.VarNominal})
	modules := m.Var(lp.VarKey{Kind: k, Attr: lp.VarModules})

	var out []lp.Row
	for _, r := range rows {
		name := t.Name(r)
		capID := capacity.IDByName(0, name)
		modID := modules.IDByName(0, name)
		if !capID.Valid() || !modID.Valid() {
			continue
		}
		out = append(out, lp.Row{
			Label: name,
			Terms: []lp.Term{{Coeff: 1, Var: capID}, {Coeff: -modSize[r], Var: modID}},
			Sense: lp.Equal,
		})
	}
	m.AddConstraints(lp.ConKey{Kind: k, Name: lp.ConModularity}, out)
}
