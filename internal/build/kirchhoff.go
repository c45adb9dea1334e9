package build

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"gridopt/internal/lp"
	"gridopt/internal/network"
)

// impedanceScale blows the per-unit impedance weights up to the magnitude of
// the power flows, which keeps the cycle constraints numerically balanced
// against the rest of the model.
const impedanceScale = 1e5

// branchRef identifies one passive branch endpoint pair with its cycle
// weight and the electrical carrier of the subnetwork it belongs to.
type branchRef struct {
	kind       network.Kind
	row        int
	name       string
	bus0, bus1 int
	weight     float64
	carrier    string
}

// defineKirchhoffConstraints enforces the voltage law: around every
// independent cycle of the passive-branch network the impedance-weighted
// flows sum to zero. Under multi-period investment the cycle basis is rebuilt
// per period, since commissioning and decommissioning change the topology.
func defineKirchhoffConstraints(m *lp.Model, n *network.Network, ctx Context) {
	buses := n.Table(network.Bus)
	if buses.Empty() {
		return
	}

	branches := collectBranches(n, buses)
	if len(branches) == 0 {
		return
	}

	// group window snapshots by investment period
	sns := ctx.window()
	groups := [][]int{}
	if n.MultiPeriod() {
		var cur []int
		last := 0
		for i, abs := range sns {
			p := n.Snapshots().Period(abs)
			if i > 0 && p != last {
				groups = append(groups, cur)
				cur = nil
			}
			cur = append(cur, i)
			last = p
		}
		groups = append(groups, cur)
	} else {
		all := make([]int, len(sns))
		for i := range sns {
			all[i] = i
		}
		groups = append(groups, all)
	}

	// voltage constraints only hold within one electrical carrier; cycle
	// bases are computed per carrier subnetwork
	var carriers []string
	byCarrier := map[string][]branchRef{}
	for _, br := range branches {
		if _, ok := byCarrier[br.carrier]; !ok {
			carriers = append(carriers, br.carrier)
		}
		byCarrier[br.carrier] = append(byCarrier[br.carrier], br)
	}

	var out []lp.Row
	for _, group := range groups {
		var cycles [][]cycleLeg
		for _, carrier := range carriers {
			cycles = append(cycles, cycleBasis(n, ctx, byCarrier[carrier], group[0])...)
		}
		for _, cycle := range cycles {
			for _, ti := range group {
				row := lp.Row{
					Label: n.Snapshots().Label(ctx.Start + ti),
					Sense: lp.Equal,
				}
				ok := true
				for _, leg := range cycle {
					vs := m.Var(lp.VarKey{Kind: leg.branch.kind, Attr: lp.VarDispatch})
					id := vs.IDByName(ti, leg.branch.name)
					if !id.Valid() {
						ok = false
						break
					}
					row.Terms = append(row.Terms, lp.Term{
						Coeff: leg.sign * impedanceScale * leg.branch.weight,
						Var:   id,
					})
				}
				if ok {
					out = append(out, row)
				}
			}
		}
	}
	m.AddConstraints(lp.ConKey{Kind: network.Bus, Name: lp.ConKirchhoffVoltage}, out)
}

// collectBranches gathers all passive branches with resolved bus indices and
// cycle weights: series reactance in AC subnetworks, series resistance in any
// other carrier. An unset bus carrier counts as AC.
func collectBranches(n *network.Network, buses *network.Table) []branchRef {
	var out []branchRef
	for _, k := range []network.Kind{network.Line, network.Transformer} {
		t := n.Table(k)
		if t.Empty() {
			continue
		}
		bus0 := t.Str(network.Bus0)
		bus1 := t.Str(network.Bus1)
		busCarrier := buses.Str(network.Carrier)
		x := t.Float(network.ReactancePuEff)
		r := t.Float(network.ResistancePuEff)
		for i := 0; i < t.Len(); i++ {
			b0 := buses.Row(bus0[i])
			b1 := buses.Row(bus1[i])
			if b0 < 0 || b1 < 0 || b0 == b1 {
				continue
			}
			carrier := busCarrier[b0]
			w := r[i]
			if carrier == "" || carrier == "AC" {
				w = x[i]
			}
			out = append(out, branchRef{
				kind: k, row: i, name: t.Name(i),
				bus0: b0, bus1: b1,
				weight:  w,
				carrier: carrier,
			})
		}
	}
	return out
}

// cycleLeg is one branch of a cycle with its traversal direction.
type cycleLeg struct {
	branch branchRef
	sign   float64
}

// cycleBasis returns an independent cycle basis over the branches active at
// window snapshot ti. Parallel branches between the same bus pair contribute
// one two-branch cycle each against the first branch of the pair, matching a
// multigraph basis without leaving the simple-graph representation.
func cycleBasis(n *network.Network, ctx Context, branches []branchRef, ti int) [][]cycleLeg {
	norm := func(a, b int) [2]int {
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}

	// filter to branches active at this snapshot
	var live []branchRef
	for _, k := range []network.Kind{network.Line, network.Transformer} {
		t := n.Table(k)
		if t.Empty() {
			continue
		}
		rows := allRows(t)
		mask := activityMaskOrNil(n, ctx, k, rows)
		for _, br := range branches {
			if br.kind != k {
				continue
			}
			if mask.Active(ti, br.row) {
				live = append(live, br)
			}
		}
	}

	byPair := map[[2]int][]branchRef{}
	for _, br := range live {
		key := norm(br.bus0, br.bus1)
		byPair[key] = append(byPair[key], br)
	}

	g := simple.NewUndirectedGraph()
	for key := range byPair {
		u, v := simple.Node(key[0]), simple.Node(key[1])
		if g.Node(u.ID()) == nil {
			g.AddNode(u)
		}
		if g.Node(v.ID()) == nil {
			g.AddNode(v)
		}
		g.SetEdge(simple.Edge{F: u, T: v})
	}

	var cycles [][]cycleLeg
	for _, nodes := range topo.UndirectedCyclesIn(g) {
		var legs []cycleLeg
		for i := 0; i+1 < len(nodes); i++ {
			u, v := int(nodes[i].ID()), int(nodes[i+1].ID())
			br := byPair[norm(u, v)][0]
			sign := 1.0
			if br.bus0 != u {
				sign = -1
			}
			legs = append(legs, cycleLeg{branch: br, sign: sign})
		}
		cycles = append(cycles, legs)
	}

	// parallel branches: each extra branch forms a cycle with the first
	for _, key := range sortedPairs(byPair) {
		group := byPair[key]
		for i := 1; i < len(group); i++ {
			sign := -1.0
			if group[i].bus0 != group[0].bus0 {
				sign = 1
			}
			cycles = append(cycles, []cycleLeg{
				{branch: group[0], sign: 1},
				{branch: group[i], sign: sign},
			})
		}
	}
	return cycles
}

func sortedPairs(m map[[2]int][]branchRef) [][2]int {
	keys := make([][2]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0; j-- {
			a, b := keys[j-1], keys[j]
			if a[0] < b[0] || (a[0] == b[0] && a[1] <= b[1]) {
				break
			}
			keys[j-1], keys[j] = b, a
		}
	}
	return keys
}
