package build

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridopt/internal/lp"
	"gridopt/internal/network"
	"gridopt/internal/table"
)

func testSnapshots(t *testing.T, hours int) *network.Snapshots {
	t.Helper()
	labels := make([]string, hours)
	for i := range labels {
		labels[i] = fmt.Sprintf("t%d", i)
	}
	sns, err := network.NewSnapshots(labels)
	require.NoError(t, err)
	return sns
}

// singleBus returns a one-bus network with a fixed 100 MW generator and a
// constant 50 MW load.
func singleBus(t *testing.T, hours int) *network.Network {
	t.Helper()
	n := network.New(testSnapshots(t, hours))

	_, err := n.Table(network.Bus).Add("b1")
	require.NoError(t, err)

	gens := n.Table(network.Generator)
	g, err := gens.Add("g1")
	require.NoError(t, err)
	gens.SetStr(g, network.BusAttr, "b1")
	gens.SetFloat(g, network.Nominal, 100)
	gens.SetFloat(g, network.MarginalCost, 10)

	loads := n.Table(network.Load)
	l, err := loads.Add("l1")
	require.NoError(t, err)
	loads.SetStr(l, network.BusAttr, "b1")
	loads.SetFloat(l, network.PSet, 50)

	return n
}

func TestBuildSingleBus(t *testing.T) {
	n := singleBus(t, 3)
	m, err := Build(n, Context{})
	require.NoError(t, err)

	dispatch := m.Var(lp.VarKey{Kind: network.Generator, Attr: lp.VarDispatch})
	require.NotNil(t, dispatch)
	assert.Equal(t, 3, dispatch.Snaps)

	upper := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConFixUpper, Variant: "p"})
	require.NotNil(t, upper)
	require.Len(t, upper.Rows, 3)
	assert.Equal(t, 100.0, upper.Rows[0].RHS)
	assert.Equal(t, lp.LessEqual, upper.Rows[0].Sense)

	lower := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConFixLower, Variant: "p"})
	require.NotNil(t, lower)
	assert.Equal(t, 0.0, lower.Rows[0].RHS)

	balance := m.Con(lp.ConKey{Kind: network.Bus, Name: lp.ConNodalBalance})
	require.NotNil(t, balance)
	require.Len(t, balance.Rows, 3)
	row := balance.Rows[0]
	assert.Equal(t, lp.Equal, row.Sense)
	assert.Equal(t, 50.0, row.RHS, "load withdraws 50 MW")
	require.Len(t, row.Terms, 1)
	assert.Equal(t, 1.0, row.Terms[0].Coeff)
	assert.Equal(t, dispatch.ID(0, 0), row.Terms[0].Var)

	assert.Len(t, m.Objective(), 3, "one marginal-cost term per snapshot")
	assert.Equal(t, 10.0, m.Objective()[0].Coeff)
}

func TestBuildRejectsBadWindow(t *testing.T) {
	n := singleBus(t, 3)

	_, err := Build(n, Context{Start: 100})
	require.Error(t, err, "a window start past the horizon must not build")
	assert.Contains(t, err.Error(), "out of range")

	_, err = Build(n, Context{Start: -1, End: 2})
	require.Error(t, err)

	_, err = Build(n, Context{End: 5})
	require.Error(t, err)

	_, err = Build(n, Context{Start: 2, End: 2})
	require.Error(t, err, "an empty window must not build")
}

func TestBuildIsDeterministic(t *testing.T) {
	n := singleBus(t, 4)
	m1, err := Build(n, Context{})
	require.NoError(t, err)
	m2, err := Build(n, Context{})
	require.NoError(t, err)

	assert.Equal(t, m1.NumVars(), m2.NumVars())
	assert.Equal(t, m1.NumCons(), m2.NumCons())
	c1, c2 := m1.Constraints(), m2.Constraints()
	require.Equal(t, len(c1), len(c2))
	for i := range c1 {
		assert.Equal(t, c1[i].Key, c2[i].Key)
	}
}

func TestExtendableBoundsCoupleToCapacity(t *testing.T) {
	n := singleBus(t, 2)
	gens := n.Table(network.Generator)
	w, err := gens.Add("wind")
	require.NoError(t, err)
	gens.SetStr(w, network.BusAttr, "b1")
	gens.SetBool(w, network.Extendable, true)
	gens.SetFloat(w, network.NominalMax, 500)
	gens.SetFloat(w, network.CapitalCost, 80)

	pu := table.NewFrame(2, []string{"wind"})
	pu.Set(0, 0, 0.7)
	pu.Set(1, 0, 0.2)
	require.NoError(t, n.SetSeries(network.Generator, network.MaxPu, pu))

	m, err := Build(n, Context{})
	require.NoError(t, err)

	capacity := m.Var(lp.VarKey{Kind: network.Generator, Attr: lp.VarNominal})
	require.NotNil(t, capacity)
	capID := capacity.IDByName(0, "wind")
	require.True(t, capID.Valid())

	upper := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConExtUpper, Variant: "p"})
	require.NotNil(t, upper)
	require.Len(t, upper.Rows, 2)
	row := upper.Rows[0]
	require.Len(t, row.Terms, 2)
	assert.Equal(t, -0.7, row.Terms[1].Coeff)
	assert.Equal(t, capID, row.Terms[1].Var)
	assert.Equal(t, 0.0, row.RHS)

	nomUpper := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConNominalUpper})
	require.NotNil(t, nomUpper)
	require.Len(t, nomUpper.Rows, 1)
	assert.Equal(t, 500.0, nomUpper.Rows[0].RHS)

	// capital cost enters the objective once
	found := 0
	for _, term := range m.Objective() {
		if term.Var == capID {
			found++
			assert.Equal(t, 80.0, term.Coeff)
		}
	}
	assert.Equal(t, 1, found)
}

func TestInfiniteNominalMaxSkipsUpperBound(t *testing.T) {
	n := singleBus(t, 1)
	gens := n.Table(network.Generator)
	w, err := gens.Add("open")
	require.NoError(t, err)
	gens.SetStr(w, network.BusAttr, "b1")
	gens.SetBool(w, network.Extendable, true)

	m, err := Build(n, Context{})
	require.NoError(t, err)
	assert.Nil(t, m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConNominalUpper}),
		"an unbounded expansion limit emits no row")
	require.NotNil(t, m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConNominalLower}))
}

func addCommittable(t *testing.T, n *network.Network) int {
	t.Helper()
	gens := n.Table(network.Generator)
	c, err := gens.Add("coal")
	require.NoError(t, err)
	gens.SetStr(c, network.BusAttr, "b1")
	gens.SetFloat(c, network.Nominal, 200)
	gens.SetFloat(c, network.MinPu, 0.4)
	gens.SetBool(c, network.Committable, true)
	return c
}

func TestCommitmentTransitions(t *testing.T) {
	n := singleBus(t, 3)
	c := addCommittable(t, n)
	n.Table(network.Generator).SetInt(c, network.UpTimeBefore, 1)

	m, err := Build(n, Context{})
	require.NoError(t, err)

	status := m.Var(lp.VarKey{Kind: network.Generator, Attr: lp.VarStatus})
	require.NotNil(t, status)
	assert.True(t, status.Integer)

	su := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConComTransitionUp})
	require.NotNil(t, su)
	require.Len(t, su.Rows, 3)
	// leading snapshot: the unit enters running, so no start-up is needed to stay on
	assert.Equal(t, -1.0, su.Rows[0].RHS)
	assert.Len(t, su.Rows[0].Terms, 2)
	// later snapshots couple to the previous status
	assert.Equal(t, 0.0, su.Rows[1].RHS)
	assert.Len(t, su.Rows[1].Terms, 3)

	sd := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConComTransitionDown})
	require.NotNil(t, sd)
	assert.Equal(t, 1.0, sd.Rows[0].RHS)

	fixedUpper := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConStatusFixedUpper})
	require.NotNil(t, fixedUpper)
	assert.Equal(t, 1.0, fixedUpper.Rows[0].RHS)
}

func TestCommitmentDispatchGating(t *testing.T) {
	n := singleBus(t, 2)
	addCommittable(t, n)

	m, err := Build(n, Context{})
	require.NoError(t, err)

	lower := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConComLower, Variant: "com-non-mod-fix"})
	require.NotNil(t, lower)
	row := lower.Rows[0]
	require.Len(t, row.Terms, 2)
	assert.Equal(t, -0.4*200, row.Terms[1].Coeff, "min_pu scales the full nominal")
	assert.Equal(t, lp.GreaterEqual, row.Sense)

	upper := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConComUpper, Variant: "com-non-mod-fix"})
	require.NotNil(t, upper)
	assert.Equal(t, -200.0, upper.Rows[0].Terms[1].Coeff)
}

func TestLinearizedUCRelaxesStatus(t *testing.T) {
	n := singleBus(t, 2)
	c := addCommittable(t, n)
	gens := n.Table(network.Generator)
	gens.SetFloat(c, network.StartUpCost, 1000)
	gens.SetFloat(c, network.ShutDownCost, 1000)

	m, err := Build(n, Context{LinearizedUC: true})
	require.NoError(t, err)

	status := m.Var(lp.VarKey{Kind: network.Generator, Attr: lp.VarStatus})
	assert.False(t, status.Integer)

	tight := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConComPCurrent, Variant: "com-non-mod-fix"})
	require.NotNil(t, tight, "tightening applies when transition costs match")
}

func TestTighteningSkippedOnUnequalCosts(t *testing.T) {
	n := singleBus(t, 2)
	c := addCommittable(t, n)
	gens := n.Table(network.Generator)
	gens.SetFloat(c, network.StartUpCost, 1000)
	gens.SetFloat(c, network.ShutDownCost, 500)

	m, err := Build(n, Context{LinearizedUC: true})
	require.NoError(t, err)
	assert.Nil(t, m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConComPCurrent, Variant: "com-non-mod-fix"}))
}

func TestMinimumUpTimeWindows(t *testing.T) {
	n := singleBus(t, 4)
	c := addCommittable(t, n)
	n.Table(network.Generator).SetInt(c, network.MinUpTime, 2)

	m, err := Build(n, Context{})
	require.NoError(t, err)

	up := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConComUpTime})
	require.NotNil(t, up)
	require.Len(t, up.Rows, 3, "one row per snapshot after the first")
	// window of two start-ups plus the negated status
	assert.Len(t, up.Rows[1].Terms, 3)
	assert.Equal(t, lp.LessEqual, up.Rows[0].Sense)
}

func TestModularityEquality(t *testing.T) {
	n := singleBus(t, 1)
	gens := n.Table(network.Generator)
	g, err := gens.Add("modular")
	require.NoError(t, err)
	gens.SetStr(g, network.BusAttr, "b1")
	gens.SetBool(g, network.Extendable, true)
	gens.SetFloat(g, network.NominalModule, 50)
	gens.SetFloat(g, network.NominalMax, 400)

	m, err := Build(n, Context{})
	require.NoError(t, err)

	modules := m.Var(lp.VarKey{Kind: network.Generator, Attr: lp.VarModules})
	require.NotNil(t, modules)
	assert.True(t, modules.Integer)

	eq := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConModularity})
	require.NotNil(t, eq)
	row := eq.Rows[0]
	assert.Equal(t, lp.Equal, row.Sense)
	require.Len(t, row.Terms, 2)
	assert.Equal(t, -50.0, row.Terms[1].Coeff)
}

func TestFixedModularCommittableRejectsFractionalModules(t *testing.T) {
	n := singleBus(t, 1)
	c := addCommittable(t, n)
	gens := n.Table(network.Generator)
	gens.SetFloat(c, network.NominalModule, 60) // 200 / 60 is not integral

	_, err := Build(n, Context{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer multiple")
}

func TestFixedModularCommittableModuleCount(t *testing.T) {
	n := singleBus(t, 1)
	c := addCommittable(t, n)
	gens := n.Table(network.Generator)
	gens.SetFloat(c, network.NominalModule, 50) // 200 / 50 = 4 modules

	m, err := Build(n, Context{})
	require.NoError(t, err)

	fixedUpper := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConStatusFixedUpper})
	require.NotNil(t, fixedUpper)
	assert.Equal(t, 4.0, fixedUpper.Rows[0].RHS)
}

func TestRampLimitsFixedGenerator(t *testing.T) {
	n := singleBus(t, 3)
	gens := n.Table(network.Generator)
	g := gens.Row("g1")
	gens.SetFloat(g, network.RampLimitUp, 0.1)
	gens.SetFloat(g, network.RampLimitDown, 0.2)

	m, err := Build(n, Context{})
	require.NoError(t, err)

	up := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConRampUp, Variant: "fix-non-comm"})
	require.NotNil(t, up)
	require.Len(t, up.Rows, 2, "no delta exists for the first snapshot")
	assert.Equal(t, 10.0, up.Rows[0].RHS)
	assert.Len(t, up.Rows[0].Terms, 2)

	down := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConRampDown, Variant: "fix-non-comm"})
	require.NotNil(t, down)
	assert.Equal(t, -20.0, down.Rows[0].RHS)
}

func TestRollingHorizonRampAnchorsOnHistory(t *testing.T) {
	n := singleBus(t, 3)
	gens := n.Table(network.Generator)
	g := gens.Row("g1")
	gens.SetFloat(g, network.RampLimitUp, 0.1)
	gens.SetFloat(g, network.RampLimitDown, 0.2)

	hist := table.NewFrame(3, []string{"g1"})
	hist.Set(0, 0, 42)
	require.NoError(t, n.SetSeries(network.Generator, network.DispatchHistory, hist))

	m, err := Build(n, Context{Start: 1})
	require.NoError(t, err)

	up := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConRampUp, Variant: "fix-non-comm"})
	require.NotNil(t, up)
	require.Len(t, up.Rows, 2, "the leading delta anchors on history instead of being skipped")
	first := up.Rows[0]
	require.Len(t, first.Terms, 1, "the pre-window dispatch is a constant, not a variable")
	assert.Equal(t, 52.0, first.RHS, "history dispatch plus the ramp headroom")
	assert.Len(t, up.Rows[1].Terms, 2)
	assert.Equal(t, 10.0, up.Rows[1].RHS)

	down := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConRampDown, Variant: "fix-non-comm"})
	require.NotNil(t, down)
	assert.Equal(t, 22.0, down.Rows[0].RHS)
	assert.Equal(t, lp.GreaterEqual, down.Rows[0].Sense)
}

func TestRollingHorizonWithoutHistorySkipsLeadingDelta(t *testing.T) {
	n := singleBus(t, 3)
	gens := n.Table(network.Generator)
	gens.SetFloat(gens.Row("g1"), network.RampLimitUp, 0.1)

	m, err := Build(n, Context{Start: 1})
	require.NoError(t, err)

	up := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConRampUp, Variant: "fix-non-comm"})
	require.NotNil(t, up)
	assert.Len(t, up.Rows, 1, "no history, no leading delta")
}

func TestRollingHorizonRecountsCommitmentState(t *testing.T) {
	n := singleBus(t, 3)
	c := addCommittable(t, n)
	n.Table(network.Generator).SetInt(c, network.MinUpTime, 2)

	// the static pre-horizon state says off; the persisted history says on
	hist := table.NewFrame(3, []string{"coal"})
	hist.Set(0, 0, 1)
	require.NoError(t, n.SetSeries(network.Generator, network.StatusHistory, hist))

	m, err := Build(n, Context{Start: 1})
	require.NoError(t, err)

	su := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConComTransitionUp})
	require.NotNil(t, su)
	require.Len(t, su.Rows, 2)
	assert.Equal(t, -1.0, su.Rows[0].RHS, "history shows the unit running before the window")

	sd := m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConComTransitionDown})
	require.NotNil(t, sd)
	assert.Equal(t, 1.0, sd.Rows[0].RHS)
}

func TestRampSkippedWithoutLimits(t *testing.T) {
	n := singleBus(t, 3)
	m, err := Build(n, Context{})
	require.NoError(t, err)
	assert.Nil(t, m.Con(lp.ConKey{Kind: network.Generator, Name: lp.ConRampUp, Variant: "fix-non-comm"}))
}

func TestBalanceErrorOnUnsuppliedBus(t *testing.T) {
	n := singleBus(t, 1)
	_, err := n.Table(network.Bus).Add("island")
	require.NoError(t, err)
	loads := n.Table(network.Load)
	l, err := loads.Add("stranded")
	require.NoError(t, err)
	loads.SetStr(l, network.BusAttr, "island")
	loads.SetFloat(l, network.PSet, 25)

	_, err = Build(n, Context{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "island")
}

func TestIdleBusIsSilentlySkipped(t *testing.T) {
	n := singleBus(t, 1)
	_, err := n.Table(network.Bus).Add("idle")
	require.NoError(t, err)

	m, err := Build(n, Context{})
	require.NoError(t, err)
	balance := m.Con(lp.ConKey{Kind: network.Bus, Name: lp.ConNodalBalance})
	require.NotNil(t, balance)
	assert.Len(t, balance.Rows, 1, "only the loaded bus emits a row")
}
