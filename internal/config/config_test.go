package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridopt/internal/network"
)

const demoYAML = `
snapshots:
  labels: [t0, t1, t2]
  objective_weights: [2, 1, 1]
options:
  loss_tangents: 3
  linearized_uc: true
buses:
  - name: north
  - name: south
    carrier: AC
generators:
  - name: coal
    bus: north
    attrs:
      nom: 300
      marginal_cost: 30
      min_pu: 0.3
    flags:
      committable: true
    ints:
      min_up_time: 4
  - name: wind
    bus: south
    flags:
      extendable: true
    attrs:
      nom_max: 500
      capital_cost: 90
    series:
      max_pu: [0.3, 0.7, 0.5]
loads:
  - name: city
    bus: south
    series:
      p_set: [250, 300, 280]
lines:
  - name: north-south
    bus0: north
    bus1: south
    attrs:
      nom: 400
      x_pu_eff: 0.1
`

func parseDemo(t *testing.T) *Config {
	t.Helper()
	c, err := Parse([]byte(demoYAML))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	return c
}

func TestParseAndValidate(t *testing.T) {
	c := parseDemo(t)
	assert.Equal(t, 3, c.Options.LossTangents)
	assert.True(t, c.Options.LinearizedUC)
	assert.Len(t, c.Generators, 2)
}

func TestNetworkMaterialization(t *testing.T) {
	c := parseDemo(t)
	n, err := c.Network()
	require.NoError(t, err)

	assert.Equal(t, 3, n.Snapshots().Len())
	assert.Equal(t, 2.0, n.Snapshots().ObjectiveWeight(0))
	assert.Equal(t, 1.0, n.Snapshots().StoreWeight(0), "unset weights default to one")

	gens := n.Table(network.Generator)
	coal := gens.Row("coal")
	require.GreaterOrEqual(t, coal, 0)
	assert.Equal(t, 300.0, gens.Float(network.Nominal)[coal])
	assert.Equal(t, 0.3, gens.Float(network.MinPu)[coal])
	assert.True(t, gens.Bool(network.Committable)[coal])
	assert.Equal(t, 4, gens.Int(network.MinUpTime)[coal])
	assert.Equal(t, "north", gens.Str(network.BusAttr)[coal])

	wind := gens.Row("wind")
	assert.True(t, gens.Bool(network.Extendable)[wind])

	pu := n.Series(network.Generator, network.MaxPu)
	require.NotNil(t, pu)
	j := pu.Col("wind")
	require.GreaterOrEqual(t, j, 0)
	assert.Equal(t, 0.7, pu.At(1, j))
	assert.Equal(t, -1, pu.Col("coal"), "static assets stay out of the series frame")

	pset := n.Series(network.Load, network.PSet)
	require.NotNil(t, pset)
	assert.Equal(t, 300.0, pset.At(1, pset.Col("city")))

	lines := n.Table(network.Line)
	ns := lines.Row("north-south")
	assert.Equal(t, "north", lines.Str(network.Bus0)[ns])
	assert.Equal(t, 0.1, lines.Float(network.ReactancePuEff)[ns])
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing snapshots",
			yaml: "buses:\n  - name: b1\n",
			want: "snapshots.labels",
		},
		{
			name: "unknown bus",
			yaml: `
snapshots:
  labels: [t0]
buses:
  - name: b1
generators:
  - name: g1
    bus: nowhere
`,
			want: `unknown bus "nowhere"`,
		},
		{
			name: "duplicate component",
			yaml: `
snapshots:
  labels: [t0]
buses:
  - name: b1
generators:
  - name: g1
    bus: b1
  - name: g1
    bus: b1
`,
			want: "duplicate generator",
		},
		{
			name: "duplicate bus",
			yaml: `
snapshots:
  labels: [t0]
buses:
  - name: b1
  - name: b1
`,
			want: "duplicate bus",
		},
		{
			name: "series length mismatch",
			yaml: `
snapshots:
  labels: [t0, t1]
buses:
  - name: b1
loads:
  - name: l1
    bus: b1
    series:
      p_set: [10]
`,
			want: "has 1 values, want 2",
		},
		{
			name: "unknown attribute",
			yaml: `
snapshots:
  labels: [t0]
buses:
  - name: b1
generators:
  - name: g1
    bus: b1
    attrs:
      power_level: 9000
`,
			want: `unknown attribute "power_level"`,
		},
		{
			name: "weights length mismatch",
			yaml: `
snapshots:
  labels: [t0, t1]
  objective_weights: [1]
buses:
  - name: b1
`,
			want: "snapshot weights",
		},
		{
			name: "negative tangents",
			yaml: `
snapshots:
  labels: [t0]
options:
  loss_tangents: -1
`,
			want: "loss_tangents",
		},
		{
			name: "branch without buses",
			yaml: `
snapshots:
  labels: [t0]
buses:
  - name: b1
lines:
  - name: l1
    bus0: b1
`,
			want: "unknown bus",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Parse([]byte(tc.yaml))
			require.NoError(t, err)
			err = c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("snapshots: [this is: not valid"))
	assert.Error(t, err)
}

func TestNetworkFromPeriodSnapshots(t *testing.T) {
	c, err := Parse([]byte(`
snapshots:
  labels: [t0, t1]
  periods: [2030, 2040]
buses:
  - name: b1
`))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	n, err := c.Network()
	require.NoError(t, err)
	assert.True(t, n.MultiPeriod())
	assert.Equal(t, []int{2030, 2040}, n.Snapshots().Periods())
}
