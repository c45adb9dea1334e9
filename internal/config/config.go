// Package config loads YAML network descriptions and turns them into the
// in-memory network model a build runs against.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gridopt/internal/network"
	"gridopt/internal/table"
)

// Config is the on-disk network shape (YAML).
type Config struct {
	Snapshots    SnapshotsConfig     `yaml:"snapshots"`
	Options      OptionsConfig       `yaml:"options"`
	Buses        []BusConfig         `yaml:"buses"`
	Generators   []ComponentConfig   `yaml:"generators"`
	Loads        []ComponentConfig   `yaml:"loads"`
	Lines        []ComponentConfig   `yaml:"lines"`
	Transformers []ComponentConfig   `yaml:"transformers"`
	Links        []ComponentConfig   `yaml:"links"`
	StorageUnits []ComponentConfig   `yaml:"storage_units"`
	Stores       []ComponentConfig   `yaml:"stores"`
}

type SnapshotsConfig struct {
	Labels           []string  `yaml:"labels"`
	Periods          []int     `yaml:"periods"`
	ObjectiveWeights []float64 `yaml:"objective_weights"`
	StoreWeights     []float64 `yaml:"store_weights"`
}

// OptionsConfig carries build options that belong to the study, not to any
// single component.
type OptionsConfig struct {
	LinearizedUC bool `yaml:"linearized_uc"`
	LossTangents int  `yaml:"loss_tangents"`
	WindowStart  int  `yaml:"window_start"`
	WindowEnd    int  `yaml:"window_end"`
}

type BusConfig struct {
	Name    string `yaml:"name"`
	Carrier string `yaml:"carrier"`
}

// ComponentConfig is one asset of any non-bus kind. Scalar attributes go
// under attrs/flags/strings by their canonical names; per-snapshot values go
// under series and must span the whole snapshot horizon.
type ComponentConfig struct {
	Name    string               `yaml:"name"`
	Bus     string               `yaml:"bus"`
	Bus0    string               `yaml:"bus0"`
	Bus1    string               `yaml:"bus1"`
	Bus2    string               `yaml:"bus2"`
	Bus3    string               `yaml:"bus3"`
	Carrier string               `yaml:"carrier"`
	Attrs   map[string]float64   `yaml:"attrs"`
	Flags   map[string]bool      `yaml:"flags"`
	Ints    map[string]int       `yaml:"ints"`
	Series  map[string][]float64 `yaml:"series"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked parses the YAML but does not validate it. Useful for
// debugging partial files.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes a YAML network description without validating it.
func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Snapshots.Labels) == 0 {
		return errors.New("snapshots.labels is required")
	}
	if len(c.Snapshots.Periods) > 0 && len(c.Snapshots.Periods) != len(c.Snapshots.Labels) {
		return fmt.Errorf("snapshots.periods has %d entries, want %d", len(c.Snapshots.Periods), len(c.Snapshots.Labels))
	}
	for _, w := range [][]float64{c.Snapshots.ObjectiveWeights, c.Snapshots.StoreWeights} {
		if len(w) > 0 && len(w) != len(c.Snapshots.Labels) {
			return fmt.Errorf("snapshot weights have %d entries, want %d", len(w), len(c.Snapshots.Labels))
		}
	}
	if c.Options.LossTangents < 0 {
		return errors.New("options.loss_tangents must not be negative")
	}

	buses := make(map[string]bool, len(c.Buses))
	for _, b := range c.Buses {
		if b.Name == "" {
			return errors.New("bus without a name")
		}
		if buses[b.Name] {
			return fmt.Errorf("duplicate bus %q", b.Name)
		}
		buses[b.Name] = true
	}

	check := func(kind string, comps []ComponentConfig, onePort bool) error {
		seen := make(map[string]bool, len(comps))
		for _, cc := range comps {
			if cc.Name == "" {
				return fmt.Errorf("%s without a name", kind)
			}
			if seen[cc.Name] {
				return fmt.Errorf("duplicate %s %q", kind, cc.Name)
			}
			seen[cc.Name] = true
			if onePort {
				if !buses[cc.Bus] {
					return fmt.Errorf("%s %q: unknown bus %q", kind, cc.Name, cc.Bus)
				}
			} else {
				if !buses[cc.Bus0] || !buses[cc.Bus1] {
					return fmt.Errorf("%s %q: unknown bus %q or %q", kind, cc.Name, cc.Bus0, cc.Bus1)
				}
			}
			for name, vals := range cc.Series {
				if _, ok := network.ParseAttr(name); !ok {
					return fmt.Errorf("%s %q: unknown series attribute %q", kind, cc.Name, name)
				}
				if len(vals) != len(c.Snapshots.Labels) {
					return fmt.Errorf("%s %q: series %q has %d values, want %d",
						kind, cc.Name, name, len(vals), len(c.Snapshots.Labels))
				}
			}
			for name := range cc.Attrs {
				if _, ok := network.ParseAttr(name); !ok {
					return fmt.Errorf("%s %q: unknown attribute %q", kind, cc.Name, name)
				}
			}
		}
		return nil
	}
	for _, group := range []struct {
		kind    string
		comps   []ComponentConfig
		onePort bool
	}{
		{"generator", c.Generators, true},
		{"load", c.Loads, true},
		{"line", c.Lines, false},
		{"transformer", c.Transformers, false},
		{"link", c.Links, false},
		{"storage_unit", c.StorageUnits, true},
		{"store", c.Stores, true},
	} {
		if err := check(group.kind, group.comps, group.onePort); err != nil {
			return err
		}
	}
	return nil
}

// Network materializes the validated configuration into component tables and
// attribute series.
func (c *Config) Network() (*network.Network, error) {
	var sns *network.Snapshots
	var err error
	if len(c.Snapshots.Periods) > 0 {
		sns, err = network.NewPeriodSnapshots(c.Snapshots.Labels, c.Snapshots.Periods)
	} else {
		sns, err = network.NewSnapshots(c.Snapshots.Labels)
	}
	if err != nil {
		return nil, err
	}
	objW, storeW := c.Snapshots.ObjectiveWeights, c.Snapshots.StoreWeights
	if len(objW) == 0 {
		objW = nil
	}
	if len(storeW) == 0 {
		storeW = nil
	}
	if err := sns.SetWeights(objW, storeW); err != nil {
		return nil, err
	}

	n := network.New(sns)
	bt := n.Table(network.Bus)
	for _, b := range c.Buses {
		row, err := bt.Add(b.Name)
		if err != nil {
			return nil, err
		}
		bt.SetStr(row, network.Carrier, b.Carrier)
	}

	for _, group := range []struct {
		kind  network.Kind
		comps []ComponentConfig
	}{
		{network.Generator, c.Generators},
		{network.Load, c.Loads},
		{network.Line, c.Lines},
		{network.Transformer, c.Transformers},
		{network.Link, c.Links},
		{network.StorageUnit, c.StorageUnits},
		{network.Store, c.Stores},
	} {
		if err := applyComponents(n, group.kind, group.comps); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func applyComponents(n *network.Network, k network.Kind, comps []ComponentConfig) error {
	if len(comps) == 0 {
		return nil
	}
	t := n.Table(k)
	seriesCols := map[network.Attr]map[string][]float64{}

	for _, cc := range comps {
		row, err := t.Add(cc.Name)
		if err != nil {
			return err
		}
		if cc.Bus != "" {
			t.SetStr(row, network.BusAttr, cc.Bus)
		}
		if cc.Bus0 != "" {
			t.SetStr(row, network.Bus0, cc.Bus0)
		}
		if cc.Bus1 != "" {
			t.SetStr(row, network.Bus1, cc.Bus1)
		}
		if cc.Bus2 != "" {
			t.SetStr(row, network.Bus2, cc.Bus2)
		}
		if cc.Bus3 != "" {
			t.SetStr(row, network.Bus3, cc.Bus3)
		}
		if cc.Carrier != "" {
			t.SetStr(row, network.Carrier, cc.Carrier)
		}
		for name, v := range cc.Attrs {
			a, _ := network.ParseAttr(name)
			t.SetFloat(row, a, v)
		}
		for name, v := range cc.Flags {
			a, ok := network.ParseAttr(name)
			if !ok {
				return fmt.Errorf("%s %q: unknown flag %q", k, cc.Name, name)
			}
			t.SetBool(row, a, v)
		}
		for name, v := range cc.Ints {
			a, ok := network.ParseAttr(name)
			if !ok {
				return fmt.Errorf("%s %q: unknown integer attribute %q", k, cc.Name, name)
			}
			t.SetInt(row, a, v)
		}
		for name, vals := range cc.Series {
			a, _ := network.ParseAttr(name)
			cols, ok := seriesCols[a]
			if !ok {
				cols = map[string][]float64{}
				seriesCols[a] = cols
			}
			cols[cc.Name] = vals
		}
	}

	horizon := n.Snapshots().Len()
	for a, cols := range seriesCols {
		assets := make([]string, 0, len(cols))
		for _, cc := range comps {
			if _, ok := cols[cc.Name]; ok {
				assets = append(assets, cc.Name)
			}
		}
		f := table.NewFrame(horizon, assets)
		for j, asset := range assets {
			for ti, v := range cols[asset] {
				f.Set(ti, j, v)
			}
		}
		if err := n.SetSeries(k, a, f); err != nil {
			return err
		}
	}
	return nil
}
