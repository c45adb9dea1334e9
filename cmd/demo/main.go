package main

import (
	"flag"
	"fmt"
	"os"

	"gridopt/internal/build"
	"gridopt/internal/lp"
	"gridopt/internal/network"
	"gridopt/internal/table"
)

// Demo:
// - Assemble a three-bus network in code (no YAML)
// - Build the optimization model over a day of hourly snapshots
// - Print the model dimensions and the constraint groups
func main() {
	hours := flag.Int("hours", 24, "Number of hourly snapshots")
	outLP := flag.String("out", "", "Optional path to write the LP file")
	flag.Parse()

	n, err := demoNetwork(*hours)
	if err != nil {
		panic(err)
	}

	m, err := build.Build(n, build.Context{Tangents: 3})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Built model over %d snapshots: %d variables, %d constraint rows\n",
		n.Snapshots().Len(), m.NumVars(), m.NumCons())
	fmt.Println()

	fmt.Printf("%-44s %s\n", "constraint group", "rows")
	for _, g := range m.Constraints() {
		fmt.Printf("%-44s %d\n", g.Key, len(g.Rows))
	}

	if *outLP != "" {
		f, err := os.Create(*outLP)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		if err := lp.WriteLP(f, m); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote LP: %s\n", *outLP)
	}
}

// demoNetwork wires up a small system: a committable coal plant and a gas
// peaker at one bus, extendable wind at another, demand at a third, meshed AC
// lines between them and a storage unit soaking up the wind.
func demoNetwork(hours int) (*network.Network, error) {
	labels := make([]string, hours)
	for i := range labels {
		labels[i] = fmt.Sprintf("2026-01-01 %02d:00", i)
	}
	sns, err := network.NewSnapshots(labels)
	if err != nil {
		return nil, err
	}
	n := network.New(sns)

	buses := n.Table(network.Bus)
	for _, name := range []string{"north", "south", "east"} {
		if _, err := buses.Add(name); err != nil {
			return nil, err
		}
	}

	gens := n.Table(network.Generator)
	coal, err := gens.Add("coal")
	if err != nil {
		return nil, err
	}
	gens.SetStr(coal, network.BusAttr, "north")
	gens.SetFloat(coal, network.Nominal, 300)
	gens.SetFloat(coal, network.MarginalCost, 30)
	gens.SetBool(coal, network.Committable, true)
	gens.SetFloat(coal, network.MinPu, 0.3)
	gens.SetFloat(coal, network.StartUpCost, 4000)
	gens.SetFloat(coal, network.ShutDownCost, 4000)
	gens.SetInt(coal, network.MinUpTime, 4)
	gens.SetInt(coal, network.MinDownTime, 2)
	gens.SetFloat(coal, network.RampLimitUp, 0.5)
	gens.SetFloat(coal, network.RampLimitDown, 0.5)

	gas, err := gens.Add("gas")
	if err != nil {
		return nil, err
	}
	gens.SetStr(gas, network.BusAttr, "north")
	gens.SetFloat(gas, network.Nominal, 200)
	gens.SetFloat(gas, network.MarginalCost, 70)

	wind, err := gens.Add("wind")
	if err != nil {
		return nil, err
	}
	gens.SetStr(wind, network.BusAttr, "south")
	gens.SetBool(wind, network.Extendable, true)
	gens.SetFloat(wind, network.NominalMax, 500)
	gens.SetFloat(wind, network.CapitalCost, 90)
	windPu := table.NewFrame(hours, []string{"wind"})
	for t := 0; t < hours; t++ {
		windPu.Set(t, 0, 0.3+0.4*float64(t%12)/11)
	}
	if err := n.SetSeries(network.Generator, network.MaxPu, windPu); err != nil {
		return nil, err
	}

	loads := n.Table(network.Load)
	demand, err := loads.Add("city")
	if err != nil {
		return nil, err
	}
	loads.SetStr(demand, network.BusAttr, "east")
	pSet := table.NewFrame(hours, []string{"city"})
	for t := 0; t < hours; t++ {
		pSet.Set(t, 0, 250+100*float64(t%24)/23)
	}
	if err := n.SetSeries(network.Load, network.PSet, pSet); err != nil {
		return nil, err
	}

	lines := n.Table(network.Line)
	for _, l := range []struct {
		name, bus0, bus1 string
	}{
		{"north-south", "north", "south"},
		{"south-east", "south", "east"},
		{"east-north", "east", "north"},
	} {
		row, err := lines.Add(l.name)
		if err != nil {
			return nil, err
		}
		lines.SetStr(row, network.Bus0, l.bus0)
		lines.SetStr(row, network.Bus1, l.bus1)
		lines.SetFloat(row, network.Nominal, 400)
		lines.SetFloat(row, network.ReactancePuEff, 0.1)
		lines.SetFloat(row, network.ResistancePuEff, 0.01)
	}

	storage := n.Table(network.StorageUnit)
	battery, err := storage.Add("battery")
	if err != nil {
		return nil, err
	}
	storage.SetStr(battery, network.BusAttr, "south")
	storage.SetFloat(battery, network.Nominal, 100)
	storage.SetFloat(battery, network.MaxHours, 4)
	storage.SetFloat(battery, network.EfficiencyStore, 0.95)
	storage.SetFloat(battery, network.EfficiencyDispatch, 0.95)
	storage.SetBool(battery, network.Cyclic, true)

	return n, nil
}
