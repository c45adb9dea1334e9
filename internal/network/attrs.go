package network

import "math"

// Attr enumerates component attributes. Attributes are generic over kinds:
// Nominal stands for p_nom, s_nom or e_nom depending on the component, and
// the per-unit bounds for p_min_pu/p_max_pu, s_max_pu or e_min_pu/e_max_pu.
type Attr uint8

const (
	// float attributes
	Nominal Attr = iota
	NominalMin
	NominalMax
	NominalModule // size of one capacity block; 0 = not modular
	NominalSet    // pin extendable capacity to this value (NaN = unset)
	MinPu
	MaxPu
	MarginalCost
	CapitalCost
	StartUpCost
	ShutDownCost
	RampLimitUp        // per unit of nominal per snapshot; NaN = unlimited
	RampLimitDown      // NaN = unlimited
	RampLimitStartUp   // per unit, applies at start-up transitions
	RampLimitShutDown  // per unit, applies at shut-down transitions
	StandingLoss       // per elapsed hour
	EfficiencyStore    // storage unit charge efficiency
	EfficiencyDispatch // storage unit discharge efficiency
	Efficiency         // link port-1 efficiency
	Efficiency2        // link port-2 efficiency
	Efficiency3        // link port-3 efficiency
	Inflow
	StateInitial // initial state of charge / store energy
	MaxHours     // storage unit energy capacity per MW of power capacity
	Sign         // injection sign override (generators +1, loads -1)
	PSet         // fixed dispatch value (NaN = free)
	Reactance
	Resistance
	ReactancePuEff
	ResistancePuEff
	Lifetime // years; +Inf = never decommissioned
	DispatchHistory
	StatusHistory

	// bool attributes
	Extendable
	Committable
	Active
	Cyclic
	CyclicPerPeriod
	InitialPerPeriod

	// int attributes
	BuildYear
	MinUpTime
	MinDownTime
	UpTimeBefore
	DownTimeBefore

	// string attributes
	BusAttr
	Bus0
	Bus1
	Bus2
	Bus3
	Carrier
)

var attrNames = map[Attr]string{
	Nominal:            "nom",
	NominalMin:         "nom_min",
	NominalMax:         "nom_max",
	NominalModule:      "nom_mod",
	NominalSet:         "nom_set",
	MinPu:              "min_pu",
	MaxPu:              "max_pu",
	MarginalCost:       "marginal_cost",
	CapitalCost:        "capital_cost",
	StartUpCost:        "start_up_cost",
	ShutDownCost:       "shut_down_cost",
	RampLimitUp:        "ramp_limit_up",
	RampLimitDown:      "ramp_limit_down",
	RampLimitStartUp:   "ramp_limit_start_up",
	RampLimitShutDown:  "ramp_limit_shut_down",
	StandingLoss:       "standing_loss",
	EfficiencyStore:    "efficiency_store",
	EfficiencyDispatch: "efficiency_dispatch",
	Efficiency:         "efficiency",
	Efficiency2:        "efficiency2",
	Efficiency3:        "efficiency3",
	Inflow:             "inflow",
	StateInitial:       "state_initial",
	MaxHours:           "max_hours",
	Sign:               "sign",
	PSet:               "p_set",
	Reactance:          "x",
	Resistance:         "r",
	ReactancePuEff:     "x_pu_eff",
	ResistancePuEff:    "r_pu_eff",
	Lifetime:           "lifetime",
	DispatchHistory:    "dispatch_history",
	StatusHistory:      "status_history",
	Extendable:         "extendable",
	Committable:        "committable",
	Active:             "active",
	Cyclic:             "cyclic",
	CyclicPerPeriod:    "cyclic_per_period",
	InitialPerPeriod:   "initial_per_period",
	BuildYear:          "build_year",
	MinUpTime:          "min_up_time",
	MinDownTime:        "min_down_time",
	UpTimeBefore:       "up_time_before",
	DownTimeBefore:     "down_time_before",
	BusAttr:            "bus",
	Bus0:               "bus0",
	Bus1:               "bus1",
	Bus2:               "bus2",
	Bus3:               "bus3",
	Carrier:            "carrier",
}

func (a Attr) String() string { return attrNames[a] }

var attrsByName = func() map[string]Attr {
	m := make(map[string]Attr, len(attrNames))
	for a, name := range attrNames {
		m[name] = a
	}
	return m
}()

// ParseAttr resolves an attribute by its canonical name.
func ParseAttr(name string) (Attr, bool) {
	a, ok := attrsByName[name]
	return a, ok
}

// floatDefaults carries the column default used when an attribute was never
// set for a table. Attributes absent here default to zero.
var floatDefaults = map[Attr]float64{
	NominalMax:         math.Inf(1),
	NominalSet:         math.NaN(),
	MaxPu:              1,
	RampLimitUp:        math.NaN(),
	RampLimitDown:      math.NaN(),
	RampLimitStartUp:   1,
	RampLimitShutDown:  1,
	EfficiencyStore:    1,
	EfficiencyDispatch: 1,
	Efficiency:         1,
	Efficiency2:        1,
	Efficiency3:        1,
	MaxHours:           1,
	Sign:               1,
	PSet:               math.NaN(),
	Lifetime:           math.Inf(1),
}

var boolDefaults = map[Attr]bool{
	Active: true,
}

// FloatDefault returns the column default for a float attribute, adjusted
// per kind where the generic default does not fit.
func FloatDefault(k Kind, a Attr) float64 {
	if a == Sign && k == Load {
		return -1
	}
	if a == MinPu && (k == Line || k == Transformer) {
		// passive branches are symmetric: lower bound derives from MaxPu
		return math.NaN()
	}
	if a == MinPu && k == StorageUnit {
		// full charging power available by default
		return -1
	}
	if v, ok := floatDefaults[a]; ok {
		return v
	}
	return 0
}

// BoolDefault returns the column default for a bool attribute.
func BoolDefault(a Attr) bool { return boolDefaults[a] }
