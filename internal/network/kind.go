package network

// Kind enumerates the network component types. The set is fixed: constraint
// builders dispatch over these variants instead of probing attribute tables
// at runtime.
type Kind uint8

const (
	Bus Kind = iota
	Generator
	Load
	Line
	Transformer
	Link
	StorageUnit
	Store
)

// AllKinds lists every component kind in declaration order.
var AllKinds = []Kind{Bus, Generator, Load, Line, Transformer, Link, StorageUnit, Store}

func (k Kind) String() string {
	switch k {
	case Bus:
		return "Bus"
	case Generator:
		return "Generator"
	case Load:
		return "Load"
	case Line:
		return "Line"
	case Transformer:
		return "Transformer"
	case Link:
		return "Link"
	case StorageUnit:
		return "StorageUnit"
	case Store:
		return "Store"
	}
	return "Unknown"
}

// Capabilities describes what a component kind supports. Builders check this
// once at build entry instead of re-probing attribute tables per routine.
type Capabilities struct {
	// OnePort is true for components attached to a single bus.
	OnePort bool
	// PassiveBranch marks impedance branches subject to Kirchhoff voltage
	// constraints and loss linearization.
	PassiveBranch bool
	// HasNominal is true for components with a nominal capacity that can be
	// fixed or extendable.
	HasNominal bool
	// HasCommitment enables the unit-commitment constraint family.
	HasCommitment bool
	// HasRamp enables ramp-rate limits on dispatch.
	HasRamp bool
	// InjectionSign is the default sign of the component's power injection at
	// its bus (one-port components only).
	InjectionSign float64
}

var capabilities = map[Kind]Capabilities{
	Bus:         {},
	Generator:   {OnePort: true, HasNominal: true, HasCommitment: true, HasRamp: true, InjectionSign: 1},
	Load:        {OnePort: true, InjectionSign: -1},
	Line:        {PassiveBranch: true, HasNominal: true},
	Transformer: {PassiveBranch: true, HasNominal: true},
	Link:        {HasNominal: true, HasCommitment: true, HasRamp: true},
	StorageUnit: {OnePort: true, HasNominal: true},
	Store:       {OnePort: true, HasNominal: true, InjectionSign: 1},
}

// Caps returns the capability set of a kind.
func (k Kind) Caps() Capabilities { return capabilities[k] }
