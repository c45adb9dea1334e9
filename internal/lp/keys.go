package lp

import "gridopt/internal/network"

// VarAttr enumerates the decision-variable families. Together with the
// component kind it forms the typed key replacing string-parsed
// "{component}-{attribute}" addressing, while keeping the same rendered names
// for solver files and reporting.
type VarAttr uint8

const (
	VarDispatch VarAttr = iota // p or s depending on the kind
	VarCharge                  // storage unit charging power
	VarState                   // storage unit state of charge
	VarEnergy                  // store energy level
	VarNominal                 // p_nom / s_nom / e_nom
	VarStatus
	VarStartUp
	VarShutDown
	VarModules // number of installed capacity modules
	VarSpill
	VarLoss
)

// VarKey addresses a variable set in the model.
type VarKey struct {
	Kind network.Kind
	Attr VarAttr
}

func (k VarKey) String() string {
	return k.Kind.String() + "-" + k.AttrName()
}

func (k VarKey) AttrName() string {
	switch k.Attr {
	case VarDispatch:
		switch k.Kind {
		case network.Line, network.Transformer:
			return "s"
		case network.StorageUnit:
			return "p_dispatch"
		default:
			return "p"
		}
	case VarCharge:
		return "p_store"
	case VarState:
		return "state_of_charge"
	case VarEnergy:
		return "e"
	case VarNominal:
		switch k.Kind {
		case network.Line, network.Transformer:
			return "s_nom"
		case network.Store:
			return "e_nom"
		default:
			return "p_nom"
		}
	case VarStatus:
		return "status"
	case VarStartUp:
		return "start_up"
	case VarShutDown:
		return "shut_down"
	case VarModules:
		return "n_mod"
	case VarSpill:
		return "spill"
	case VarLoss:
		return "loss"
	}
	return "unknown"
}

// ConName labels a constraint family within a component kind. The constants
// keep the naming convention external reporting relies on without string
// parsing inside the builder.
type ConName string

const (
	ConFixLower          ConName = "fix-non-comm-lower"
	ConFixUpper          ConName = "fix-non-comm-upper"
	ConExtLower          ConName = "ext-non-comm-lower"
	ConExtUpper          ConName = "ext-non-comm-upper"
	ConNominalLower      ConName = "ext-nom-lower"
	ConNominalUpper      ConName = "ext-nom-upper"
	ConNominalSet        ConName = "nom_set"
	ConDispatchSet       ConName = "p_set"
	ConModularity        ConName = "modularity"
	ConStatusFixedUpper  ConName = "status-fixed-upper"
	ConStartFixedUpper   ConName = "start_up-fixed-upper"
	ConStopFixedUpper    ConName = "shut_down-fixed-upper"
	ConStatusVarUpper    ConName = "status-variable-upper"
	ConStartVarUpper     ConName = "start_up-variable-upper"
	ConStopVarUpper      ConName = "shut_down-variable-upper"
	ConNodalBalance      ConName = "nodal_balance"
	ConKirchhoffVoltage  ConName = "kirchhoff-voltage-law"
	ConEnergyBalance     ConName = "energy_balance"
	ConLossUpper         ConName = "loss_upper"
	ConLossTangents      ConName = "loss_tangents"
	ConRampUp            ConName = "ramp_limit_up"
	ConRampDown          ConName = "ramp_limit_down"
	ConComLower          ConName = "com-p-lower"
	ConComUpper          ConName = "com-p-upper"
	ConComTransitionUp   ConName = "com-transition-start-up"
	ConComTransitionDown ConName = "com-transition-shut-down"
	ConComUpTime         ConName = "com-up-time"
	ConComDownTime       ConName = "com-down-time"
	ConComMustStayUp     ConName = "com-must-stay-up"
	ConComMustStayDown   ConName = "com-must-stay-down"
	ConComPBefore        ConName = "com-p-before"
	ConComPCurrent       ConName = "com-p-current"
	ConComPartlyStart    ConName = "com-partly-start-up"
	ConComPartlyStop     ConName = "com-partly-shut-down"
)

// ConKey addresses a constraint set in the model. Partition variants are
// distinguished with the Variant suffix (for example "mod" vs "non-mod-fix"
// commitment partitions) to keep solver diagnostics legible.
type ConKey struct {
	Kind    network.Kind
	Name    ConName
	Variant string
}

func (k ConKey) String() string {
	s := k.Kind.String() + "-" + string(k.Name)
	if k.Variant != "" {
		s += "-" + k.Variant
	}
	return s
}
