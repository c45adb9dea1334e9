package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// BuildResponse represents a completed model build
type BuildResponse struct {
	Status  string         `json:"status"`
	Summary BuildSummary   `json:"summary"`
	Groups  []GroupSummary `json:"constraint_groups"`
	LP      string         `json:"lp,omitempty"`
}

// BuildSummary contains the aggregated model dimensions
type BuildSummary struct {
	Variables   int `json:"variables"`
	Constraints int `json:"constraints"`
	Snapshots   int `json:"snapshots"`
	Objective   int `json:"objective_terms"`
}

// GroupSummary counts the rows of one constraint group
type GroupSummary struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// ValidateResponse reports the outcome of a validation-only request
type ValidateResponse struct {
	Status     string         `json:"status"`
	Components map[string]int `json:"components"`
	Snapshots  int            `json:"snapshots"`
}

// ComponentInfo describes one component kind and its capabilities
type ComponentInfo struct {
	Kind          string `json:"kind"`
	OnePort       bool   `json:"one_port"`
	PassiveBranch bool   `json:"passive_branch"`
	HasNominal    bool   `json:"has_nominal"`
	HasCommitment bool   `json:"has_commitment"`
	HasRamp       bool   `json:"has_ramp"`
}
