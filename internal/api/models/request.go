package models

// BuildRequest represents the request body for building a model.
type BuildRequest struct {
	// NetworkYAML is the network description, same format as the CLI config.
	NetworkYAML string       `json:"network_yaml" binding:"required"`
	Options     BuildOptions `json:"options,omitempty"`
}

// BuildOptions carries the per-request build knobs.
type BuildOptions struct {
	LinearizedUC bool `json:"linearized_uc,omitempty"`
	LossTangents int  `json:"loss_tangents,omitempty"`
	WindowStart  int  `json:"window_start,omitempty"`
	WindowEnd    int  `json:"window_end,omitempty"` // 0 = full horizon
	IncludeLP    bool `json:"include_lp,omitempty"` // return the LP file text
}

// ValidateRequest represents the request body for validating a network
// description without building it.
type ValidateRequest struct {
	NetworkYAML string `json:"network_yaml" binding:"required"`
}
