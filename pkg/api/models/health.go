package models

// HealthResponse represents a simple health check result
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DataPlaneStatus describes the state of the XDP datapath
type DataPlaneStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse represents the detailed agent status
type StatusResponse struct {
	Status     string                 `json:"status"`
	Interface  string                 `json:"interface"`
	XDPMode    string                 `json:"xdp_mode"`
	DataPlane  DataPlaneStatus        `json:"data_plane"`
	Statistics *DatapathStatsResponse `json:"statistics,omitempty"`
	RuleCount  int                    `json:"rule_count"`
	Uptime     int64                  `json:"uptime_seconds"`
}
