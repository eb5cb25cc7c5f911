package models

// RuleResponse represents one active rate-limit rule. Port 0 is the
// default bucket.
type RuleResponse struct {
	Port       uint16 `json:"port"`
	RateBps    string `json:"rate_bps"`
	BurstBytes uint32 `json:"burst_bytes"`
	Default    bool   `json:"default"`
}

// RuleListResponse wraps the active rule set
type RuleListResponse struct {
	Rules []RuleResponse `json:"rules"`
	Count int            `json:"count"`
}
