package models

// DatapathStatsResponse represents the aggregate datapath counters
type DatapathStatsResponse struct {
	TotalPackets      uint64  `json:"total_packets"`
	PassedPackets     uint64  `json:"passed_packets"`
	DroppedPackets    uint64  `json:"dropped_packets"`
	NonIPPackets      uint64  `json:"non_ip_packets"`
	ParseAnomalies    uint64  `json:"parse_anomalies"`
	ExtHeaderPackets  uint64  `json:"ext_header_packets"`
	DefaultBucketHits uint64  `json:"default_bucket_hits"`
	MapMisses         uint64  `json:"map_misses"`
	DropRate          float64 `json:"drop_rate"`
}

// PortStatsResponse represents the runtime state of one bucket
type PortStatsResponse struct {
	Port         uint16 `json:"port"`
	RateBps      string `json:"rate_bps"`
	BurstBytes   uint32 `json:"burst_bytes"`
	TokenBytes   uint64 `json:"token_bytes"`
	PassedBytes  uint64 `json:"passed_bytes"`
	DroppedBytes uint64 `json:"dropped_bytes"`
}

// PortStatsListResponse wraps the per-port stats
type PortStatsListResponse struct {
	Ports []PortStatsResponse `json:"ports"`
	Count int                 `json:"count"`
}
