package models

// RequestStats is the admin dashboard aggregate over service requests.
type RequestStats struct {
	Total      int64              `json:"total"`
	ByStatus   map[string]int64   `json:"by_status"`
	ByType     map[string]int64   `json:"by_type"`
	Revenue    float64            `json:"revenue"`
	AvgRevenue map[string]float64 `json:"avg_revenue_by_type"`
}

// ProviderStats summarizes one provider's completed work.
type ProviderStats struct {
	ProviderID int64   `json:"provider_id"`
	Completed  int64   `json:"completed"`
	Cancelled  int64   `json:"cancelled"`
	Revenue    float64 `json:"revenue"`
}
