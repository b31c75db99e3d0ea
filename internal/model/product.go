// Package model holds the records shared across the scraping pipeline.
package model

import "time"

// AvailabilityStatus is the outcome of one availability check.
type AvailabilityStatus string

const (
	StatusAvailable    AvailabilityStatus = "available"
	StatusNotAvailable AvailabilityStatus = "not_available"
	StatusUnknown      AvailabilityStatus = "unknown"
	StatusError        AvailabilityStatus = "error"
)

// Product is one discovered listing. Created by the extractor,
// enriched by the availability checker, then treated as immutable.
type Product struct {
	Title              string             `json:"title"`
	URL                string             `json:"url"`
	ImageURL           string             `json:"image_url,omitempty"`
	Price              string             `json:"price,omitempty"`
	PriceNumeric       *float64           `json:"price_numeric,omitempty"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status"`
	StatusReason       string             `json:"status_reason,omitempty"`
	IsAvailable        bool               `json:"is_available"`
	DiscoveredAt       time.Time          `json:"discovered_at"`
}

// NewProduct returns a product with only the title set and the
// availability still unknown.
func NewProduct(title string) *Product {
	return &Product{
		Title:              title,
		AvailabilityStatus: StatusUnknown,
		DiscoveredAt:       time.Now().UTC(),
	}
}

// SetAvailability records the check outcome and keeps the derived
// IsAvailable flag consistent with it.
func (p *Product) SetAvailability(status AvailabilityStatus, reason string) {
	p.AvailabilityStatus = status
	p.StatusReason = reason
	p.IsAvailable = status == StatusAvailable
}

// RunResult is the output batch of one scrape run.
type RunResult struct {
	RunID        string     `json:"run_id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
	Products     []*Product `json:"products"`
	TotalChecked int        `json:"total_checked"`
	SoldOutCount int        `json:"sold_out_count"`
}

// Available returns the subset of products that can be bought now.
func (r *RunResult) Available() []*Product {
	var out []*Product
	for _, p := range r.Products {
		if p.IsAvailable {
			out = append(out, p)
		}
	}
	return out
}
