package domain

import "time"

// Event represents a Polymarket event: a group of one or more related
// markets sharing a theme (e.g. "presidential-election-winner-2028").
// The slug is the stable human-readable key; EventID is the identifier
// assigned by the Gamma API.
type Event struct {
	Slug        string     `json:"slug"`
	EventID     string     `json:"event_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	NegRisk     bool       `json:"neg_risk"`
	Active      bool       `json:"active"`
	Closed      bool       `json:"closed"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
