package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive  MarketStatus = "active"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusUnknown MarketStatus = "unknown"
)

// Market represents a single binary Polymarket market within an event.
// YesTokenID and NoTokenID are the ERC-1155 outcome-token identifiers
// (76-digit decimal strings) that on-chain fills are attributed against;
// they are distinct and each maps to at most one market.
type Market struct {
	Slug            string       `json:"slug"`
	EventSlug       string       `json:"event_slug"`
	Question        string       `json:"question"`
	Description     string       `json:"description,omitempty"`
	ConditionID     string       `json:"condition_id"`
	QuestionID      string       `json:"question_id,omitempty"`
	Oracle          string       `json:"oracle,omitempty"`
	CollateralToken string       `json:"collateral_token,omitempty"`
	YesTokenID      string       `json:"yes_token_id"`
	NoTokenID       string       `json:"no_token_id"`
	NegRisk         bool         `json:"neg_risk"`
	Status          MarketStatus `json:"status"`
	CreatedAt       *time.Time   `json:"created_at,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// OutcomeForToken reports which side of the market a token ID belongs to:
// "YES", "NO", or "UNKNOWN" when the token is not one of the market's pair.
func (m Market) OutcomeForToken(tokenID string) string {
	switch tokenID {
	case m.YesTokenID:
		return "YES"
	case m.NoTokenID:
		return "NO"
	default:
		return "UNKNOWN"
	}
}
