package gamma

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIEvent represents an event as returned by the Gamma API. An event groups
// one or more related markets.
type APIEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	NegRisk     bool        `json:"negRisk"`
	Active      flexBool    `json:"active"`
	Closed      bool        `json:"closed"`
	Markets     []APIMarket `json:"markets"`
	CreatedAt   string      `json:"createdAt"`
}

// ToDomainEvent converts an APIEvent to a domain.Event. The slug argument is
// used when the response omits its own (seen on the query-form endpoint).
func (e *APIEvent) ToDomainEvent(slug string) domain.Event {
	ev := domain.Event{
		Slug:        e.Slug,
		EventID:     e.ID,
		Title:       e.Title,
		Description: e.Description,
		NegRisk:     e.NegRisk,
		Active:      bool(e.Active),
		Closed:      e.Closed,
	}
	if ev.Slug == "" {
		ev.Slug = slug
	}
	if t, err := time.Parse(time.RFC3339, e.CreatedAt); err == nil {
		ev.CreatedAt = &t
	}
	return ev
}

// APIMarket represents a market as returned by the Gamma API. Outcomes and
// ClobTokenIDs arrive as JSON-encoded strings, e.g. "[\"Yes\",\"No\"]".
type APIMarket struct {
	ID              string   `json:"id"`
	Question        string   `json:"question"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	ConditionID     string   `json:"conditionId"`
	QuestionID      string   `json:"questionId"`
	Oracle          string   `json:"oracle"`
	CollateralToken string   `json:"collateralToken"`
	Outcomes        string   `json:"outcomes"`
	ClobTokenIDs    string   `json:"clobTokenIds"`
	NegRisk         bool     `json:"negRisk"`
	Active          flexBool `json:"active"`
	Closed          bool     `json:"closed"`
	CreatedAt       string   `json:"createdAt"`
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market, enforcing the
// market invariant: slug, condition id, and both outcome-token ids must be
// present. A violation returns domain.ErrMalformedMetadata so discovery can
// skip the market and continue with its siblings.
func (m *APIMarket) ToDomainMarket(eventSlug string, eventNegRisk bool, defaultCollateral string) (domain.Market, error) {
	if m.Slug == "" || m.ConditionID == "" {
		return domain.Market{}, fmt.Errorf("%w: market id=%s missing slug or conditionId", domain.ErrMalformedMetadata, m.ID)
	}

	yesToken, noToken, err := m.outcomeTokens()
	if err != nil {
		return domain.Market{}, fmt.Errorf("%w: market %s: %v", domain.ErrMalformedMetadata, m.Slug, err)
	}

	dm := domain.Market{
		Slug:            m.Slug,
		EventSlug:       eventSlug,
		Question:        m.Question,
		Description:     m.Description,
		ConditionID:     m.ConditionID,
		QuestionID:      m.QuestionID,
		Oracle:          m.Oracle,
		CollateralToken: m.CollateralToken,
		YesTokenID:      yesToken,
		NoTokenID:       noToken,
		NegRisk:         m.NegRisk || eventNegRisk,
	}
	if dm.CollateralToken == "" {
		dm.CollateralToken = defaultCollateral
	}

	if m.Closed {
		dm.Status = domain.MarketStatusClosed
	} else if bool(m.Active) {
		dm.Status = domain.MarketStatusActive
	} else {
		dm.Status = domain.MarketStatusUnknown
	}

	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		dm.CreatedAt = &t
	}

	return dm, nil
}

// outcomeTokens pairs the market's outcome labels with its CLOB token ids.
// When the labels are literally Yes/No they decide which token is which;
// otherwise positional order is used (first token = yes side).
func (m *APIMarket) outcomeTokens() (yes, no string, err error) {
	tokens, err := parseStringArray(m.ClobTokenIDs)
	if err != nil {
		return "", "", fmt.Errorf("parse clobTokenIds: %w", err)
	}
	normalized := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if n := NormalizeTokenID(t); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) < 2 {
		return "", "", fmt.Errorf("expected 2 outcome token ids, got %d", len(normalized))
	}

	yes, no = normalized[0], normalized[1]

	if outcomes, err := parseStringArray(m.Outcomes); err == nil && len(outcomes) >= 2 {
		for i := range 2 {
			switch strings.ToLower(strings.TrimSpace(outcomes[i])) {
			case "yes":
				yes = normalized[i]
			case "no":
				no = normalized[i]
			}
		}
	}

	if yes == no {
		return "", "", fmt.Errorf("outcome token ids are not distinct")
	}
	return yes, no, nil
}

// parseStringArray decodes a JSON-encoded string array such as
// "[\"Yes\",\"No\"]". An empty input yields an empty slice, not an error.
func parseStringArray(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeTokenID canonicalizes a token identifier to its decimal string
// form. Gamma and on-chain sources disagree on representation: hex strings
// are converted, surrounding quotes stripped, and empty values collapse to "".
func NormalizeTokenID(tokenID string) string {
	v := strings.Trim(strings.TrimSpace(tokenID), `"'`)
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		if n, ok := new(big.Int).SetString(v[2:], 16); ok {
			return n.String()
		}
		return v
	}
	if n, ok := new(big.Int).SetString(v, 10); ok {
		return n.String()
	}
	return v
}
