package gamma

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/akarpov91/polyindexer/internal/domain"
)

func TestToDomainMarket(t *testing.T) {
	m := APIMarket{
		Slug:         "btc-100k",
		Question:     "Bitcoin above 100k?",
		ConditionID:  "0xcond",
		Outcomes:     `["Yes","No"]`,
		ClobTokenIDs: `["111","222"]`,
		Active:       true,
	}

	dm, err := m.ToDomainMarket("crypto-week", false, "0xusdc")
	if err != nil {
		t.Fatalf("ToDomainMarket: %v", err)
	}
	if dm.EventSlug != "crypto-week" {
		t.Errorf("event_slug = %s", dm.EventSlug)
	}
	if dm.YesTokenID != "111" || dm.NoTokenID != "222" {
		t.Errorf("tokens = %s/%s", dm.YesTokenID, dm.NoTokenID)
	}
	if dm.CollateralToken != "0xusdc" {
		t.Errorf("collateral = %s, want default applied", dm.CollateralToken)
	}
	if dm.Status != domain.MarketStatusActive {
		t.Errorf("status = %s", dm.Status)
	}
}

func TestToDomainMarketReversedOutcomeLabels(t *testing.T) {
	m := APIMarket{
		Slug:         "swapped",
		ConditionID:  "0xs",
		Outcomes:     `["No","Yes"]`,
		ClobTokenIDs: `["111","222"]`,
	}

	dm, err := m.ToDomainMarket("e", false, "")
	if err != nil {
		t.Fatalf("ToDomainMarket: %v", err)
	}
	if dm.YesTokenID != "222" || dm.NoTokenID != "111" {
		t.Errorf("tokens = %s/%s, want labels to win over position", dm.YesTokenID, dm.NoTokenID)
	}
}

func TestToDomainMarketMalformed(t *testing.T) {
	tests := []struct {
		name   string
		market APIMarket
	}{
		{"missing slug", APIMarket{ConditionID: "0x1", ClobTokenIDs: `["1","2"]`}},
		{"missing conditionId", APIMarket{Slug: "s", ClobTokenIDs: `["1","2"]`}},
		{"missing tokens", APIMarket{Slug: "s", ConditionID: "0x1"}},
		{"one token", APIMarket{Slug: "s", ConditionID: "0x1", ClobTokenIDs: `["1"]`}},
		{"duplicate tokens", APIMarket{Slug: "s", ConditionID: "0x1", ClobTokenIDs: `["1","1"]`}},
		{"garbage token json", APIMarket{Slug: "s", ConditionID: "0x1", ClobTokenIDs: `not-json`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.market.ToDomainMarket("e", false, "")
			if !errors.Is(err, domain.ErrMalformedMetadata) {
				t.Fatalf("err = %v, want ErrMalformedMetadata", err)
			}
		})
	}
}

func TestNormalizeTokenID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"123456", "123456"},
		{" 123456 ", "123456"},
		{`"123456"`, "123456"},
		{"0xff", "255"},
		{"0X10", "16"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTokenID(tt.in); got != tt.want {
			t.Errorf("NormalizeTokenID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFlexBool(t *testing.T) {
	var m APIMarket
	for _, raw := range []string{`{"active":true}`, `{"active":"true"}`, `{"active":"1"}`} {
		m.Active = false
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if !bool(m.Active) {
			t.Errorf("active not true for %s", raw)
		}
	}
}
