package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/akarpov91/polyindexer/internal/domain"
	"github.com/akarpov91/polyindexer/internal/platform/gamma"
)

type fakeGamma struct {
	event   gamma.APIEvent
	markets []gamma.APIMarket
	err     error
}

func (f *fakeGamma) GetMarketsForEvent(context.Context, string) (gamma.APIEvent, []gamma.APIMarket, error) {
	return f.event, f.markets, f.err
}

type fakeEventStore struct {
	events map[string]domain.Event
}

func (s *fakeEventStore) Upsert(_ context.Context, ev domain.Event) error {
	s.events[ev.Slug] = ev
	return nil
}

func (s *fakeEventStore) GetBySlug(_ context.Context, slug string) (domain.Event, error) {
	ev, ok := s.events[slug]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return ev, nil
}

type fakeMarketStore struct {
	markets map[string]domain.Market
	upserts int
}

func (s *fakeMarketStore) Upsert(_ context.Context, m domain.Market) error {
	s.markets[m.Slug] = m
	s.upserts++
	return nil
}

func (s *fakeMarketStore) GetBySlug(_ context.Context, slug string) (domain.Market, error) {
	m, ok := s.markets[slug]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *fakeMarketStore) GetByTokenID(_ context.Context, tokenID string) (domain.Market, error) {
	for _, m := range s.markets {
		if m.YesTokenID == tokenID || m.NoTokenID == tokenID {
			return m, nil
		}
	}
	return domain.Market{}, domain.ErrNotFound
}

func (s *fakeMarketStore) ListByEvent(_ context.Context, eventSlug string) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		if m.EventSlug == eventSlug {
			out = append(out, m)
		}
	}
	return out, nil
}

func apiMarket(slug, conditionID, yesToken, noToken string) gamma.APIMarket {
	return gamma.APIMarket{
		ID:           "m-" + slug,
		Slug:         slug,
		Question:     "Will it happen?",
		ConditionID:  conditionID,
		Outcomes:     `["Yes","No"]`,
		ClobTokenIDs: fmt.Sprintf(`[%q,%q]`, yesToken, noToken),
	}
}

func newTestDiscovery(client MetadataClient, events *fakeEventStore, markets *fakeMarketStore) *Discovery {
	return New(client, events, markets, nil, "0x2791bca1f2de4661ed88a30c99a7a9449aa84174",
		slog.New(slog.DiscardHandler))
}

func TestDiscoverStoresEventAndMarkets(t *testing.T) {
	client := &fakeGamma{
		event: gamma.APIEvent{ID: "42", Slug: "us-election", Title: "US Election"},
		markets: []gamma.APIMarket{
			apiMarket("us-election-dem", "0xc1", "111", "222"),
			apiMarket("us-election-rep", "0xc2", "333", "444"),
		},
	}
	events := &fakeEventStore{events: map[string]domain.Event{}}
	markets := &fakeMarketStore{markets: map[string]domain.Market{}}
	d := newTestDiscovery(client, events, markets)

	event, stored, err := d.Discover(context.Background(), "us-election")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if event.Slug != "us-election" || event.EventID != "42" {
		t.Errorf("event = %+v", event)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d markets, want 2", len(stored))
	}
	if _, ok := events.events["us-election"]; !ok {
		t.Error("event not persisted")
	}
	if m := markets.markets["us-election-dem"]; m.YesTokenID != "111" || m.NoTokenID != "222" {
		t.Errorf("market tokens = %s/%s", m.YesTokenID, m.NoTokenID)
	}
}

func TestDiscoverSkipsMalformedMarkets(t *testing.T) {
	bad := apiMarket("broken", "", "1", "2") // missing conditionId
	client := &fakeGamma{
		event: gamma.APIEvent{Slug: "mixed"},
		markets: []gamma.APIMarket{
			bad,
			apiMarket("mixed-ok", "0xc9", "555", "666"),
		},
	}
	events := &fakeEventStore{events: map[string]domain.Event{}}
	markets := &fakeMarketStore{markets: map[string]domain.Market{}}
	d := newTestDiscovery(client, events, markets)

	_, stored, err := d.Discover(context.Background(), "mixed")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(stored) != 1 || stored[0].Slug != "mixed-ok" {
		t.Fatalf("stored = %+v, want only mixed-ok", stored)
	}
	if _, ok := markets.markets["broken"]; ok {
		t.Error("malformed market persisted")
	}
}

func TestDiscoverIdempotent(t *testing.T) {
	client := &fakeGamma{
		event:   gamma.APIEvent{Slug: "stable"},
		markets: []gamma.APIMarket{apiMarket("stable-m", "0xcc", "10", "20")},
	}
	events := &fakeEventStore{events: map[string]domain.Event{}}
	markets := &fakeMarketStore{markets: map[string]domain.Market{}}
	d := newTestDiscovery(client, events, markets)

	for i := 0; i < 3; i++ {
		if _, _, err := d.Discover(context.Background(), "stable"); err != nil {
			t.Fatalf("Discover #%d: %v", i+1, err)
		}
	}
	if len(markets.markets) != 1 {
		t.Errorf("markets = %d, want 1", len(markets.markets))
	}
	if markets.upserts != 3 {
		t.Errorf("upserts = %d, want 3", markets.upserts)
	}
}

func TestDiscoverPropagatesNotFound(t *testing.T) {
	client := &fakeGamma{err: fmt.Errorf("gamma: event nope: %w", domain.ErrNotFound)}
	events := &fakeEventStore{events: map[string]domain.Event{}}
	markets := &fakeMarketStore{markets: map[string]domain.Market{}}
	d := newTestDiscovery(client, events, markets)

	_, _, err := d.Discover(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
