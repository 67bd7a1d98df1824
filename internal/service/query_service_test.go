package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/akarpov91/polyindexer/internal/domain"
)

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
}

func (s *fakeMarketStore) Upsert(_ context.Context, m domain.Market) error {
	s.markets[m.Slug] = m
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
	out := []domain.Market{}
	for _, m := range s.markets {
		if m.EventSlug == eventSlug {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeTradeStore struct {
	trades []domain.Trade
}

func (s *fakeTradeStore) InsertBatchWithSync(context.Context, []domain.Trade, string, uint64) (int64, error) {
	return 0, nil
}

func (s *fakeTradeStore) ListByTokens(_ context.Context, tokenIDs []string, afterSeq int64, limit int) ([]domain.Trade, error) {
	wanted := map[string]bool{}
	for _, id := range tokenIDs {
		wanted[id] = true
	}
	out := []domain.Trade{}
	for _, t := range s.trades {
		if wanted[t.TokenID] && t.Seq > afterSeq {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func seedTrades(n int, tokenID string) []domain.Trade {
	trades := make([]domain.Trade, 0, n)
	for i := 1; i <= n; i++ {
		trades = append(trades, domain.Trade{
			Seq:     int64(i),
			TxHash:  fmt.Sprintf("0x%02x", i),
			TokenID: tokenID,
			Side:    domain.TradeSideBuy,
			Price:   decimal.RequireFromString("0.5"),
			Size:    decimal.RequireFromString("1"),
		})
	}
	return trades
}

func newTestService(events *fakeEventStore, markets *fakeMarketStore, trades *fakeTradeStore) *QueryService {
	return NewQueryService(events, markets, trades, nil, slog.New(slog.DiscardHandler))
}

func TestMarketsOfEvent(t *testing.T) {
	events := &fakeEventStore{events: map[string]domain.Event{
		"fed-2026": {Slug: "fed-2026"},
		"empty":    {Slug: "empty"},
	}}
	markets := &fakeMarketStore{markets: map[string]domain.Market{
		"fed-2026-cut": {Slug: "fed-2026-cut", EventSlug: "fed-2026"},
	}}
	svc := newTestService(events, markets, &fakeTradeStore{})

	got, err := svc.MarketsOfEvent(context.Background(), "fed-2026")
	if err != nil {
		t.Fatalf("MarketsOfEvent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("markets = %d, want 1", len(got))
	}

	got, err = svc.MarketsOfEvent(context.Background(), "empty")
	if err != nil {
		t.Fatalf("MarketsOfEvent(empty): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("markets = %d, want 0", len(got))
	}

	if _, err := svc.MarketsOfEvent(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for missing event", err)
	}
}

func TestTradesOfMarketPaginationWalk(t *testing.T) {
	events := &fakeEventStore{events: map[string]domain.Event{}}
	markets := &fakeMarketStore{markets: map[string]domain.Market{
		"m": {Slug: "m", YesTokenID: "yes-tok", NoTokenID: "no-tok"},
	}}
	trades := &fakeTradeStore{trades: seedTrades(25, "yes-tok")}
	svc := newTestService(events, markets, trades)

	var collected []int64
	cursor := int64(0)
	pages := 0
	for {
		page, err := svc.TradesOfMarket(context.Background(), "m", 10, cursor)
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		pages++
		for _, tr := range page.Trades {
			collected = append(collected, tr.Seq)
		}
		if page.NextCursor == 0 {
			break
		}
		cursor = page.NextCursor
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(collected) != 25 {
		t.Fatalf("collected = %d trades, want 25", len(collected))
	}
	for i, seq := range collected {
		if seq != int64(i+1) {
			t.Fatalf("collected[%d] = %d, want %d (missing or duplicated trade)", i, seq, i+1)
		}
	}
}

func TestTradesOfMarketCursorPastEnd(t *testing.T) {
	events := &fakeEventStore{events: map[string]domain.Event{}}
	markets := &fakeMarketStore{markets: map[string]domain.Market{
		"m": {Slug: "m", YesTokenID: "yes-tok", NoTokenID: "no-tok"},
	}}
	trades := &fakeTradeStore{trades: seedTrades(5, "yes-tok")}
	svc := newTestService(events, markets, trades)

	page, err := svc.TradesOfMarket(context.Background(), "m", 10, 9999)
	if err != nil {
		t.Fatalf("TradesOfMarket: %v", err)
	}
	if len(page.Trades) != 0 || page.NextCursor != 0 {
		t.Errorf("page = %+v, want empty final page", page)
	}
}

func TestTradesOfMarketFullPageSetsCursor(t *testing.T) {
	events := &fakeEventStore{events: map[string]domain.Event{}}
	markets := &fakeMarketStore{markets: map[string]domain.Market{
		"m": {Slug: "m", YesTokenID: "yes-tok", NoTokenID: "no-tok"},
	}}
	trades := &fakeTradeStore{trades: seedTrades(10, "yes-tok")}
	svc := newTestService(events, markets, trades)

	page, err := svc.TradesOfMarket(context.Background(), "m", 10, 0)
	if err != nil {
		t.Fatalf("TradesOfMarket: %v", err)
	}
	// The page was exactly full, so the cursor is set even though the next
	// page will be empty.
	if page.NextCursor != 10 {
		t.Errorf("next_cursor = %d, want 10", page.NextCursor)
	}
}

func TestTradesOfTokenOutcomeAttribution(t *testing.T) {
	events := &fakeEventStore{events: map[string]domain.Event{}}
	markets := &fakeMarketStore{markets: map[string]domain.Market{
		"m": {Slug: "m", YesTokenID: "yes-tok", NoTokenID: "no-tok"},
	}}
	trades := &fakeTradeStore{trades: append(seedTrades(1, "no-tok"), domain.Trade{
		Seq: 2, TxHash: "0xff", TokenID: "orphan-tok",
	})}
	svc := newTestService(events, markets, trades)

	page, err := svc.TradesOfToken(context.Background(), "no-tok", 10, 0)
	if err != nil {
		t.Fatalf("TradesOfToken: %v", err)
	}
	if len(page.Trades) != 1 || page.Trades[0].Outcome != "NO" {
		t.Errorf("page = %+v, want one NO trade", page.Trades)
	}

	// A token with no discovered market still serves its trades.
	page, err = svc.TradesOfToken(context.Background(), "orphan-tok", 10, 0)
	if err != nil {
		t.Fatalf("TradesOfToken(orphan): %v", err)
	}
	if len(page.Trades) != 1 || page.Trades[0].Outcome != "UNKNOWN" {
		t.Errorf("page = %+v, want one UNKNOWN trade", page.Trades)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 100},
		{-5, 100},
		{1, 1},
		{500, 500},
		{501, 500},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
