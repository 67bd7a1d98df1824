package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/akarpov91/polyindexer/internal/domain"
)

func TestOrderFilledTopic(t *testing.T) {
	// keccak256 of the OrderFilled signature, as emitted by the CTF Exchange.
	const want = "0xd0a08e8c493f9c94f29311604c9de1b4e8c8d4c06bd0c789af57f2d65bfec0f6"
	if got := OrderFilledTopic.Hex(); got != want {
		t.Errorf("topic0 = %s, want %s", got, want)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyRPCErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"alchemy block range", errors.New("query exceeds max block range 10000"), domain.ErrRangeTooLarge},
		{"infura results cap", errors.New("query returned more than 10000 results"), domain.ErrRangeTooLarge},
		{"generic limit", errors.New("limit exceeded"), domain.ErrRangeTooLarge},
		{"too many results", errors.New("too many results, narrow the filter"), domain.ErrRangeTooLarge},
		{"net timeout", timeoutErr{}, domain.ErrSourceUnavailable},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8545: connection refused"), domain.ErrSourceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyRPCErr(tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("classifyRPCErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	// Unrecognized errors pass through unwrapped.
	plain := fmt.Errorf("execution reverted")
	if got := classifyRPCErr(plain); got != plain {
		t.Errorf("classifyRPCErr(%v) = %v, want passthrough", plain, got)
	}
}
