package chain

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

type stubAdapter struct {
	id      string
	healthy bool
}

func (s *stubAdapter) ID() string { return s.id }

func (s *stubAdapter) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	return &MintResult{TxHash: "0xstub", Recipient: req.Recipient}, nil
}

func (s *stubAdapter) GenerateKeypair() (string, string, error) {
	return s.id + "-addr", s.id + "-secret", nil
}

func (s *stubAdapter) ServerAddress() string { return s.id + "-server" }

func (s *stubAdapter) ServerBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(7), nil
}

func (s *stubAdapter) ExplorerURL(txHash string) string { return "https://explorer.test/" + txHash }

func (s *stubAdapter) Healthy() bool { return s.healthy }

func (s *stubAdapter) Network() string { return "testnet" }

func TestRegistryGetUnknownChain(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Get("evm"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("unregistered chain want ErrDisabled got %v", err)
	}
}

func TestRegistryDisableAndReenable(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubAdapter{id: "evm", healthy: true})

	if _, err := registry.Get("evm"); err != nil {
		t.Fatalf("registered chain should be available, got %v", err)
	}

	registry.SetDisabled("evm", true)
	if _, err := registry.Get("evm"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled chain want ErrDisabled got %v", err)
	}

	registry.SetDisabled("evm", false)
	if _, err := registry.Get("evm"); err != nil {
		t.Fatalf("re-enabled chain should be available, got %v", err)
	}
}

func TestRegistryChainsSorted(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubAdapter{id: "stellar"})
	registry.Register(&stubAdapter{id: "evm"})
	registry.Register(&stubAdapter{id: "solana"})

	got := registry.Chains()
	want := []string{"evm", "solana", "stellar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("chains want %v got %v", want, got)
	}
}

func TestRegistryStatuses(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubAdapter{id: "evm", healthy: true})
	registry.Register(&stubAdapter{id: "solana", healthy: true})
	registry.SetDisabled("solana", true)

	statuses := registry.Statuses(context.Background(), true)
	if len(statuses) != 2 {
		t.Fatalf("statuses length want 2 got %d", len(statuses))
	}

	evm, solana := statuses[0], statuses[1]
	if evm.Chain != "evm" || solana.Chain != "solana" {
		t.Fatalf("statuses should be sorted by chain id, got %v %v", evm.Chain, solana.Chain)
	}
	if !evm.Healthy {
		t.Fatalf("enabled healthy chain should report healthy")
	}
	if !evm.Balance.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("balance want 7 got %s", evm.Balance)
	}
	if solana.Healthy {
		t.Fatalf("disabled chain should report unhealthy")
	}
	if !solana.Balance.IsZero() {
		t.Fatalf("disabled chain balance should stay zero, got %s", solana.Balance)
	}
}
