package solana

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"

	"pokeengine/native/rewards"
)

func testAddress(fill byte) string {
	return base58.Encode(bytes.Repeat([]byte{fill}, 32))
}

func TestNewClientValidation(t *testing.T) {
	mint := testAddress(1)
	vault := testAddress(2)

	if _, err := NewClient("http://localhost:8899", "confirmed", mint, vault); err != nil {
		t.Fatalf("valid client: %v", err)
	}
	// Empty commitment falls back to confirmed.
	if _, err := NewClient("http://localhost:8899", "", mint, vault); err != nil {
		t.Fatalf("default commitment: %v", err)
	}
	if _, err := NewClient("http://localhost:8899", "eventually", mint, vault); err == nil {
		t.Fatalf("expected error for unknown commitment")
	}
	if _, err := NewClient("http://localhost:8899", "confirmed", "not-base58!", vault); err == nil {
		t.Fatalf("expected error for invalid mint")
	}
	if _, err := NewClient("http://localhost:8899", "confirmed", mint, "short"); err == nil {
		t.Fatalf("expected error for invalid vault")
	}
	// Mint and vault may be left unset during development.
	if _, err := NewClient("http://localhost:8899", "confirmed", "", ""); err != nil {
		t.Fatalf("empty addresses: %v", err)
	}
}

func TestDisburse(t *testing.T) {
	ctx := context.Background()
	reward := &rewards.Reward{ID: uuid.New(), PlayerID: "ash", Game: rewards.GameWelcome, Amount: 100}
	wallet := testAddress(3)

	client, err := NewClient("http://localhost:8899", "confirmed", testAddress(1), testAddress(2))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	signature, err := client.Disburse(ctx, reward, wallet)
	if err != nil {
		t.Fatalf("disburse: %v", err)
	}
	if !strings.Contains(signature, reward.ID.String()) {
		t.Fatalf("signature %q does not reference reward", signature)
	}

	if _, err := client.Disburse(ctx, nil, wallet); err == nil {
		t.Fatalf("expected error for nil reward")
	}
	if _, err := client.Disburse(ctx, reward, "bogus"); err == nil {
		t.Fatalf("expected error for invalid wallet")
	}

	unconfigured, err := NewClient("http://localhost:8899", "confirmed", "", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := unconfigured.Disburse(ctx, reward, wallet); err == nil {
		t.Fatalf("expected error without mint and vault")
	}
}

func TestFuncDisburser(t *testing.T) {
	var empty FuncDisburser
	signature, err := empty.Disburse(context.Background(), nil, "")
	if err != nil || signature != "" {
		t.Fatalf("nil callback: sig=%q err=%v", signature, err)
	}

	called := false
	wired := FuncDisburser{DisburseFunc: func(ctx context.Context, reward *rewards.Reward, wallet string) (string, error) {
		called = true
		return "sig", nil
	}}
	signature, err = wired.Disburse(context.Background(), nil, "")
	if err != nil || signature != "sig" || !called {
		t.Fatalf("callback not delegated: sig=%q err=%v called=%v", signature, err, called)
	}
}
