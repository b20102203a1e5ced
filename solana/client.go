// Package solana holds the disbursement collaborator for $POKE rewards.
// The engine core never imports it: a reward record exists and is visible
// before disbursement is attempted, and a failed transfer never retracts
// the record.
package solana

import (
	"context"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"

	"pokeengine/native/rewards"
)

// Disburser captures the capability the daemon needs from the on-chain
// transfer layer: move a recorded reward to the player's wallet and return
// a settlement signature.
type Disburser interface {
	Disburse(ctx context.Context, reward *rewards.Reward, playerWallet string) (string, error)
}

// FuncDisburser adapts a callback to the Disburser interface.
type FuncDisburser struct {
	DisburseFunc func(ctx context.Context, reward *rewards.Reward, playerWallet string) (string, error)
}

// Disburse delegates to the configured callback.
func (d FuncDisburser) Disburse(ctx context.Context, reward *rewards.Reward, playerWallet string) (string, error) {
	if d.DisburseFunc == nil {
		return "", nil
	}
	return d.DisburseFunc(ctx, reward, playerWallet)
}

// Client talks to a Solana RPC endpoint for SPL token transfers.
//
// Transfer building, signing, and submission live behind this type; the
// current implementation validates addresses and returns placeholder
// signatures until the vault integration lands.
type Client struct {
	rpcURL      string
	commitment  string
	tokenMint   string
	rewardVault string
}

// NewClient validates the configured addresses and returns a client.
// Mint and vault may be empty during development; Disburse then fails
// cleanly at call time.
func NewClient(rpcURL, commitment, tokenMint, rewardVault string) (*Client, error) {
	switch commitment {
	case "processed", "confirmed", "finalized":
	case "":
		commitment = "confirmed"
	default:
		return nil, fmt.Errorf("solana: unknown commitment %q", commitment)
	}
	if tokenMint != "" {
		if err := validateAddress(tokenMint); err != nil {
			return nil, fmt.Errorf("solana: invalid token mint: %w", err)
		}
	}
	if rewardVault != "" {
		if err := validateAddress(rewardVault); err != nil {
			return nil, fmt.Errorf("solana: invalid reward vault: %w", err)
		}
	}
	return &Client{
		rpcURL:      strings.TrimSpace(rpcURL),
		commitment:  commitment,
		tokenMint:   tokenMint,
		rewardVault: rewardVault,
	}, nil
}

// Disburse transfers the reward amount from the vault to the player wallet
// and returns the transaction signature.
func (c *Client) Disburse(ctx context.Context, reward *rewards.Reward, playerWallet string) (string, error) {
	if reward == nil {
		return "", fmt.Errorf("solana: reward required")
	}
	if err := validateAddress(playerWallet); err != nil {
		return "", fmt.Errorf("solana: invalid player wallet: %w", err)
	}
	if c.tokenMint == "" {
		return "", fmt.Errorf("solana: token mint not configured")
	}
	if c.rewardVault == "" {
		return "", fmt.Errorf("solana: reward vault not configured")
	}

	// TODO(vault): build the SPL transfer, sign with the vault keypair,
	// and submit via RPC once the treasury keys are provisioned.
	return fmt.Sprintf("placeholder_signature_%s", reward.ID), nil
}

// validateAddress checks that the value is a 32-byte base58 public key.
func validateAddress(addr string) error {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return fmt.Errorf("address required")
	}
	decoded := base58.Decode(trimmed)
	if len(decoded) != 32 {
		return fmt.Errorf("address %q is not a 32-byte base58 key", trimmed)
	}
	return nil
}
