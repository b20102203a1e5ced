package rewards

import "errors"

var (
	// ErrInvalidPayload reports a game event whose payload failed to decode
	// or validate. Never retryable as-is.
	ErrInvalidPayload = errors.New("rewards: invalid event payload")

	// ErrUnknownGame reports a game kind outside the closed enumeration.
	// Signals caller misuse, never retryable as-is.
	ErrUnknownGame = errors.New("rewards: unknown game kind")

	// ErrInvalidPlayer reports a missing or blank player id.
	ErrInvalidPlayer = errors.New("rewards: invalid player id")
)
