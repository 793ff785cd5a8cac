// Package store persists quest entries. Implementations enforce the
// wallet/email uniqueness with database indexes and flip the solved flag
// with a conditional update, so concurrent callers never race a
// check-then-write.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quest-entry-service/models"
)

// ErrNotFound is returned when no entry matches the wallet address.
var ErrNotFound = errors.New("entry not found")

// Field names a uniquely indexed entry attribute.
type Field string

const (
	FieldWallet Field = "walletAddress"
	FieldEmail  Field = "email"
)

// ConflictError reports which unique field blocked an insert. When both the
// wallet and the email are taken, the wallet is reported.
type ConflictError struct {
	Field Field
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("entry conflict on %s", e.Field)
}

// IsConflict returns the conflicting field when err is a *ConflictError.
func IsConflict(err error) (Field, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Field, true
	}
	return "", false
}

// SolveResult is the outcome of MarkSolved.
type SolveResult int

const (
	SolveUpdated SolveResult = iota + 1
	SolveNoChange
)

func (r SolveResult) String() string {
	switch r {
	case SolveUpdated:
		return "updated"
	case SolveNoChange:
		return "no_change"
	default:
		return "unknown"
	}
}

// Rank is what a wallet would place if it solved the quest now.
type Rank struct {
	Rank        int64 `json:"rank"`
	TotalSolved int64 `json:"totalSolved"`
}

// RankFor derives the rank from the solved count.
func RankFor(totalSolved int64) Rank {
	return Rank{Rank: totalSolved + 1, TotalSolved: totalSolved}
}

// Stats summarises the collection for the admin endpoint and stats job.
type Stats struct {
	Total    int64 `json:"total"`
	Solved   int64 `json:"solved"`
	Unlocked int64 `json:"unlocked"`
}

// NewEntry is the creation input.
type NewEntry struct {
	Email             string
	WalletAddress     string
	EasterEggUnlocked bool
	EasterEggSolved   bool
}

// Normalize trims surrounding whitespace. Case is kept as submitted.
func (n NewEntry) Normalize() NewEntry {
	n.Email = strings.TrimSpace(n.Email)
	n.WalletAddress = strings.TrimSpace(n.WalletAddress)
	return n
}

// Store is the entry repository.
type Store interface {
	CreateEntry(ctx context.Context, in NewEntry) (*models.Entry, error)
	GetEntryByWallet(ctx context.Context, walletAddress string) (*models.Entry, error)
	MarkSolved(ctx context.Context, walletAddress string) (SolveResult, error)
	// SolvedRank ignores walletAddress: the rank is always totalSolved+1.
	SolvedRank(ctx context.Context, walletAddress string) (Rank, error)
	Stats(ctx context.Context) (Stats, error)
	// EachEntry visits every entry in creation order.
	EachEntry(ctx context.Context, fn func(models.Entry) error) error
	Ping(ctx context.Context) error
	Close() error
}
