package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"quest-entry-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quest.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)

	s, err := OpenSQLite(context.Background(), dsn, "entries")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newEntry(email, wallet string) NewEntry {
	return NewEntry{Email: email, WalletAddress: wallet, EasterEggUnlocked: true}
}

func TestGormStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	created, err := s.CreateEntry(ctx, newEntry(" a@x.com ", "0xAAA"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "a@x.com", created.Email)
	assert.True(t, created.EasterEggUnlocked)
	assert.False(t, created.EasterEggSolved)

	got, err := s.GetEntryByWallet(ctx, "0xAAA")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "a@x.com", got.Email)
	assert.False(t, got.EasterEggSolved)
	assert.True(t, fixed.Equal(got.CreatedAt))

	_, err = s.GetEntryByWallet(ctx, "0xMISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_CreateKeepsExplicitFlags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEntry(ctx, NewEntry{Email: "locked@x.com", WalletAddress: "0xLOCK", EasterEggUnlocked: false})
	require.NoError(t, err)

	got, err := s.GetEntryByWallet(ctx, "0xLOCK")
	require.NoError(t, err)
	assert.False(t, got.EasterEggUnlocked)
}

func TestGormStore_Conflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEntry(ctx, newEntry("b@x.com", "0xBBB"))
	require.NoError(t, err)

	t.Run("same wallet different email", func(t *testing.T) {
		_, err := s.CreateEntry(ctx, newEntry("other@x.com", "0xBBB"))
		field, ok := IsConflict(err)
		require.True(t, ok, "expected conflict, got %v", err)
		assert.Equal(t, FieldWallet, field)
	})

	t.Run("same email different wallet", func(t *testing.T) {
		_, err := s.CreateEntry(ctx, newEntry("b@x.com", "0xCCC"))
		field, ok := IsConflict(err)
		require.True(t, ok)
		assert.Equal(t, FieldEmail, field)
	})

	t.Run("both taken reports wallet", func(t *testing.T) {
		_, err := s.CreateEntry(ctx, newEntry("b@x.com", "0xBBB"))
		field, ok := IsConflict(err)
		require.True(t, ok)
		assert.Equal(t, FieldWallet, field)
	})

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Total)
}

func TestGormStore_ConcurrentCreateSameWallet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateEntry(ctx, newEntry(fmt.Sprintf("user%d@x.com", i), "0xRACE"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			if field, ok := IsConflict(err); ok && field == FieldWallet {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Total)
}

func TestGormStore_MarkSolved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEntry(ctx, newEntry("a@x.com", "0xAAA"))
	require.NoError(t, err)

	res, err := s.MarkSolved(ctx, "0xAAA")
	require.NoError(t, err)
	assert.Equal(t, SolveUpdated, res)

	got, err := s.GetEntryByWallet(ctx, "0xAAA")
	require.NoError(t, err)
	assert.True(t, got.EasterEggSolved)

	res, err = s.MarkSolved(ctx, "0xAAA")
	require.NoError(t, err)
	assert.Equal(t, SolveNoChange, res)

	got, err = s.GetEntryByWallet(ctx, "0xAAA")
	require.NoError(t, err)
	assert.True(t, got.EasterEggSolved)

	_, err = s.MarkSolved(ctx, "0xNOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_SolvedRank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rank, err := s.SolvedRank(ctx, "0xANY")
	require.NoError(t, err)
	assert.Equal(t, Rank{Rank: 1, TotalSolved: 0}, rank)

	for i := 0; i < 3; i++ {
		wallet := fmt.Sprintf("0x%d", i)
		_, err := s.CreateEntry(ctx, newEntry(fmt.Sprintf("s%d@x.com", i), wallet))
		require.NoError(t, err)
		_, err = s.MarkSolved(ctx, wallet)
		require.NoError(t, err)
	}
	_, err = s.CreateEntry(ctx, newEntry("pending@x.com", "0xPENDING"))
	require.NoError(t, err)

	for _, wallet := range []string{"0x0", "0xPENDING", "0xUNKNOWN"} {
		rank, err := s.SolvedRank(ctx, wallet)
		require.NoError(t, err)
		assert.Equal(t, Rank{Rank: 4, TotalSolved: 3}, rank, wallet)
	}

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Solved: 3, Unlocked: 4}, st)
}

func TestGormStore_EachEntryInCreationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, wallet := range []string{"0x1", "0x2", "0x3"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		_, err := s.CreateEntry(ctx, newEntry(wallet+"@x.com", wallet))
		require.NoError(t, err)
	}

	var wallets []string
	err := s.EachEntry(ctx, func(e models.Entry) error {
		wallets = append(wallets, e.WalletAddress)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0x1", "0x2", "0x3"}, wallets)
}

func TestGormStore_CustomTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.db")
	s, err := OpenSQLite(context.Background(), path, "quest_waitlist")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateEntry(context.Background(), newEntry("t@x.com", "0xT"))
	require.NoError(t, err)
	assert.True(t, s.DB.Migrator().HasTable("quest_waitlist"))
}
