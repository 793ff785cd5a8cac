package client_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"quest-entry-service/client"
	"quest-entry-service/config"
	"quest-entry-service/easteregg"
	"quest-entry-service/handlers"
	"quest-entry-service/logger"
	"quest-entry-service/metrics"
	"quest-entry-service/services"
	"quest-entry-service/store"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*client.QuestClient, *store.GormStore) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "quest.db"))
	st, err := store.OpenSQLite(context.Background(), dsn, "entries")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := services.NewEntryService(st, logger.Discard(), metrics.New(prometheus.NewRegistry()), time.Second)
	srv := httptest.NewServer(adaptor.FiberApp(handlers.NewApp(svc, handlers.Options{})))
	t.Cleanup(srv.Close)

	c := client.New(srv.URL + "/")
	c.HTTPClient = srv.Client()
	return c, st
}

func TestQuestClient_RoundTrip(t *testing.T) {
	c, _ := newServer(t)
	ctx := context.Background()

	_, err := c.GetEntryByWallet(ctx, "0xA")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = c.CreateEntry(ctx, store.NewEntry{Email: "a@x.com", WalletAddress: "0xA", EasterEggUnlocked: true})
	require.NoError(t, err)

	e, err := c.GetEntryByWallet(ctx, "0xA")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", e.Email)
	assert.True(t, e.EasterEggUnlocked)
	assert.NotEmpty(t, e.ID)

	_, err = c.CreateEntry(ctx, store.NewEntry{Email: "b@x.com", WalletAddress: "0xA"})
	field, ok := store.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, store.FieldWallet, field)

	_, err = c.CreateEntry(ctx, store.NewEntry{Email: "a@x.com", WalletAddress: "0xB"})
	field, ok = store.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, store.FieldEmail, field)

	res, err := c.MarkSolved(ctx, "0xA")
	require.NoError(t, err)
	assert.Equal(t, store.SolveUpdated, res)
	res, err = c.MarkSolved(ctx, "0xA")
	require.NoError(t, err)
	assert.Equal(t, store.SolveNoChange, res)
	_, err = c.MarkSolved(ctx, "0xNONE")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rank, err := c.SolvedRank(ctx, "0xB")
	require.NoError(t, err)
	assert.Equal(t, store.Rank{Rank: 2, TotalSolved: 1}, rank)
}

func TestQuestClient_StatusError(t *testing.T) {
	c, _ := newServer(t)
	_, err := c.CreateEntry(context.Background(), store.NewEntry{Email: "bad", WalletAddress: "0xA"})
	var se *client.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Invalid email address.", se.Message)
}

// Drives a full visitor session over HTTP: the real code opens the dialog,
// submitting an email creates the entry and grants the quest route.
func TestSessionOverHTTP(t *testing.T) {
	c, st := newServer(t)
	ctx := context.Background()

	codes, err := config.NewCodes([]string{"iddqd"}, "unlock")
	require.NoError(t, err)
	s := easteregg.NewSession(codes, config.SessionConfig{
		QuestPath: "/easter-egg",
		DecoyPath: "/easter-egg-not-found",
	}, c)
	s.SetRoute("/position-management")
	require.NoError(t, s.SetWallet(ctx, "0xV"))
	assert.Equal(t, easteregg.StateNoEntry, s.State())

	var last []easteregg.Effect
	for _, k := range "unlock" {
		last = s.Key(string(k))
	}
	require.NotEmpty(t, last)
	require.True(t, s.DialogOpen())

	effects := s.Submit(ctx, "v@x.com")
	require.NotEmpty(t, effects)
	assert.Equal(t, easteregg.EffectGrantAccess, effects[0].Kind)
	assert.Equal(t, easteregg.StateUnlocked, s.State())
	assert.True(t, s.OnQuestRoute())

	e, err := st.GetEntryByWallet(ctx, "0xV")
	require.NoError(t, err)
	assert.True(t, e.EasterEggUnlocked)
	assert.False(t, e.EasterEggSolved)

	_, err = c.MarkSolved(ctx, "0xV")
	require.NoError(t, err)
	require.NoError(t, s.SetWallet(ctx, "0xV"))
	assert.Equal(t, easteregg.StateSolved, s.State())
}
