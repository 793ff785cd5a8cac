package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"DATABASE_URL": "postgres://localhost/quest",
	}))
	require.NoError(t, err)

	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "entries", cfg.EntriesTable)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.Export.Enabled())
}

func TestFromEnv_DriverAndOrigins(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"DATABASE_URL":    "file:quest.db",
		"STORE_DRIVER":    "SQLite",
		"ALLOWED_ORIGINS": "https://a.example, https://b.example",
	}))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "https://a.example,https://b.example", cfg.AllowedOrigins)
}

func TestFromEnv_IgnoresConsoleSettings(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"DATABASE_URL":           "x",
		"EASTER_EGG_SECRET_CODE": "up2down",
		"ACTIVATION_DELAY":       "soon",
	}))
	require.NoError(t, err, "the API never reads the cheat codes")
	assert.Equal(t, "x", cfg.DatabaseURL)
}

func TestClientFromEnv_Codes(t *testing.T) {
	cfg, err := ClientFromEnv(lookup(map[string]string{
		"EASTER_EGG_CHEAT_CODES": " IDDQD, ,idkfa ",
		"EASTER_EGG_SECRET_CODE": "Konami",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"iddqd", "idkfa"}, cfg.Codes.Fake)
	assert.Equal(t, "konami", cfg.Codes.Real)
	assert.Equal(t, 6, cfg.Codes.Window())
	assert.Equal(t, "/easter-egg-not-found", cfg.Session.DecoyPath)
	assert.Equal(t, 2*time.Second, cfg.Session.ActivationDelay)

	_, err = ClientFromEnv(lookup(map[string]string{"EASTER_EGG_SECRET_CODE": "up2down"}))
	assert.Error(t, err)
}

func TestFromEnv_Errors(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		_, err := FromEnv(lookup(map[string]string{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})

	t.Run("mongo needs uri and db", func(t *testing.T) {
		_, err := FromEnv(lookup(map[string]string{"STORE_DRIVER": "mongo", "MONGODB_URI": "mongodb://x"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MONGODB_DB_NAME")
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := FromEnv(lookup(map[string]string{"DATABASE_URL": "x", "RANK_CACHE_TTL": "soon"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RANK_CACHE_TTL")
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := FromEnv(lookup(map[string]string{"STORE_DRIVER": "dynamo"}))
		require.Error(t, err)
	})
}

func TestCodesWindow(t *testing.T) {
	c, err := NewCodes([]string{"abc", "abcdefg"}, "xyzw")
	require.NoError(t, err)
	assert.Equal(t, 7, c.Window())

	empty, err := NewCodes(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Window())
}

func TestClientFromEnv(t *testing.T) {
	cfg, err := ClientFromEnv(lookup(map[string]string{
		"QUEST_API_URL":          "http://quest:8080",
		"EASTER_EGG_CHEAT_CODES": "iddqd, IDKFA",
		"EASTER_EGG_SECRET_CODE": "Unlock",
		"ACTIVATION_DELAY":       "500ms",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://quest:8080", cfg.APIURL)
	assert.Equal(t, []string{"iddqd", "idkfa"}, cfg.Codes.Fake)
	assert.Equal(t, "unlock", cfg.Codes.Real)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.ActivationDelay)
	assert.Equal(t, "/easter-egg", cfg.Session.QuestPath)

	_, err = ClientFromEnv(lookup(map[string]string{"ACTIVATION_DELAY": "soon"}))
	assert.Error(t, err)
}
