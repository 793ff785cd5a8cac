package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig is what the quest console needs; it never touches storage.
type ClientConfig struct {
	APIURL  string
	Wallet  string
	Codes   Codes
	Session SessionConfig
	Timeout time.Duration
}

// LoadClient reads .env (if present) and the process environment.
func LoadClient() (ClientConfig, error) {
	_ = godotenv.Load()
	return ClientFromEnv(os.Getenv)
}

func ClientFromEnv(getenv func(string) string) (ClientConfig, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := ClientConfig{
		APIURL: env("QUEST_API_URL", "http://localhost:5200"),
		Wallet: env("QUEST_WALLET", ""),
		Session: SessionConfig{
			QuestPath:       env("QUEST_PATH", "/easter-egg"),
			DecoyPath:       env("DECOY_PATH", "/easter-egg-not-found"),
			ActivationDelay: 2 * time.Second,
		},
		Timeout: 10 * time.Second,
	}

	if raw := env("ACTIVATION_DELAY", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return cfg, fmt.Errorf("ACTIVATION_DELAY: invalid duration %q", raw)
		}
		cfg.Session.ActivationDelay = d
	}

	codes, err := NewCodes(splitList(getenv("EASTER_EGG_CHEAT_CODES")), getenv("EASTER_EGG_SECRET_CODE"))
	if err != nil {
		return cfg, err
	}
	cfg.Codes = codes
	return cfg, nil
}
