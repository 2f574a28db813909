package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	PortEnv        = "PORT"
	DatabaseURLEnv = "DATABASE_URL"
	DataDirEnv     = "DATA_DIR"
	BanSecondsEnv  = "DEFAULT_BAN_SECONDS"
	PickSecondsEnv = "DEFAULT_PICK_SECONDS"
)

type Config struct {
	Port        int
	DatabaseURL string
	// DataDir backs the local key/value collaborator; empty means
	// in-memory only.
	DataDir            string
	DefaultBanSeconds  int
	DefaultPickSeconds int
}

func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	dbURL := os.Getenv(DatabaseURLEnv)
	if dbURL == "" {
		return Config{}, fmt.Errorf("%s is required", DatabaseURLEnv)
	}

	cfg := Config{
		Port:               intEnv(PortEnv, 8080),
		DatabaseURL:        dbURL,
		DataDir:            os.Getenv(DataDirEnv),
		DefaultBanSeconds:  intEnv(BanSecondsEnv, 30),
		DefaultPickSeconds: intEnv(PickSecondsEnv, 30),
	}
	return cfg, nil
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
