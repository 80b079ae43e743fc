package e2e

import (
	"chat-room/internal"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_STORE_BACKEND selects the document store the scenarios run against
	StoreBackend   string `envconfig:"E2E_STORE_BACKEND" default:"memory"`
	BadgerFilepath string `envconfig:"E2E_BADGER_FILEPATH"`
	MongoURI       string `envconfig:"E2E_MONGO_URI"`
	MongoDatabase  string `envconfig:"E2E_MONGO_DATABASE" default:"chatroom_e2e"`
	RedisAddr      string `envconfig:"E2E_REDIS_ADDR"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

// StoreConfig is the application configuration pointing at the e2e store.
func (c Config) StoreConfig() internal.Config {
	return internal.Config{
		LogLevel:       "DEBUG",
		StoreBackend:   c.StoreBackend,
		BadgerFilepath: c.BadgerFilepath,
		MongoURI:       c.MongoURI,
		MongoDatabase:  c.MongoDatabase,
		RedisAddr:      c.RedisAddr,
		SendTimeout:    5 * time.Second,
		FetchTimeout:   5 * time.Second,
	}
}
