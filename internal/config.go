package internal

import (
	"chat-room/errors"
	"fmt"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	StoreBackend    string        `env:"STORE_BACKEND,default=memory" validate:"oneof=memory badger mongo redis"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH" validate:"required_if=StoreBackend badger"`
	MongoURI        string        `env:"MONGO_URI" validate:"required_if=StoreBackend mongo"`
	MongoDatabase   string        `env:"MONGO_DATABASE,default=chatroom"`
	RedisAddr       string        `env:"REDIS_ADDR" validate:"required_if=StoreBackend redis"`
	IDToken         string        `env:"ID_TOKEN"`
	TokenSecret     string        `env:"TOKEN_SECRET,required=true" validate:"min=16"`
	TokenIssuer     string        `env:"TOKEN_ISSUER,default=chat-room"`
	TokenDuration   time.Duration `env:"TOKEN_DURATION,default=24h"`
	SendTimeout     time.Duration `env:"SEND_TIMEOUT,default=10s" validate:"gt=0"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT,default=10s" validate:"gt=0"`
	MergePolicy     string        `env:"MERGE_POLICY,default=reconcile" validate:"oneof=replace reconcile"`
	CensoredDir     string        `env:"CENSORED_DIR"`
	CharReplacement string        `env:"CENSOR_CHARACTER,default=*"`
	DebugPort       int           `env:"DEBUG_PORT" validate:"gte=0,lte=65535"`
	TerminalWidth   int           `env:"TERMINAL_WIDTH,default=80" validate:"gte=20"`
}

// Load reads an optional .env file, then decodes and validates the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// RequireIdentity reports an error when no ID token was configured for sign-in.
func (c Config) RequireIdentity() error {
	if c.IDToken == "" {
		return fmt.Errorf("ID_TOKEN: %w", errors.ErrMissingIdentity)
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
