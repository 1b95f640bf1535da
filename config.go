package keybot

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

const (
	// StoreDriverSupabase talks to the Supabase REST API
	StoreDriverSupabase = "supabase"
	// StoreDriverPostgres connects straight to the Postgres database
	StoreDriverPostgres = "postgres"
	// StoreDriverSQLite uses a local SQLite database
	StoreDriverSQLite = "sqlite"
)

const (
	// TransportGateway receives interactions over the gateway websocket
	TransportGateway = "gateway"
	// TransportHTTP receives interactions on an HTTP endpoint
	TransportHTTP = "http"
)

// Config holds every setting the bot needs. It is parsed once at startup and
// never mutated afterwards.
type Config struct {
	BotToken       string        `env:"DISCORD_BOT_TOKEN"`
	ApplicationID  string        `env:"DISCORD_APPLICATION_ID"`
	GuildID        string        `env:"DISCORD_GUILD_ID"`
	RequiredRoleID string        `env:"DISCORD_REQUIRED_ROLE_ID"`
	PublicKey      string        `env:"DISCORD_PUBLIC_KEY"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"KEYBOT_TOKEN_TTL" envDefault:"1h"`
	TokenIssuer    string        `env:"KEYBOT_TOKEN_ISSUER"`
	StoreDriver    string        `env:"KEYBOT_STORE_DRIVER" envDefault:"supabase"`
	SupabaseURL    string        `env:"SUPABASE_URL"`
	SupabaseAPIKey string        `env:"SUPABASE_API_KEY"`
	DatabaseDSN    string        `env:"KEYBOT_DATABASE_DSN"`
	Transport      string        `env:"KEYBOT_TRANSPORT" envDefault:"gateway"`
	HTTPAddr       string        `env:"KEYBOT_HTTP_ADDR" envDefault:":8080"`
	LogLevel       string        `env:"KEYBOT_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to read env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to parse environment")
	}

	return cfg, cfg.Validate()
}

// ParseConfig builds a Config from an explicit environment map
func ParseConfig(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to parse environment")
	}
	return cfg, cfg.Validate()
}

// Validate fails when a required setting is absent or malformed
func (c Config) Validate() error {
	supabase := c.StoreDriver == StoreDriverSupabase
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BotToken, validation.Required),
		validation.Field(&c.ApplicationID, validation.Required, is.Digit),
		validation.Field(&c.GuildID, validation.Required, is.Digit),
		validation.Field(&c.RequiredRoleID, validation.Required, is.Digit),
		validation.Field(&c.JWTSecret, validation.Required),
		validation.Field(&c.TokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.StoreDriver, validation.Required,
			validation.In(StoreDriverSupabase, StoreDriverPostgres, StoreDriverSQLite)),
		validation.Field(&c.SupabaseURL, validation.When(supabase, validation.Required, is.URL)),
		validation.Field(&c.SupabaseAPIKey, validation.When(supabase, validation.Required)),
		validation.Field(&c.DatabaseDSN, validation.When(!supabase, validation.Required)),
		validation.Field(&c.Transport, validation.Required, validation.In(TransportGateway, TransportHTTP)),
		validation.Field(&c.PublicKey, validation.When(c.Transport == TransportHTTP,
			validation.Required, is.Hexadecimal, validation.Length(64, 64))),
		validation.Field(&c.HTTPAddr, validation.When(c.Transport == TransportHTTP, validation.Required)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration")
	}
	return nil
}
