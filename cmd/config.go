package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/procurebot/relay/internal/backend"
	"github.com/procurebot/relay/internal/core"
	"github.com/procurebot/relay/internal/nlu/gemini"
	"github.com/procurebot/relay/internal/nlu/watson"
	"github.com/procurebot/relay/internal/relay/router"
	"github.com/procurebot/relay/internal/server"
	"github.com/procurebot/relay/internal/slackbot"
	pkgredis "github.com/procurebot/relay/pkg/redis"
	logx "github.com/procurebot/relay/pkg/logger"
)

const (
	providerWatson = "watson"
	providerGemini = "gemini"

	stateMemory = "memory"
	stateRedis  = "redis"
)

// AppConfig holds every setting of the relay, read from the environment
// (a .env file is loaded first for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	Slack   slackbot.Config
	NLU     NLUConfig
	Backend backend.Config
	State   StateConfig
	Redis   pkgredis.Config
	Router  router.Config
	Status  server.Config
}

type NLUConfig struct {
	Provider string `envconfig:"NLU_PROVIDER" default:"watson"`
	Watson   watson.Config
	Gemini   gemini.Config
}

type StateConfig struct {
	Backend  string        `envconfig:"STATE_BACKEND" default:"memory"`
	MaxUsers int           `envconfig:"STATE_MAX_USERS" default:"10000"`
	TTL      time.Duration `envconfig:"STATE_TTL" default:"24h"`
}

func (c AppConfig) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

func (c AppConfig) Validate() error {
	switch c.NLU.Provider {
	case providerWatson, providerGemini:
	default:
		return fmt.Errorf("unknown NLU_PROVIDER %q", c.NLU.Provider)
	}
	switch c.State.Backend {
	case stateMemory:
	case stateRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("STATE_BACKEND=redis needs REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.State.Backend)
	}
	return nil
}

func loadConfig(path string) (AppConfig, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			logx.Warn().Err(err).Str("file", path).Msg("could not load env file")
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
