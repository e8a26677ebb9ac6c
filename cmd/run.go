package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/procurebot/relay/internal/backend"
	"github.com/procurebot/relay/internal/history"
	"github.com/procurebot/relay/internal/nlu"
	"github.com/procurebot/relay/internal/nlu/gemini"
	"github.com/procurebot/relay/internal/nlu/watson"
	"github.com/procurebot/relay/internal/relay/resolvers"
	"github.com/procurebot/relay/internal/relay/router"
	"github.com/procurebot/relay/internal/relay/state"
	"github.com/procurebot/relay/internal/server"
	"github.com/procurebot/relay/internal/slackbot"
	logx "github.com/procurebot/relay/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Slack and start answering messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(envFile)
		if err != nil {
			return err
		}
		logx.Init(logx.LoggerOpts{Environment: cfg.Env()})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, cfg AppConfig) error {
	var rdb *goredis.Client
	if cfg.Redis.Enabled() {
		client, err := cfg.Redis.New(ctx)
		if err != nil {
			return fmt.Errorf("initialise redis: %w", err)
		}
		defer client.Close()
		rdb = client
		logx.Info().Msg("connected to redis")
	}

	store, err := newStore(cfg, rdb)
	if err != nil {
		return err
	}
	engine, err := newEngine(ctx, cfg.NLU)
	if err != nil {
		return err
	}
	bc, err := backend.NewHTTPClient(cfg.Backend, nil)
	if err != nil {
		return err
	}

	transport := slackbot.New(cfg.Slack)
	botID := cfg.Slack.BotID
	if botID == "" {
		if botID, err = slackbot.SelfID(ctx, transport.API()); err != nil {
			return err
		}
		logx.Info().Str("bot_id", botID).Msg("resolved bot id from auth test")
	}

	opts := []router.Option{router.WithPollInterval(cfg.Router.PollInterval)}
	var registry server.Registry
	if rdb != nil {
		rec := history.NewRedisRecorder(rdb)
		opts = append(opts, router.WithRecorder(rec))
		registry = rec
	}
	loop := router.New(botID, transport, engine, store, resolvers.Default(bc), opts...)

	var status *server.Server
	if cfg.Status.Enabled() {
		status = server.New(cfg.Status, loop, store, registry)
		go func() {
			if err := status.Start(); err != nil {
				logx.Error().Err(err).Msg("status server stopped")
			}
		}()
	}

	if err := loop.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		logx.Info().Msg("shutdown requested")
	case <-loop.Done():
	}

	loop.Stop()
	runErr := loop.Wait(cfg.Router.ShutdownTimeout)

	if status != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Router.ShutdownTimeout)
		defer cancel()
		if err := status.Shutdown(shutdownCtx); err != nil {
			logx.Warn().Err(err).Msg("status server shutdown")
		}
	}
	return runErr
}

func newStore(cfg AppConfig, rdb *goredis.Client) (state.Store, error) {
	if cfg.State.Backend == stateRedis {
		if rdb == nil {
			return nil, fmt.Errorf("redis state store needs REDIS_URL")
		}
		return state.NewRedisStore(rdb, cfg.State.TTL), nil
	}
	return state.NewMemoryStore(cfg.State.MaxUsers)
}

func newEngine(ctx context.Context, cfg NLUConfig) (nlu.Engine, error) {
	switch cfg.Provider {
	case providerGemini:
		return gemini.New(ctx, cfg.Gemini)
	default:
		return watson.New(cfg.Watson, nil)
	}
}
