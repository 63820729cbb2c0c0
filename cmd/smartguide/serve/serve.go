package servecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smartguide/smartguide/pkg/config"
	"github.com/smartguide/smartguide/pkg/logger"
	"github.com/smartguide/smartguide/relay"
)

const serveLongDesc string = `Run the Smart Guide chat relay.

The relay accepts POST /chat from the client, prepends the Smart Guide
system prompt and streams the AI gateway's reply back unmodified.

The gateway credential is read from AI_GATEWAY_API_KEY or the [upstream]
section of the config file. When a config file is given it is watched and
a changed credential takes effect without a restart.

Examples:
  smartguide serve
  smartguide serve --listen :9000 --debug
  smartguide serve --config ~/.config/smartguide/smartguide.toml`

const serveShortDesc string = "Run the chat relay server"

type serveCommander struct {
	configPath string
	envFile    string
	listen     string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", "", "Path to a dotenv file (default: .env when present)")
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides config)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if c.listen != "" {
		cfg.Server.Listen = c.listen
	}

	log := logger.New(cmd.ErrOrStderr(), c.debug || cfg.Debug)
	defer log.Sync()

	r, err := relay.New(cfg.RelayConfig(), log)
	if err != nil {
		return fmt.Errorf("could not create relay: %w", err)
	}

	if cfg.Upstream.APIKey == "" {
		log.Warn("no upstream credential configured, chat requests will fail",
			zap.String("env", config.EnvAPIKey),
		)
	}

	if c.configPath != "" {
		go func() {
			err := config.Watch(ctx, c.configPath, log, func(next *config.Config) {
				if next.Upstream.APIKey != r.APIKey() {
					r.SetAPIKey(next.Upstream.APIKey)
					log.Info("upstream credential updated")
				}
			})
			if err != nil {
				log.Warn("config watch disabled", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("relay server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down relay server")
		return r.Shutdown()
	}
}
