package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchagig/internal/chat"
	"github.com/spigell/matchagig/internal/logger"
	"github.com/spigell/matchagig/internal/matchagig"
	"github.com/spigell/matchagig/internal/secrets"
	"github.com/spigell/matchagig/internal/session"
	"github.com/spigell/matchagig/internal/store"
)

// application is everything one command invocation works with.
type application struct {
	config  *Config
	logger  *zap.Logger
	store   store.Store
	client  *matchagig.Client
	session *session.Session
	chat    *chat.Manager
}

func newApplication(ctx context.Context) (*application, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, err
	}

	log.Debug("starting with config",
		zap.String("version", version),
		zap.String("backend", config.Backend.BaseURL),
		zap.String("store_driver", config.Store.Driver),
		zap.Int("upload_concurrency", config.Upload.Concurrency),
	)

	token, err := secrets.Load(secrets.Source{
		Name:     "matchagig api token",
		File:     config.Backend.TokenFile,
		Env:      tokenEnv,
		Optional: true,
	})
	if err != nil {
		return nil, err
	}

	client := matchagig.New(log, token)
	client.APIURL = config.Backend.BaseURL
	if config.Backend.UserAgent != "" {
		client.UserAgent = config.Backend.UserAgent
	}
	if config.Backend.Timeout > 0 {
		client.HTTPClient.Timeout = config.Backend.Timeout
	}
	client.RetryAttempts = config.Overview.Attempts
	client.RetryDelay = config.Overview.Delay

	st, err := store.Open(ctx, config.Store, log)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	sess, err := session.New(ctx, st, log)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("restoring session: %w", err)
	}

	return &application{
		config:  config,
		logger:  log,
		store:   st,
		client:  client,
		session: sess,
		chat:    chat.NewManager(sess, client, st, log, config.Chat.MaxLogLength),
	}, nil
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// withApp adapts an application-aware handler to cobra's RunE.
func withApp(fn func(ctx context.Context, a *application, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := newApplication(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(ctx, a, cmd, args)
	}
}
