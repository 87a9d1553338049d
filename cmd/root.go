package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/matchagig/internal/chat"
	"github.com/spigell/matchagig/internal/matchagig"
	"github.com/spigell/matchagig/internal/session"
	"github.com/spigell/matchagig/internal/store"
)

const (
	app       = "matchagig"
	envPrefix = "MATCHAGIG"
	tokenEnv  = envPrefix + "_API_TOKEN"
)

type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Store    store.Config   `mapstructure:"store"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Overview OverviewConfig `mapstructure:"overview"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

type BackendConfig struct {
	BaseURL   string        `mapstructure:"base-url" validate:"omitempty,url"`
	TokenFile string        `mapstructure:"token-file"`
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type UploadConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=32"`
}

type OverviewConfig struct {
	Attempts int           `mapstructure:"attempts" validate:"gte=1,lte=10"`
	Delay    time.Duration `mapstructure:"delay" validate:"gte=0"`
}

type ChatConfig struct {
	MaxLogLength int `mapstructure:"max-log-length" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "matchagig is a cli for screening resumes against a job description with the MatchaGig backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command and prints a user-facing line on failure.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describeError(err))
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is matchagig.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every config key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base-url", "http://localhost:8000")
	v.SetDefault("backend.token-file", "")
	v.SetDefault("backend.user-agent", "")
	v.SetDefault("backend.timeout", 2*time.Minute)
	v.SetDefault("store.driver", store.DriverBolt)
	v.SetDefault("store.path", "")
	v.SetDefault("store.postgres-url", "")
	v.SetDefault("upload.concurrency", 4)
	v.SetDefault("overview.attempts", 3)
	v.SetDefault("overview.delay", 2*time.Second)
	v.SetDefault("chat.max-log-length", 200)
}

// bindEnv maps backend.base-url to MATCHAGIG_BACKEND_BASE_URL and so on.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The config file is optional unless it was requested explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if config.Store.Driver == store.DriverPostgres && strings.TrimSpace(config.Store.PostgresURL) == "" {
		return nil, errors.New("validating config: store.postgres-url is required for the postgres driver")
	}

	return &config, nil
}

// describeError turns err into the single line shown to the user.
func describeError(err error) string {
	var precondition *chat.PreconditionError
	switch {
	case errors.As(err, &precondition):
		return precondition.Error()
	case errors.Is(err, session.ErrCandidateNotFound),
		errors.Is(err, session.ErrNoCandidate),
		errors.Is(err, session.ErrNoJobContext),
		errors.Is(err, store.ErrNotFound):
		return err.Error()
	default:
		return matchagig.FriendlyMessage(err)
	}
}
