package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dukerupert/parcel/internal"
	"github.com/dukerupert/parcel/internal/address"
	"github.com/dukerupert/parcel/internal/shipping"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what every subcommand needs.
type app struct {
	v   *viper.Viper
	out io.Writer

	// provider builds the MyParcel provider once flags are parsed.
	provider func(a *app) shipping.Provider
}

func (a *app) apiKey() (string, error) {
	key := strings.TrimSpace(a.v.GetString("api-key"))
	if key == "" {
		return "", shipping.ErrMissingAPIKey
	}
	return key, nil
}

func (a *app) logger() *slog.Logger {
	return internal.NewLogger(os.Stderr, "dev", a.v.GetString("log-level"))
}

// newRootCmd builds the command tree. A nil provider talks to the real API.
func newRootCmd(out io.Writer, provider func(a *app) shipping.Provider) *cobra.Command {
	a := &app{v: viper.New(), out: out, provider: provider}
	if a.provider == nil {
		a.provider = clientProvider
	}

	rootCmd := &cobra.Command{
		Use:           "parcel",
		Short:         "MyParcel street splitter and shipment client",
		Long:          `Decompose Dutch and Belgian street lines and create, track, label and delete MyParcel shipments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml, default $HOME/.parcel.yaml)")
	flags.String("api-key", "", "MyParcel API key (env MYPARCEL_API_KEY)")
	flags.String("base-url", shipping.DefaultBaseURL, "MyParcel API base URL (env MYPARCEL_BASE_URL)")
	flags.Duration("timeout", 30*time.Second, "HTTP timeout per request (env MYPARCEL_TIMEOUT)")
	flags.Int("max-retries", 3, "retries of idempotent requests (env MYPARCEL_MAX_RETRIES)")
	flags.String("log-level", "warn", "debug, info, warn or error (env LOG_LEVEL)")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix("MYPARCEL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindEnv("log-level", "LOG_LEVEL")

	rootCmd.AddCommand(
		newSplitCmd(a),
		newCreateCmd(a),
		newStatusCmd(a),
		newRecentCmd(a),
		newLabelsCmd(a),
		newDeleteCmd(a),
		newReturnMailCmd(a),
	)
	return rootCmd
}

// loadConfig reads --config, or $HOME/.parcel.yaml when present.
func (a *app) loadConfig() error {
	path := a.v.GetString("config")
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return err
		}
		a.v.SetConfigFile(expanded)
		return a.v.ReadInConfig()
	}

	home, err := homedir.Dir()
	if err != nil {
		return nil
	}
	a.v.AddConfigPath(home)
	a.v.SetConfigName(".parcel")
	a.v.SetConfigType("yaml")
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

func clientProvider(a *app) shipping.Provider {
	return shipping.NewClient(shipping.Config{
		BaseURL:    a.v.GetString("base-url"),
		Platform:   "parcel-cli",
		Timeout:    a.v.GetDuration("timeout"),
		MaxRetries: a.v.GetInt("max-retries"),
		Logger:     a.logger(),
		Validator:  address.NewBasicValidator(),
	})
}

// parseIDArgs accepts "1 2", "1;2" or "1,2" style arguments.
func parseIDArgs(args []string) ([]int, error) {
	return shipping.ParseIDs(strings.Join(args, " "))
}

// registered returns a collection for ids owned by the configured key.
func (a *app) registered(args []string) (*shipping.Collection, error) {
	key, err := a.apiKey()
	if err != nil {
		return nil, err
	}
	ids, err := parseIDArgs(args)
	if err != nil {
		return nil, err
	}
	return shipping.RegisteredCollection(key, ids)
}
