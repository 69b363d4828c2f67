// Package cli is the camdash command line: the dashboard server plus a few
// one-shot commands against the camera server and the activity journal.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"camdash/internal/apiclient"
	"camdash/internal/config"
	"camdash/internal/logger"
)

// Env is shared by every command. config and logger are set in the
// persistent pre-run.
type Env struct {
	viper      *viper.Viper
	configFile string

	config *config.Config
	logger *logger.Logger
}

// RootCommand creates the camdash command tree.
func RootCommand() *cobra.Command {
	env := &Env{viper: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:           "camdash",
		Short:         "Camera snapshot review dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Flags are bound to viper; a flag given on the command line wins over
	// the environment and the config file.
	if err := setupFlags(rootCmd.PersistentFlags(), env); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		serveCommand(env),
		exportCommand(env),
		downloadCommand(env),
		analyzeCommand(env),
		statsCommand(env),
		activityCommand(env),
		migrateCommand(env),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return env.load()
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return env.close()
	}

	return rootCmd
}

func setupFlags(flags *pflag.FlagSet, env *Env) error {
	flags.StringVar(&env.configFile, "config", "", "Path to a camdash.yaml config file")
	flags.Int("port", 8080, "HTTP port of the dashboard")
	flags.String("backend-url", "http://localhost:5000", "Base URL of the camera server")
	flags.String("log-dir", "./logs", "Directory of the log files")
	flags.String("log-level", "info", "Log level: debug, info, warning, error")
	flags.String("db", "./data/camdash.db", "Path of the activity database")
	flags.String("locale", "pt-BR", "Locale of exported dates")

	bindings := map[string]string{
		config.KeyPort:       "port",
		config.KeyBackendURL: "backend-url",
		config.KeyLogDir:     "log-dir",
		config.KeyLogLevel:   "log-level",
		config.KeyDBPath:     "db",
		config.KeyLocale:     "locale",
	}
	for key, name := range bindings {
		if err := env.viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

func (e *Env) load() error {
	if e.configFile != "" {
		e.viper.SetConfigFile(e.configFile)
	}
	cfg, err := config.Load(e.viper)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return err
	}
	e.config = cfg
	e.logger = log
	return nil
}

func (e *Env) close() error {
	if e.logger == nil {
		return nil
	}
	return e.logger.Close()
}

func (e *Env) backend() (*apiclient.Client, error) {
	return apiclient.New(apiclient.Config{
		BaseURL:        e.config.BackendURL,
		DefaultTimeout: e.config.RequestTimeout,
	})
}
