// Package cli provides the cobra command tree of the recon binary:
// assessing a target, checking availability, importing nmap output and
// serving the HTTP API.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/recon/internal/config"
	"github.com/anstrom/recon/internal/logging"
)

const envPrefix = "RECON"

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "Port state and host availability assessment",
	Long: `Recon assesses a single host: which ports are open, closed or filtered,
whether the host is reachable at all and what a firewall in front of it lets
through. It delegates to nmap when available and falls back to plain TCP
connects when it is not.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig locates the config file and enables RECON_* environment overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	initLogging()
}

// loadConfig reads the config file and applies flag and environment
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies the keys that can be set from flags or RECON_*
// variables into cfg.
func applyOverrides(cfg *config.Config) {
	if viper.IsSet("scanning.cross_check") {
		cfg.Scanning.CrossCheck = viper.GetBool("scanning.cross_check")
	}
	if viper.IsSet("scanning.worker_pool_size") {
		cfg.Scanning.WorkerPoolSize = viper.GetInt("scanning.worker_pool_size")
	}
	if viper.IsSet("nmap.enabled") {
		cfg.Nmap.Enabled = viper.GetBool("nmap.enabled")
	}
	if viper.IsSet("nmap.binary_path") {
		cfg.Nmap.BinaryPath = viper.GetString("nmap.binary_path")
	}
	if viper.IsSet("firewall.hping3_path") {
		cfg.Firewall.Hping3Path = viper.GetString("firewall.hping3_path")
	}
	if viper.IsSet("availability.privileged") {
		cfg.Availability.Privileged = viper.GetBool("availability.privileged")
	}
	if viper.IsSet("api.listen_addr") {
		cfg.API.ListenAddr = viper.GetString("api.listen_addr")
	}
	if viper.IsSet("api.port") {
		cfg.API.Port = viper.GetInt("api.port")
	}
	if viper.IsSet("logging.level") {
		cfg.Logging.Level = logging.LogLevel(viper.GetString("logging.level"))
	}
	if viper.IsSet("logging.format") {
		cfg.Logging.Format = logging.LogFormat(viper.GetString("logging.format"))
	}
	if viper.GetBool("verbose") {
		cfg.Logging.Level = logging.LevelDebug
	}
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	cfg, err := loadConfig()
	if err != nil {
		logging.SetDefault(logging.NewDefault())
		fmt.Fprintf(os.Stderr, "Warning: using default logging: %v\n", err)
		return
	}

	logConfig := cfg.Logging
	logConfig.AddSource = logConfig.Level == logging.LevelDebug

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)

	if verbose {
		logging.Info("Structured logging initialized", "level", logConfig.Level, "format", logConfig.Format)
	}
}

// commandContext returns the command's context, or a background context
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
