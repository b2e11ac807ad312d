package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/recon/internal/api"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve assessments over HTTP",
	Long: `Start the HTTP API. POST /api/v1/assess runs one assessment per request,
GET /api/v1/liveness reports that the server is up and GET /metrics exposes
the Prometheus metrics of every assessment served.`,
	Example: `  recon serve
  recon serve --listen 0.0.0.0 --port 9090
  RECON_API_PORT=9090 recon serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "Address to listen on (default from config)")
	serveCmd.Flags().Int("port", 0, "Port to listen on (default from config)")

	for key, flag := range map[string]string{"api.listen_addr": "listen", "api.port": "port"} {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag, err)
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.Default()
	pm := metrics.GetGlobalMetrics()

	server, err := api.New(cfg.API, buildEngine(cfg, pm, logger), pm, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", cfg.GetAPIAddress())
	return server.Start(ctx)
}
