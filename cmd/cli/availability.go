package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
)

var (
	availabilityTarget   string
	availabilityDeadline time.Duration
	availabilityFormat   string
)

// availabilityCmd represents the availability command
var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Decide whether a host is reachable",
	Long: `Run every configured reachability probe, the firewall classifier and a
short port probe against one host and report whether any of them saw it
answer, together with the verdict of each firewall technique.`,
	Example: `  recon availability --target 192.0.2.10
  recon availability --target gw.example --deadline 20s --format json`,
	RunE: runAvailability,
}

func init() {
	rootCmd.AddCommand(availabilityCmd)

	availabilityCmd.Flags().StringVarP(&availabilityTarget, "target", "t", "", "Hostname or IP address to check")
	availabilityCmd.Flags().DurationVar(&availabilityDeadline, "deadline", 0, "Overall deadline (default from config)")
	availabilityCmd.Flags().StringVarP(&availabilityFormat, "format", "f", formatTable, "Output format: table or json")

	_ = availabilityCmd.MarkFlagRequired("target")
}

func runAvailability(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(availabilityFormat, false); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine := buildEngine(cfg, metrics.GetGlobalMetrics(), logging.Default())

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	record, err := engine.AssessAvailability(ctx, availabilityTarget, availabilityDeadline)
	if err != nil && !recerrors.IsCode(err, recerrors.CodeCanceled) {
		return err
	}
	if werr := writeAvailability(cmd.OutOrStdout(), record, availabilityFormat); werr != nil {
		return werr
	}
	return err
}
