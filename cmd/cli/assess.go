package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/scanning"
)

var (
	assessTarget    string
	assessPorts     string
	assessTechnique string
	assessDeadline  time.Duration
	assessOutput    string
	assessFormat    string
)

// assessCmd represents the assess command
var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess the ports and availability of one host",
	Long: `Assess one host: enumerate the requested ports, classify what a firewall
lets through and decide whether the host is reachable. nmap is used when it
is installed; otherwise ports are probed with plain TCP connects.

The whole assessment is bounded by --deadline. When it runs out the result
is marked partial and still contains every port that was classified.`,
	Example: `  recon assess --target 192.0.2.10
  recon assess --target scanme.example --ports 22,80,443 --technique syn
  recon assess --target 10.0.0.5 --ports 1-1024 --deadline 2m --format json
  recon assess --target 10.0.0.5 --output result.xml`,
	RunE: runAssess,
}

func init() {
	rootCmd.AddCommand(assessCmd)

	assessCmd.Flags().StringVarP(&assessTarget, "target", "t", "", "Hostname or IP address to assess")
	assessCmd.Flags().StringVarP(&assessPorts, "ports", "p", "", "Ports to probe, e.g. '22,80,443' or '1-1024' (default from config)")
	assessCmd.Flags().StringVar(&assessTechnique, "technique", "", "Scan technique: connect, syn or udp (default from config)")
	assessCmd.Flags().DurationVar(&assessDeadline, "deadline", 0, "Overall deadline (default from config)")
	assessCmd.Flags().StringVarP(&assessOutput, "output", "o", "", "Also write the result to this file (.json for JSON, XML otherwise)")
	assessCmd.Flags().StringVarP(&assessFormat, "format", "f", formatTable, "Output format: table, json or xml")
	assessCmd.Flags().Bool("cross-check", false, "Run the TCP connect fallback even when nmap succeeded")
	assessCmd.Flags().Bool("no-nmap", false, "Do not use nmap even when it is installed")

	_ = assessCmd.MarkFlagRequired("target")

	if err := viper.BindPFlag("scanning.cross_check", assessCmd.Flags().Lookup("cross-check")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind cross-check flag: %v\n", err)
	}
}

func runAssess(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(assessFormat, true); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noNmap, _ := cmd.Flags().GetBool("no-nmap"); noNmap {
		cfg.Nmap.Enabled = false
	}

	logger := logging.Default()
	engine := buildEngine(cfg, metrics.GetGlobalMetrics(), logger)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, assessErr := engine.Assess(ctx, scanning.Request{
		Target:    assessTarget,
		Ports:     assessPorts,
		Technique: model.Technique(assessTechnique),
		Deadline:  assessDeadline,
	})
	if result == nil {
		return assessErr
	}

	if assessOutput != "" {
		if err := scanning.SaveResults(result, assessOutput); err != nil {
			return err
		}
		logger.Info("Result written", "path", assessOutput, "assessment_id", result.ID)
	}

	if err := writeResult(cmd.OutOrStdout(), result, assessFormat); err != nil {
		return err
	}

	if recerrors.IsCode(assessErr, recerrors.CodeCanceled) {
		return fmt.Errorf("interrupted, result is partial: %w", assessErr)
	}
	return assessErr
}
