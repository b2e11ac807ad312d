package nmapscan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ullaakut/nmap/v3"

	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/ports"
)

const (
	toolName = "nmap"

	defaultOperationTimeout = 3 * time.Minute
	defaultHostTimeout      = 2 * time.Minute
	defaultGrace            = 2 * time.Second
)

// Config configures an Adapter.
type Config struct {
	BinaryPath       string
	OperationTimeout time.Duration
	HostTimeout      time.Duration
	ServiceDetection bool
	VersionIntensity int
	Timing           int
	// Grace is how long Scan waits for a runner that ignored its deadline.
	Grace   time.Duration
	Runner  Runner
	Metrics metrics.ScanMetrics
	Logger  *logging.Logger
}

// Adapter runs delegated port scans.
type Adapter struct {
	cfg     Config
	runner  Runner
	metrics metrics.ScanMetrics
	logger  *logging.Logger
}

// NewAdapter creates an adapter. A nil Runner means the nmap library.
func NewAdapter(cfg Config) *Adapter {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = defaultOperationTimeout
	}
	if cfg.HostTimeout <= 0 {
		cfg.HostTimeout = defaultHostTimeout
	}
	if cfg.Grace <= 0 {
		cfg.Grace = defaultGrace
	}
	runner := cfg.Runner
	if runner == nil {
		runner = LibraryRunner{}
	}
	return &Adapter{
		cfg:     cfg,
		runner:  runner,
		metrics: metrics.OrNop(cfg.Metrics),
		logger:  logging.OrDefault(cfg.Logger).WithComponent("nmap"),
	}
}

// Method identifies the delegated scan as an evidence source.
func (a *Adapter) Method() model.ProbeMethod {
	return model.ProbeMethod{Kind: model.KindDelegated, Name: toolName, Timeout: a.cfg.OperationTimeout}
}

// BuildOptionSet describes the scan of target with technique.
func (a *Adapter) BuildOptionSet(target model.Target, technique model.Technique) OptionSet {
	return OptionSet{
		Targets:           []string{target.DialHost()},
		Ports:             ports.Format(target.Ports),
		Technique:         technique,
		ServiceInfo:       a.cfg.ServiceDetection,
		VersionIntensity:  a.cfg.VersionIntensity,
		Timing:            a.cfg.Timing,
		SkipHostDiscovery: true,
		HostTimeout:       a.cfg.HostTimeout,
		BinaryPath:        a.cfg.BinaryPath,
	}
}

type runResult struct {
	run      *nmap.Run
	warnings []string
	err      error
}

// Scan runs the delegated scan. It returns within the operation deadline
// plus grace no matter what the runner does. Any error means the delegated
// scan is unavailable for this assessment.
func (a *Adapter) Scan(ctx context.Context, target model.Target, technique model.Technique) (Outcome, error) {
	set := a.BuildOptionSet(target, technique)
	start := time.Now()

	opCtx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()

	a.logger.Debug("starting delegated scan", "target", target.Host, "command", set.String())

	done := make(chan runResult, 1)
	go func() {
		run, warnings, err := a.runner.Run(opCtx, set)
		done <- runResult{run: run, warnings: warnings, err: err}
	}()

	var res runResult
	select {
	case res = <-done:
	case <-opCtx.Done():
		select {
		case res = <-done:
		case <-time.After(a.cfg.Grace):
			res = runResult{err: fmt.Errorf("nmap did not exit after deadline: %w", opCtx.Err())}
		}
	}

	if res.err != nil {
		reason := unavailableReason(res.err)
		a.metrics.RecordProbe(toolName, "unavailable", time.Since(start))
		a.logger.WarnProbe(toolName, res.err, "target", target.Host, "reason", reason)
		return Outcome{}, recerrors.ErrToolUnavailable(toolName, res.err).WithContext("reason", reason)
	}
	if len(res.warnings) > 0 {
		a.logger.Debug("nmap reported warnings", "target", target.Host, "warnings", res.warnings)
	}

	out, err := Convert(res.run, a.Method())
	if err != nil {
		a.metrics.RecordProbe(toolName, "unparseable", time.Since(start))
		a.logger.WarnProbe(toolName, err, "target", target.Host)
		return Outcome{}, recerrors.ErrToolUnavailable(toolName, err).WithContext("reason", "unrecognized output")
	}

	a.metrics.RecordProbe(toolName, "success", time.Since(start))
	a.logger.Debug("delegated scan finished",
		"target", target.Host, "records", len(out.Records), "host_up", out.HostUp, "duration", time.Since(start))
	return out, nil
}

func unavailableReason(err error) string {
	switch {
	case errors.Is(err, nmap.ErrNmapNotInstalled):
		return "nmap not installed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nmap.ErrScanTimeout):
		return "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "nmap failed"
	}
}
