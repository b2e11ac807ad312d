package discovery

import (
	"context"
	"time"

	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/nmapscan"
)

// NmapPingConfig configures an NmapPingProber.
type NmapPingConfig struct {
	BinaryPath string
	Timeout    time.Duration
	Runner     nmapscan.Runner
	Logger     *logging.Logger
}

// NmapPingProber runs an nmap host discovery scan (-sn) against one host.
type NmapPingProber struct {
	cfg    NmapPingConfig
	logger *logging.Logger
}

// NewNmapPingProber creates an nmap ping prober.
func NewNmapPingProber(cfg NmapPingConfig) *NmapPingProber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Runner == nil {
		cfg.Runner = nmapscan.LibraryRunner{}
	}
	return &NmapPingProber{cfg: cfg, logger: logging.OrDefault(cfg.Logger).WithComponent("nmap-ping")}
}

// Method identifies the prober.
func (p *NmapPingProber) Method() model.ProbeMethod {
	return model.ProbeMethod{Kind: model.KindReachability, Name: "nmap-ping", Timeout: p.cfg.Timeout}
}

// OptionSet returns the ping scan invocation for host.
func (p *NmapPingProber) OptionSet(host string) nmapscan.OptionSet {
	return nmapscan.OptionSet{
		Targets:    []string{host},
		PingOnly:   true,
		Timing:     nmapscan.TimingForTimeout(p.cfg.Timeout),
		BinaryPath: p.cfg.BinaryPath,
	}
}

// Probe runs the ping scan. nmap leaves hosts that did not answer out of
// its report, so an empty run means the host is down.
func (p *NmapPingProber) Probe(ctx context.Context, host string) Reachability {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	run, _, err := p.cfg.Runner.Run(opCtx, p.OptionSet(host))
	if err != nil {
		p.logger.WarnProbe("nmap-ping", err, "target", host)
		return Reachability{Err: err}
	}
	if run != nil && len(run.Hosts) == 0 {
		return Reachability{}
	}

	out, err := nmapscan.Convert(run, p.Method())
	if err != nil {
		p.logger.WarnProbe("nmap-ping", err, "target", host)
		return Reachability{Err: err}
	}

	outcome := "down"
	if out.HostUp {
		outcome = "alive"
	}
	p.logger.DebugProbe("nmap-ping", outcome, "target", host, "elapsed", time.Since(start))
	// -sn reports no per-host round trip, so RTT stays unknown.
	return Reachability{Alive: out.HostUp}
}
