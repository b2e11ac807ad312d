package discovery

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-ping/ping"

	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/model"
)

const stopSlack = 500 * time.Millisecond

// Pinger is the subset of *ping.Pinger the ICMP prober drives.
type Pinger interface {
	Run() error
	Stop()
	Statistics() *ping.Statistics

	SetPrivileged(bool)
	SetCount(int)
	SetInterval(time.Duration)
	SetTimeout(time.Duration)
}

// PingerFactory creates a pinger for host.
type PingerFactory func(host string) (Pinger, error)

// ICMPConfig configures an ICMPProber.
type ICMPConfig struct {
	Count      int
	Interval   time.Duration
	Timeout    time.Duration
	Privileged bool
	Factory    PingerFactory
	Logger     *logging.Logger
}

// ICMPProber sends ICMP echo requests with go-ping.
type ICMPProber struct {
	cfg    ICMPConfig
	logger *logging.Logger
}

// NewICMPProber creates an ICMP prober. Privileged mode is dropped when
// the process cannot open raw sockets.
func NewICMPProber(cfg ICMPConfig) *ICMPProber {
	logger := logging.OrDefault(cfg.Logger).WithComponent("icmp")

	if cfg.Count < 1 {
		cfg.Count = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Factory == nil {
		cfg.Factory = newRealPinger
	}
	if cfg.Privileged && runtime.GOOS != "windows" && os.Geteuid() != 0 {
		logger.Warn("privileged ping requested but not running as root, using unprivileged mode")
		cfg.Privileged = false
	}

	return &ICMPProber{cfg: cfg, logger: logger}
}

// Method identifies the prober.
func (p *ICMPProber) Method() model.ProbeMethod {
	return model.ProbeMethod{Kind: model.KindReachability, Name: "icmp-echo", Timeout: p.cfg.Timeout}
}

// Probe pings host. The pinger is stopped as soon as ctx ends; replies
// received before that still count.
func (p *ICMPProber) Probe(ctx context.Context, host string) Reachability {
	pinger, err := p.cfg.Factory(host)
	if err != nil {
		return Reachability{Err: fmt.Errorf("create pinger for %s: %w", host, err)}
	}

	pinger.SetPrivileged(p.cfg.Privileged)
	pinger.SetCount(p.cfg.Count)
	pinger.SetInterval(p.cfg.Interval)
	pinger.SetTimeout(p.cfg.Timeout)

	opCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout+stopSlack)
	defer cancel()

	stop := context.AfterFunc(opCtx, pinger.Stop)
	defer stop()

	runErr := pinger.Run()
	stats := pinger.Statistics()

	if stats != nil && stats.PacketsRecv > 0 {
		p.logger.DebugProbe("icmp-echo", "alive", "target", host, "received", stats.PacketsRecv, "min_rtt", stats.MinRtt)
		return Reachability{Alive: true, RTT: stats.MinRtt}
	}

	switch {
	case runErr != nil:
		return Reachability{Err: runErr}
	case ctx.Err() != nil:
		return Reachability{Err: ctx.Err()}
	}
	p.logger.DebugProbe("icmp-echo", "silent", "target", host)
	return Reachability{}
}

type realPingerAdapter struct {
	p *ping.Pinger
}

func newRealPinger(host string) (Pinger, error) {
	p, err := ping.NewPinger(host)
	if err != nil {
		return nil, err
	}
	return &realPingerAdapter{p: p}, nil
}

func (r *realPingerAdapter) Run() error                   { return r.p.Run() }
func (r *realPingerAdapter) Stop()                        { r.p.Stop() }
func (r *realPingerAdapter) Statistics() *ping.Statistics { return r.p.Statistics() }
func (r *realPingerAdapter) SetPrivileged(v bool)         { r.p.SetPrivileged(v) }
func (r *realPingerAdapter) SetCount(c int)               { r.p.Count = c }
func (r *realPingerAdapter) SetInterval(i time.Duration)  { r.p.Interval = i }
func (r *realPingerAdapter) SetTimeout(t time.Duration)   { r.p.Timeout = t }
