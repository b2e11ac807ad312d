// Package discovery answers a single question about a host: does it
// respond at all. It offers ICMP echo and an nmap ping scan as
// independent reachability probers.
package discovery

import (
	"context"
	"time"

	"github.com/anstrom/recon/internal/model"
)

// Reachability is the outcome of one reachability probe.
type Reachability struct {
	Alive bool
	// RTT is the fastest observed round trip. Zero when unknown.
	RTT time.Duration
	Err error
}

// Prober checks whether a host responds.
type Prober interface {
	Method() model.ProbeMethod
	Probe(ctx context.Context, host string) Reachability
}

// Config selects and configures reachability probers.
type Config struct {
	Methods     []string
	PingCount   int
	PingTimeout time.Duration
	Privileged  bool
	NmapBinary  string
}

// Build returns the probers named in cfg.Methods. Unknown names are
// skipped; config validation rejects them earlier.
func Build(cfg Config, opts ...Option) []Prober {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	probers := make([]Prober, 0, len(cfg.Methods))
	for _, m := range cfg.Methods {
		switch m {
		case "icmp":
			probers = append(probers, NewICMPProber(ICMPConfig{
				Count:      cfg.PingCount,
				Timeout:    cfg.PingTimeout,
				Privileged: cfg.Privileged,
				Factory:    o.pingerFactory,
				Logger:     o.logger,
			}))
		case "nmap":
			probers = append(probers, NewNmapPingProber(NmapPingConfig{
				BinaryPath: cfg.NmapBinary,
				Timeout:    cfg.PingTimeout,
				Runner:     o.runner,
				Logger:     o.logger,
			}))
		}
	}
	return probers
}
