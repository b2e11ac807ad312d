package scanning

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/ports"
)

const (
	defaultDialTimeout = 2 * time.Second
	defaultPoolWidth   = 100
	fallbackName       = "tcp-connect"
)

// SocketProberConfig configures the TCP connect fallback.
type SocketProberConfig struct {
	Width       int
	DialTimeout time.Duration
	MaxPorts    int
	Dialer      Dialer
	Metrics     metrics.ScanMetrics
	Logger      *logging.Logger
}

// SocketProber enumerates ports with plain TCP connects over a bounded
// pool. It needs no privileges and no external tools.
type SocketProber struct {
	width       int
	dialTimeout time.Duration
	maxPorts    int
	dialer      Dialer
	metrics     metrics.ScanMetrics
	logger      *logging.Logger
}

// NewSocketProber creates a socket prober.
func NewSocketProber(cfg SocketProberConfig) *SocketProber {
	p := &SocketProber{
		width:       cfg.Width,
		dialTimeout: cfg.DialTimeout,
		maxPorts:    cfg.MaxPorts,
		dialer:      cfg.Dialer,
		metrics:     metrics.OrNop(cfg.Metrics),
		logger:      logging.OrDefault(cfg.Logger).WithComponent("socket-prober"),
	}
	if p.width <= 0 {
		p.width = defaultPoolWidth
	}
	if p.dialTimeout <= 0 {
		p.dialTimeout = defaultDialTimeout
	}
	if p.dialer == nil {
		p.dialer = &net.Dialer{}
	}
	return p
}

// Method identifies the fallback as an evidence source.
func (p *SocketProber) Method() model.ProbeMethod {
	return model.ProbeMethod{Kind: model.KindFallback, Name: fallbackName, Timeout: p.dialTimeout}
}

// Probe dials every candidate port. Ports not attempted before ctx ends
// are left out of the outcome rather than reported with a guessed state.
func (p *SocketProber) Probe(ctx context.Context, target model.Target, technique model.Technique) (ProbeOutcome, error) {
	if technique.Protocol() != model.ProtocolTCP {
		p.logger.Info("socket fallback only covers tcp, skipping", "target", target.Host, "technique", technique)
		return ProbeOutcome{}, nil
	}

	candidates, truncated := ports.Cap(target.Ports, p.maxPorts)
	if truncated {
		p.logger.Warn("port list capped for socket fallback",
			"target", target.Host, "requested", len(target.Ports), "probing", len(candidates))
	}

	rm := NewFixedResourceManager(p.width, p.metrics)
	defer func() { _ = rm.Close() }()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		records = make([]model.PortRecord, 0, len(candidates))
		host    = target.DialHost()
		method  = p.Method()
		start   = time.Now()
	)

	for _, port := range candidates {
		id := strconv.Itoa(int(port))
		if err := rm.Acquire(ctx, id); err != nil {
			break
		}

		wg.Add(1)
		go func(port uint16, id string) {
			defer wg.Done()
			defer rm.Release(id)

			state, ok := p.probePort(ctx, host, port)
			if !ok {
				return
			}
			rec := model.NewPortRecord(port, model.ProtocolTCP, state, method)
			rec.Service = ports.ServiceName(port, false)

			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
		}(port, id)
	}
	wg.Wait()

	partial := ctx.Err() != nil
	p.logger.Debug("socket probe finished",
		"target", target.Host,
		"attempted", len(records),
		"candidates", len(candidates),
		"pool_width", rm.Capacity(),
		"peak_concurrency", rm.Peak(),
		"partial", partial,
		"duration", time.Since(start))

	return ProbeOutcome{Records: records, Truncated: truncated, Partial: partial}, nil
}

// probePort returns false when the dial was cut short by the overall
// context, since that says nothing about the port.
func (p *SocketProber) probePort(ctx context.Context, host string, port uint16) (model.PortState, bool) {
	dctx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err == nil {
		_ = conn.Close()
		return model.StateOpen, true
	}
	if ctx.Err() != nil {
		return "", false
	}
	return classifyDialError(err), true
}

// classifyDialError maps a failed connect onto a port state. Only an
// explicit refusal proves the port closed.
func classifyDialError(err error) model.PortState {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return model.StateClosed
	}
	return model.StateFiltered
}
