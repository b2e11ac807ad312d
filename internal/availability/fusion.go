// Package availability fuses independent reachability, firewall and port
// evidence into one AvailabilityRecord per target.
package availability

import (
	"context"
	"sync"
	"time"

	"github.com/anstrom/recon/internal/discovery"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/ports"
)

const (
	defaultProbeTimeout = 30 * time.Second
	defaultGrace        = 2 * time.Second
)

// Classifier produces one filter verdict per firewall technique.
type Classifier interface {
	Method() model.ProbeMethod
	Techniques() []string
	Run(ctx context.Context, host string) map[string]model.FilterVerdict
}

// PortProbe enumerates the ports of target with whatever strategy the
// caller prefers.
type PortProbe func(ctx context.Context, target model.Target) ([]model.PortRecord, error)

// Config configures an Engine.
type Config struct {
	Probers      []discovery.Prober
	Classifier   Classifier
	PortProbe    PortProbe
	ProbePorts   []uint16
	ProbeTimeout time.Duration
	Grace        time.Duration
	Metrics      metrics.ScanMetrics
	Logger       *logging.Logger
}

// Engine runs availability assessments. It holds no per-target state;
// every Assess call gets its own session.
type Engine struct {
	probers      []discovery.Prober
	classifier   Classifier
	portProbe    PortProbe
	probePorts   []uint16
	probeTimeout time.Duration
	grace        time.Duration
	metrics      metrics.ScanMetrics
	logger       *logging.Logger
}

// NewEngine creates a fusion engine.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		probers:      cfg.Probers,
		classifier:   cfg.Classifier,
		portProbe:    cfg.PortProbe,
		probePorts:   cfg.ProbePorts,
		probeTimeout: cfg.ProbeTimeout,
		grace:        cfg.Grace,
		metrics:      metrics.OrNop(cfg.Metrics),
		logger:       logging.OrDefault(cfg.Logger).WithComponent("availability"),
	}
	if e.probeTimeout <= 0 {
		e.probeTimeout = defaultProbeTimeout
	}
	if e.grace <= 0 {
		e.grace = defaultGrace
	}
	return e
}

// Assess launches every configured source against target concurrently and
// returns once all have finished, or once ctx is done and the grace period
// has passed. In the second case the record holds whatever had arrived and
// is marked partial.
func (e *Engine) Assess(ctx context.Context, target model.Target) model.AvailabilityRecord {
	s := newSession(target.Host)
	if e.classifier != nil {
		s.seedFindings(e.classifier.Techniques())
	}
	s.transition(StateProbing)

	var wg sync.WaitGroup
	for _, p := range e.probers {
		wg.Add(1)
		go func(p discovery.Prober) {
			defer wg.Done()
			e.runReachability(ctx, s, p, target)
		}(p)
	}
	if e.classifier != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runClassifier(ctx, s, target)
		}()
	}
	if e.portProbe != nil && len(e.probePorts) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runPortProbe(ctx, s, target)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// sources cut short by ctx still make the record partial
		return s.merge(ctx.Err() != nil)
	case <-ctx.Done():
	}

	grace := time.NewTimer(e.grace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		e.logger.Warn("availability sources still running after grace period", "target", target.Host)
	}
	return s.merge(true)
}

func (e *Engine) runReachability(ctx context.Context, s *session, p discovery.Prober, target model.Target) {
	method := p.Method()
	start := time.Now()
	r := p.Probe(ctx, target.DialHost())

	outcome := "silent"
	switch {
	case r.Alive:
		outcome = "alive"
	case r.Err != nil:
		outcome = "error"
		e.logger.WarnProbe(method.Name, r.Err, "target", target.Host)
	}
	e.metrics.RecordProbe(method.Name, outcome, time.Since(start))

	if r.Alive {
		s.update(func(rec *model.AvailabilityRecord) {
			rec.IsAvailable = true
			rec.AddMethod(method)
			if r.RTT > 0 {
				rec.ObserveRTT(r.RTT)
			}
		})
	}
}

func (e *Engine) runClassifier(ctx context.Context, s *session, target model.Target) {
	findings := e.classifier.Run(ctx, target.DialHost())

	s.update(func(rec *model.AvailabilityRecord) {
		positive := false
		for name, verdict := range findings {
			rec.FirewallFindings[name] = verdict
			if verdict.Positive() {
				positive = true
			}
		}
		if positive {
			rec.AddMethod(e.classifier.Method())
		}
	})
}

func (e *Engine) runPortProbe(ctx context.Context, s *session, target model.Target) {
	pctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	constrained := model.Target{
		Host:     target.Host,
		Address:  target.Address,
		PortSpec: ports.Format(e.probePorts),
		Ports:    e.probePorts,
	}

	start := time.Now()
	records, err := e.portProbe(pctx, constrained)
	if err != nil {
		e.logger.WarnProbe("port-probe", err, "target", target.Host)
		e.metrics.RecordProbe("port-probe", "error", time.Since(start))
		return
	}

	var open []model.PortRecord
	for _, r := range records {
		if r.State == model.StateOpen {
			open = append(open, r)
		}
	}
	outcome := "closed"
	if len(open) > 0 {
		outcome = "open"
	}
	e.metrics.RecordProbe("port-probe", outcome, time.Since(start))
	e.logger.DebugProbe("port-probe", outcome, "target", target.Host, "open", len(open))

	if len(open) == 0 {
		return
	}
	s.update(func(rec *model.AvailabilityRecord) {
		rec.IsAvailable = true
		for _, r := range open {
			rec.AddMethod(r.Source)
		}
	})
}
