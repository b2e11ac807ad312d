package firewall

import (
	"context"
	"sync"
	"time"

	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/procexec"
)

// Technique is one independent way of probing for filtering.
type Technique interface {
	Name() string
	Observe(ctx context.Context, host string) Observation
}

// Config configures a Classifier.
type Config struct {
	Techniques       []Technique
	TechniqueTimeout time.Duration
	Metrics          metrics.ScanMetrics
	Logger           *logging.Logger
}

// Classifier runs techniques concurrently and collects one verdict each.
type Classifier struct {
	techniques []Technique
	timeout    time.Duration
	metrics    metrics.ScanMetrics
	logger     *logging.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(cfg Config) *Classifier {
	timeout := cfg.TechniqueTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Classifier{
		techniques: cfg.Techniques,
		timeout:    timeout,
		metrics:    metrics.OrNop(cfg.Metrics),
		logger:     logging.OrDefault(cfg.Logger).WithComponent("firewall"),
	}
}

// TechniqueSpec names a technique in configuration.
type TechniqueSpec struct {
	Name         string
	Hping3Path   string
	ProbePort    int
	Count        int
	ConnectPorts []uint16
	DialTimeout  time.Duration
	Runner       procexec.Runner
	Dialer       Dialer
}

// BuildTechnique maps a configured technique name onto an implementation.
// The hping3 set mirrors the classic SYN, FIN, ACK and ICMP probes.
func BuildTechnique(spec TechniqueSpec) (Technique, bool) {
	switch spec.Name {
	case "tcp_syn":
		return NewHpingTechnique(spec.Name, spec.Hping3Path, spec.ProbePort, spec.Count, spec.Runner, "-S"), true
	case "tcp_fin":
		return NewHpingTechnique(spec.Name, spec.Hping3Path, spec.ProbePort, spec.Count, spec.Runner, "-F"), true
	case "tcp_ack":
		return NewHpingTechnique(spec.Name, spec.Hping3Path, spec.ProbePort, spec.Count, spec.Runner, "-A"), true
	case "icmp_ping":
		return NewHpingTechnique(spec.Name, spec.Hping3Path, spec.ProbePort, spec.Count, spec.Runner, "-1"), true
	case "tcp_connect":
		return NewConnectTechnique(spec.ConnectPorts, spec.DialTimeout, spec.Dialer), true
	}
	return nil, false
}

// Method identifies the classifier as an evidence source.
func (c *Classifier) Method() model.ProbeMethod {
	return model.ProbeMethod{Kind: model.KindFirewall, Name: "firewall-classifier", Timeout: c.timeout}
}

// Techniques returns the configured technique names in order.
func (c *Classifier) Techniques() []string {
	names := make([]string, 0, len(c.techniques))
	for _, t := range c.techniques {
		names = append(names, t.Name())
	}
	return names
}

// Run executes every technique against host and returns a verdict per
// technique. Every technique appears in the result; one that did not
// finish before ctx ended is reported as error.
func (c *Classifier) Run(ctx context.Context, host string) map[string]model.FilterVerdict {
	findings := make(map[string]model.FilterVerdict, len(c.techniques))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, tech := range c.techniques {
		wg.Add(1)
		go func(tech Technique) {
			defer wg.Done()

			tctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			obs := tech.Observe(tctx, host)
			verdict := Classify(obs)

			c.metrics.RecordVerdict(tech.Name(), string(verdict))
			c.metrics.RecordProbe(tech.Name(), string(verdict), time.Since(start))
			if obs.Err != nil && verdict == model.VerdictError {
				c.logger.WarnProbe(tech.Name(), obs.Err, "target", host)
			} else {
				c.logger.DebugProbe(tech.Name(), string(verdict),
					"target", host, "sent", obs.Sent, "received", obs.Received, "loss", obs.LossPercent)
			}

			mu.Lock()
			findings[tech.Name()] = verdict
			mu.Unlock()
		}(tech)
	}
	wg.Wait()

	return findings
}
