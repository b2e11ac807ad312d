package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/recon/internal/discovery"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/model"
)

var testTarget = model.Target{Host: "host.test", Address: "192.0.2.7"}

type stubProber struct {
	name  string
	r     discovery.Reachability
	delay time.Duration
	seen  chan string
}

func (p stubProber) Method() model.ProbeMethod {
	return model.ProbeMethod{Kind: model.KindReachability, Name: p.name}
}

func (p stubProber) Probe(ctx context.Context, host string) discovery.Reachability {
	if p.seen != nil {
		p.seen <- host
	}
	select {
	case <-time.After(p.delay):
		return p.r
	case <-ctx.Done():
		return discovery.Reachability{Err: ctx.Err()}
	}
}

type stubClassifier struct {
	findings map[string]model.FilterVerdict
	block    bool
}

func (c stubClassifier) Method() model.ProbeMethod {
	return model.ProbeMethod{Kind: model.KindFirewall, Name: "firewall-classifier"}
}

func (c stubClassifier) Techniques() []string {
	return model.FindingNames(c.findings)
}

func (c stubClassifier) Run(ctx context.Context, _ string) map[string]model.FilterVerdict {
	if c.block {
		// ignores cancellation on purpose
		time.Sleep(time.Minute)
	}
	return c.findings
}

func allFindings(v model.FilterVerdict) map[string]model.FilterVerdict {
	return map[string]model.FilterVerdict{
		"tcp_syn": v, "tcp_fin": v, "tcp_ack": v, "icmp_ping": v, "tcp_connect": v,
	}
}

func fallbackRecord(port uint16, state model.PortState) model.PortRecord {
	return model.NewPortRecord(port, model.ProtocolTCP, state, model.ProbeMethod{Kind: model.KindFallback, Name: "tcp-connect"})
}

func TestAssess_UnreachableOnAllTechniques(t *testing.T) {
	findings := allFindings(model.VerdictFiltered)
	findings["tcp_ack"] = model.VerdictError

	e := NewEngine(Config{
		Probers: []discovery.Prober{
			stubProber{name: "icmp-echo"},
			stubProber{name: "nmap-ping", r: discovery.Reachability{Err: errors.New("nmap not installed")}},
		},
		Classifier: stubClassifier{findings: findings},
		PortProbe: func(context.Context, model.Target) ([]model.PortRecord, error) {
			return []model.PortRecord{fallbackRecord(22, model.StateFiltered), fallbackRecord(80, model.StateFiltered)}, nil
		},
		ProbePorts: []uint16{22, 80, 443},
		Logger:     logging.Nop(),
	})

	rec := e.Assess(context.Background(), testTarget)

	assert.False(t, rec.IsAvailable)
	assert.Empty(t, rec.MethodsUsed)
	assert.Nil(t, rec.ResponseTimeMs)
	assert.False(t, rec.Partial)
	require.Len(t, rec.FirewallFindings, 5)
	for name, v := range rec.FirewallFindings {
		assert.Contains(t, []model.FilterVerdict{model.VerdictFiltered, model.VerdictError}, v, name)
	}
}

func TestAssess_ReachabilityWins(t *testing.T) {
	e := NewEngine(Config{
		Probers: []discovery.Prober{
			stubProber{name: "icmp-echo", r: discovery.Reachability{Alive: true, RTT: 4 * time.Millisecond}},
			stubProber{name: "nmap-ping", r: discovery.Reachability{Alive: true}},
			stubProber{name: "slow", r: discovery.Reachability{Alive: true, RTT: 40 * time.Millisecond}, delay: 10 * time.Millisecond},
		},
		Logger: logging.Nop(),
	})

	rec := e.Assess(context.Background(), testTarget)

	assert.True(t, rec.IsAvailable)
	require.NotNil(t, rec.ResponseTimeMs)
	assert.InDelta(t, 4.0, *rec.ResponseTimeMs, 0.001)
	assert.Len(t, rec.MethodsUsed, 3)
}

func TestAssess_OpenPortAloneMakesAvailable(t *testing.T) {
	e := NewEngine(Config{
		Probers: []discovery.Prober{stubProber{name: "icmp-echo"}},
		PortProbe: func(_ context.Context, target model.Target) ([]model.PortRecord, error) {
			assert.Equal(t, "22,80,443", target.PortSpec)
			assert.Equal(t, "192.0.2.7", target.DialHost())
			return []model.PortRecord{fallbackRecord(22, model.StateClosed), fallbackRecord(443, model.StateOpen)}, nil
		},
		ProbePorts: []uint16{22, 80, 443},
		Logger:     logging.Nop(),
	})

	rec := e.Assess(context.Background(), testTarget)

	assert.True(t, rec.IsAvailable)
	require.Len(t, rec.MethodsUsed, 1)
	assert.Equal(t, model.KindFallback, rec.MethodsUsed[0].Kind)
	assert.Nil(t, rec.ResponseTimeMs)
}

func TestAssess_PositiveFirewallVerdictIsAMethodButNotAvailability(t *testing.T) {
	findings := allFindings(model.VerdictFiltered)
	findings["tcp_syn"] = model.VerdictPartial

	e := NewEngine(Config{Classifier: stubClassifier{findings: findings}, Logger: logging.Nop()})
	rec := e.Assess(context.Background(), testTarget)

	assert.False(t, rec.IsAvailable)
	require.Len(t, rec.MethodsUsed, 1)
	assert.Equal(t, model.KindFirewall, rec.MethodsUsed[0].Kind)
}

func TestAssess_ProbesDialAddress(t *testing.T) {
	seen := make(chan string, 1)
	e := NewEngine(Config{Probers: []discovery.Prober{stubProber{name: "icmp-echo", seen: seen}}, Logger: logging.Nop()})

	e.Assess(context.Background(), testTarget)
	assert.Equal(t, "192.0.2.7", <-seen)
}

func TestAssess_DeadlineReturnsPartialWithinGrace(t *testing.T) {
	e := NewEngine(Config{
		Probers: []discovery.Prober{
			stubProber{name: "icmp-echo", r: discovery.Reachability{Alive: true, RTT: time.Millisecond}},
		},
		Classifier: stubClassifier{findings: allFindings(model.VerdictOpen), block: true},
		Grace:      50 * time.Millisecond,
		Logger:     logging.Nop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	rec := e.Assess(ctx, testTarget)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.True(t, rec.Partial)
	assert.True(t, rec.IsAvailable)
	require.Len(t, rec.FirewallFindings, 5)
	for _, v := range rec.FirewallFindings {
		assert.Equal(t, model.VerdictError, v)
	}
}

func TestAssess_LateResultsDoNotLeakIntoReturnedRecord(t *testing.T) {
	e := NewEngine(Config{
		Probers: []discovery.Prober{
			stubProber{name: "icmp-echo", r: discovery.Reachability{Alive: true}, delay: time.Minute},
		},
		Grace:  10 * time.Millisecond,
		Logger: logging.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := e.Assess(ctx, testTarget)
	assert.True(t, rec.Partial)
	assert.False(t, rec.IsAvailable)
	assert.Empty(t, rec.MethodsUsed)
}

func TestAssess_PortProbeError(t *testing.T) {
	e := NewEngine(Config{
		PortProbe: func(context.Context, model.Target) ([]model.PortRecord, error) {
			return nil, errors.New("no strategy available")
		},
		ProbePorts: []uint16{80},
		Logger:     logging.Nop(),
	})

	rec := e.Assess(context.Background(), testTarget)
	assert.False(t, rec.IsAvailable)
	assert.Equal(t, "host.test", rec.Target)
}

func TestSession_StateMachine(t *testing.T) {
	s := newSession("h")
	assert.Equal(t, StateIdle, s.current())

	s.transition(StateProbing)
	assert.Equal(t, StateProbing, s.current())
	assert.True(t, s.update(func(r *model.AvailabilityRecord) { r.IsAvailable = true }))

	rec := s.merge(false)
	assert.Equal(t, StateMerged, s.current())
	assert.True(t, rec.IsAvailable)

	assert.False(t, s.update(func(r *model.AvailabilityRecord) { r.IsAvailable = false }))
	s.transition(StateProbing)
	assert.Equal(t, StateMerged, s.current())
	assert.Equal(t, "merged", s.current().String())
}
