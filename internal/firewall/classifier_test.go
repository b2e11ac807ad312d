package firewall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics/mocks"
	"github.com/anstrom/recon/internal/model"
)

type stubTechnique struct {
	name  string
	obs   Observation
	delay time.Duration
}

func (s stubTechnique) Name() string { return s.name }

func (s stubTechnique) Observe(ctx context.Context, _ string) Observation {
	select {
	case <-time.After(s.delay):
		return s.obs
	case <-ctx.Done():
		return Observation{Err: ctx.Err()}
	}
}

func TestClassifier_Run(t *testing.T) {
	c := NewClassifier(Config{
		Techniques: []Technique{
			stubTechnique{name: "tcp_syn", obs: Observation{Sent: 3, Received: 3, HasStats: true}},
			stubTechnique{name: "tcp_fin", obs: Observation{Sent: 3, LossPercent: 100, HasStats: true}},
			stubTechnique{name: "tcp_ack", obs: Observation{Err: errors.New("hping3: tool not found")}},
			stubTechnique{name: "icmp_ping", obs: Observation{Sent: 3, Received: 1, LossPercent: 67, HasStats: true}},
		},
		TechniqueTimeout: time.Second,
		Logger:           logging.Nop(),
	})

	findings := c.Run(context.Background(), "10.0.0.1")
	assert.Equal(t, map[string]model.FilterVerdict{
		"tcp_syn":   model.VerdictOpen,
		"tcp_fin":   model.VerdictFiltered,
		"tcp_ack":   model.VerdictError,
		"icmp_ping": model.VerdictPartial,
	}, findings)
}

func TestClassifier_TechniqueTimeoutIsError(t *testing.T) {
	c := NewClassifier(Config{
		Techniques: []Technique{
			stubTechnique{name: "slow", obs: Observation{Sent: 3, LossPercent: 100, HasStats: true}, delay: time.Minute},
			stubTechnique{name: "fast", obs: Observation{Sent: 3, Received: 3, HasStats: true}},
		},
		TechniqueTimeout: 30 * time.Millisecond,
		Logger:           logging.Nop(),
	})

	start := time.Now()
	findings := c.Run(context.Background(), "10.0.0.1")

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, model.VerdictError, findings["slow"])
	assert.Equal(t, model.VerdictOpen, findings["fast"])
}

func TestClassifier_RunsConcurrently(t *testing.T) {
	var techs []Technique
	for _, name := range []string{"a", "b", "c", "d"} {
		techs = append(techs, stubTechnique{name: name, obs: Observation{Sent: 1, Received: 1, HasStats: true}, delay: 100 * time.Millisecond})
	}
	c := NewClassifier(Config{Techniques: techs, TechniqueTimeout: time.Second, Logger: logging.Nop()})

	start := time.Now()
	findings := c.Run(context.Background(), "10.0.0.1")

	assert.Len(t, findings, 4)
	assert.Less(t, time.Since(start), 350*time.Millisecond)
}

func TestClassifier_CanceledContextKeepsEveryTechnique(t *testing.T) {
	c := NewClassifier(Config{
		Techniques: []Technique{
			stubTechnique{name: "tcp_syn", delay: time.Minute},
			stubTechnique{name: "tcp_ack", delay: time.Minute},
		},
		TechniqueTimeout: time.Minute,
		Logger:           logging.Nop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	findings := c.Run(ctx, "10.0.0.1")
	require.Len(t, findings, 2)
	for _, v := range findings {
		assert.Equal(t, model.VerdictError, v)
	}
}

func TestClassifier_RecordsVerdictMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockScanMetrics(ctrl)
	m.EXPECT().RecordVerdict("tcp_syn", "filtered")
	m.EXPECT().RecordProbe("tcp_syn", "filtered", gomock.Any())

	c := NewClassifier(Config{
		Techniques: []Technique{stubTechnique{name: "tcp_syn", obs: Observation{Sent: 3, LossPercent: 100, HasStats: true}}},
		Metrics:    m,
		Logger:     logging.Nop(),
	})
	c.Run(context.Background(), "10.0.0.1")
}

func TestBuildTechnique(t *testing.T) {
	for _, name := range []string{"tcp_syn", "tcp_fin", "tcp_ack", "icmp_ping", "tcp_connect"} {
		tech, ok := BuildTechnique(TechniqueSpec{Name: name, Hping3Path: "hping3", ProbePort: 80, Count: 3, ConnectPorts: []uint16{80}})
		require.True(t, ok, name)
		assert.Equal(t, name, tech.Name())
	}

	_, ok := BuildTechnique(TechniqueSpec{Name: "tcp_xmas"})
	assert.False(t, ok)
}
