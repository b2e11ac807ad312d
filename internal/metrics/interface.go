package metrics

import "time"

//go:generate mockgen -source=interface.go -destination=mocks/mock_metrics.go -package=mocks

// ScanMetrics is what the engine reports through. PrometheusMetrics
// implements it; Nop discards everything.
type ScanMetrics interface {
	RecordAssessment(technique, status string, duration time.Duration)
	RecordPorts(source, state string, count int)
	RecordProbe(probe, outcome string, duration time.Duration)
	RecordVerdict(technique, verdict string)
	IncActiveProbes()
	DecActiveProbes()
}

var (
	_ ScanMetrics = (*PrometheusMetrics)(nil)
	_ ScanMetrics = Nop{}
)

// Nop is a ScanMetrics that records nothing.
type Nop struct{}

func (Nop) RecordAssessment(string, string, time.Duration) {}
func (Nop) RecordPorts(string, string, int)                {}
func (Nop) RecordProbe(string, string, time.Duration)      {}
func (Nop) RecordVerdict(string, string)                   {}
func (Nop) IncActiveProbes()                               {}
func (Nop) DecActiveProbes()                               {}

// OrNop returns m, or Nop when m is nil.
func OrNop(m ScanMetrics) ScanMetrics {
	if m == nil {
		return Nop{}
	}
	return m
}
