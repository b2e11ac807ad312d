// Package firewall infers how intermediate network controls treat a target
// by running several independent probe techniques and classifying each
// technique's response pattern on its own.
package firewall

import (
	"github.com/anstrom/recon/internal/model"
)

// Observation is the raw evidence one technique gathered.
type Observation struct {
	Sent        int
	Received    int
	LossPercent float64
	// HasStats is set when sent/received counts were actually observed.
	HasStats bool
	// Rejected is set when something answered with an explicit refusal
	// such as ICMP administratively prohibited or host unreachable.
	Rejected bool
	Err      error
}

// Classify turns an observation into a verdict. A technique that failed
// to run is an error, never filtered: silence only counts as filtering
// when the probes demonstrably went out.
func Classify(obs Observation) model.FilterVerdict {
	if !obs.HasStats {
		return model.VerdictError
	}
	if obs.Rejected {
		return model.VerdictBlocked
	}
	switch {
	case obs.LossPercent >= 100:
		return model.VerdictFiltered
	case obs.LossPercent <= 0:
		return model.VerdictOpen
	default:
		return model.VerdictPartial
	}
}

// lossPercent derives loss from counts.
func lossPercent(sent, received int) float64 {
	if sent <= 0 {
		return 100
	}
	if received >= sent {
		return 0
	}
	return float64(sent-received) * 100 / float64(sent)
}
