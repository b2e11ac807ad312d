package scanning

import (
	"context"
	"errors"
	"fmt"

	"github.com/anstrom/recon/internal/availability"
	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/nmapscan"
)

// ErrNoStrategy is returned when no port probing strategy could run.
var ErrNoStrategy = errors.New("no port probing strategy available")

// delegatedProber exposes the nmap adapter as a PortProber.
type delegatedProber struct {
	adapter *nmapscan.Adapter
}

// NewDelegatedProber wraps adapter as the delegated strategy.
func NewDelegatedProber(adapter *nmapscan.Adapter) PortProber {
	return delegatedProber{adapter: adapter}
}

func (d delegatedProber) Method() model.ProbeMethod {
	return d.adapter.Method()
}

func (d delegatedProber) Probe(ctx context.Context, target model.Target, technique model.Technique) (ProbeOutcome, error) {
	out, err := d.adapter.Scan(ctx, target, technique)
	if err != nil {
		return ProbeOutcome{}, err
	}
	return ProbeOutcome{Records: out.Records, OSHint: out.OSHint}, nil
}

// StrategyChain walks port probing strategies in order of preference.
type StrategyChain struct {
	strategies []PortProber
	crossCheck bool
	logger     *logging.Logger
}

// NewStrategyChain creates a chain. With crossCheck every strategy runs
// and the merger reconciles them; otherwise the first success wins.
func NewStrategyChain(strategies []PortProber, crossCheck bool, logger *logging.Logger) *StrategyChain {
	return &StrategyChain{
		strategies: strategies,
		crossCheck: crossCheck,
		logger:     logging.OrDefault(logger).WithComponent("strategy-chain"),
	}
}

// ChainResult is what the chain established for one target.
type ChainResult struct {
	Sets               [][]model.PortRecord
	OSHint             string
	Truncated          bool
	Partial            bool
	DelegatedAvailable bool
	DelegatedReason    string
	Succeeded          int
}

// Run probes target with each strategy in turn.
func (c *StrategyChain) Run(ctx context.Context, target model.Target, technique model.Technique) ChainResult {
	var res ChainResult

	for _, s := range c.strategies {
		if ctx.Err() != nil {
			res.Partial = true
			break
		}

		method := s.Method()
		out, err := s.Probe(ctx, target, technique)
		if err != nil {
			if method.Kind == model.KindDelegated {
				res.DelegatedReason = unavailableReason(err)
			}
			c.logger.WarnProbe(method.Name, err, "target", target.Host, "fallback", true)
			continue
		}

		if method.Kind == model.KindDelegated {
			res.DelegatedAvailable = true
		}
		res.Sets = append(res.Sets, out.Records)
		res.Truncated = res.Truncated || out.Truncated
		res.Partial = res.Partial || out.Partial
		if res.OSHint == "" {
			res.OSHint = out.OSHint
		}
		res.Succeeded++

		if !c.crossCheck {
			break
		}
	}
	return res
}

// Records merges everything the chain collected.
func (r ChainResult) Records() []model.PortRecord {
	return Merge(r.Sets...)
}

// PortProbe adapts the chain for the availability engine's constrained
// port probe. Cross-checking is not applied there.
func (c *StrategyChain) PortProbe(technique model.Technique) availability.PortProbe {
	first := &StrategyChain{strategies: c.strategies, logger: c.logger}
	return func(ctx context.Context, target model.Target) ([]model.PortRecord, error) {
		res := first.Run(ctx, target, technique)
		if res.Succeeded == 0 {
			return nil, ErrNoStrategy
		}
		return res.Records(), nil
	}
}

func unavailableReason(err error) string {
	var se *recerrors.ScanError
	if errors.As(err, &se) {
		if reason, ok := se.Context["reason"].(string); ok && reason != "" {
			return reason
		}
		return se.Message
	}
	return fmt.Sprint(err)
}
