package scanning

import (
	"context"
	"net"

	"github.com/anstrom/recon/internal/model"
)

// Dialer opens transport connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ProbeOutcome is what one port probing strategy produced.
type ProbeOutcome struct {
	Records   []model.PortRecord
	OSHint    string
	Truncated bool
	Partial   bool
}

// PortProber is a port enumeration strategy. An error means the strategy
// could not run at all and the caller should try the next one; per-port
// failures are expressed as records, never as errors.
type PortProber interface {
	Method() model.ProbeMethod
	Probe(ctx context.Context, target model.Target, technique model.Technique) (ProbeOutcome, error)
}
