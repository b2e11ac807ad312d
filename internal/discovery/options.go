package discovery

import (
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/nmapscan"
)

type options struct {
	logger        *logging.Logger
	runner        nmapscan.Runner
	pingerFactory PingerFactory
}

// Option customises probers created by Build.
type Option func(*options)

// WithLogger sets the logger for every prober.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRunner replaces the nmap runner used by the ping scan prober.
func WithRunner(r nmapscan.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithPingerFactory replaces how ICMP pingers are created.
func WithPingerFactory(f PingerFactory) Option {
	return func(o *options) { o.pingerFactory = f }
}
