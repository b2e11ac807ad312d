package nmapscan

import (
	"context"

	"github.com/Ullaakut/nmap/v3"
)

//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks

// Runner executes an nmap invocation.
type Runner interface {
	Run(ctx context.Context, set OptionSet) (*nmap.Run, []string, error)
}

// LibraryRunner runs nmap through the Ullaakut/nmap wrapper.
type LibraryRunner struct{}

// Run creates a scanner bound to ctx and runs it.
func (LibraryRunner) Run(ctx context.Context, set OptionSet) (*nmap.Run, []string, error) {
	scanner, err := nmap.NewScanner(ctx, set.Options()...)
	if err != nil {
		return nil, nil, err
	}

	result, warnings, err := scanner.Run()
	var warns []string
	if warnings != nil {
		warns = *warnings
	}
	return result, warns, err
}
