// Package nmapscan delegates port scanning to nmap. It describes a scan as
// a declarative OptionSet, runs it under a hard deadline and converts the
// structured result into port records. Every failure mode is reported as
// "delegated scan unavailable" so callers can fall back.
package nmapscan

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/recon/internal/model"
)

// OptionSet is a declarative description of one nmap invocation.
type OptionSet struct {
	Targets           []string
	Ports             string
	Technique         model.Technique
	PingOnly          bool
	ServiceInfo       bool
	VersionIntensity  int
	Timing            int
	SkipHostDiscovery bool
	HostTimeout       time.Duration
	BinaryPath        string
}

// Options converts the set into nmap library options.
func (o OptionSet) Options() []nmap.Option {
	opts := []nmap.Option{nmap.WithTargets(o.Targets...)}

	if o.BinaryPath != "" {
		opts = append(opts, nmap.WithBinaryPath(o.BinaryPath))
	}

	if o.PingOnly {
		opts = append(opts, nmap.WithPingScan())
	} else {
		if o.Ports != "" {
			opts = append(opts, nmap.WithPorts(o.Ports))
		}
		switch o.Technique {
		case model.TechniqueSYN:
			opts = append(opts, nmap.WithSYNScan())
		case model.TechniqueUDP:
			opts = append(opts, nmap.WithUDPScan())
		default:
			opts = append(opts, nmap.WithConnectScan())
		}
		if o.ServiceInfo {
			opts = append(opts,
				nmap.WithServiceInfo(),
				nmap.WithVersionIntensity(int16(o.VersionIntensity)),
			)
		}
	}

	opts = append(opts, nmap.WithTimingTemplate(nmap.Timing(o.Timing)))

	if o.SkipHostDiscovery && !o.PingOnly {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}
	if o.HostTimeout > 0 {
		opts = append(opts, nmap.WithHostTimeout(o.HostTimeout))
	}
	return opts
}

// Args renders the set as the equivalent nmap command line for logging.
func (o OptionSet) Args() []string {
	var args []string
	if o.PingOnly {
		args = append(args, "-sn")
	} else {
		if o.Ports != "" {
			args = append(args, "-p", o.Ports)
		}
		args = append(args, techniqueFlag(o.Technique))
		if o.ServiceInfo {
			args = append(args, "-sV", "--version-intensity", fmt.Sprint(o.VersionIntensity))
		}
		if o.SkipHostDiscovery {
			args = append(args, "-Pn")
		}
	}
	args = append(args, fmt.Sprintf("-T%d", o.Timing))
	if o.HostTimeout > 0 {
		args = append(args, "--host-timeout", fmt.Sprintf("%dms", o.HostTimeout.Milliseconds()))
	}
	return append(args, o.Targets...)
}

// String implements fmt.Stringer.
func (o OptionSet) String() string {
	return "nmap " + strings.Join(o.Args(), " ")
}

func techniqueFlag(t model.Technique) string {
	switch t {
	case model.TechniqueSYN:
		return "-sS"
	case model.TechniqueUDP:
		return "-sU"
	default:
		return "-sT"
	}
}

// TimingForTimeout picks a timing template that fits a probe budget.
func TimingForTimeout(timeout time.Duration) int {
	switch {
	case timeout <= 5*time.Second:
		return int(nmap.TimingAggressive)
	case timeout <= 15*time.Second:
		return int(nmap.TimingNormal)
	default:
		return int(nmap.TimingPolite)
	}
}
