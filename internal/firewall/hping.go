package firewall

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anstrom/recon/internal/procexec"
)

// hping3 prints e.g. "3 packets tramitted, 0 packets received, 100% packet loss".
// The misspelling is upstream; forks that fixed it print "transmitted".
var hpingStats = regexp.MustCompile(`(\d+) packets tra(?:ns)?mitted, (\d+) packets received, (\d+(?:\.\d+)?)% packet loss`)

var rejectionMarkers = []string{
	"Packet filtered",
	"Host Unreachable",
	"Network Unreachable",
	"Communication Administratively Prohibited",
}

// HpingTechnique probes with hping3 using one packet type.
type HpingTechnique struct {
	name   string
	flags  []string
	path   string
	port   int
	count  int
	runner procexec.Runner
}

// NewHpingTechnique builds a technique. Flags select the packet type,
// e.g. "-S" for SYN or "-1" for ICMP echo.
func NewHpingTechnique(name, path string, port, count int, runner procexec.Runner, flags ...string) *HpingTechnique {
	if runner == nil {
		runner = procexec.NewExecRunner()
	}
	return &HpingTechnique{name: name, flags: flags, path: path, port: port, count: count, runner: runner}
}

// Name returns the technique name.
func (h *HpingTechnique) Name() string {
	return h.name
}

func (h *HpingTechnique) args(host string) []string {
	args := append([]string{}, h.flags...)
	if !h.icmp() {
		args = append(args, "-p", strconv.Itoa(h.port))
	}
	return append(args, "-c", strconv.Itoa(h.count), host)
}

func (h *HpingTechnique) icmp() bool {
	for _, f := range h.flags {
		if f == "-1" || f == "--icmp" {
			return true
		}
	}
	return false
}

// Observe runs hping3 against host. hping3 exits non-zero when nothing
// answers, so the statistics line takes precedence over the exit status.
func (h *HpingTechnique) Observe(ctx context.Context, host string) Observation {
	res, err := h.runner.Run(ctx, h.path, h.args(host)...)
	obs := ParseHpingOutput(string(res.Output))
	if err != nil {
		obs.Err = err
		if errors.Is(err, procexec.ErrToolNotFound) || ctx.Err() != nil {
			// a killed or missing tool proves nothing about the target
			obs.HasStats = false
		}
	}
	if !obs.HasStats && obs.Err == nil {
		obs.Err = fmt.Errorf("no statistics in hping3 output")
	}
	return obs
}

// ParseHpingOutput extracts counts and rejection evidence from hping3 output.
func ParseHpingOutput(output string) Observation {
	var obs Observation

	if m := hpingStats.FindStringSubmatch(output); m != nil {
		sent, err1 := strconv.Atoi(m[1])
		recv, err2 := strconv.Atoi(m[2])
		loss, err3 := strconv.ParseFloat(m[3], 64)
		if err1 == nil && err2 == nil && err3 == nil && sent > 0 {
			obs.Sent, obs.Received, obs.LossPercent = sent, recv, loss
			obs.HasStats = true
		}
	}

	for _, marker := range rejectionMarkers {
		if strings.Contains(output, marker) {
			obs.Rejected = true
			break
		}
	}
	return obs
}
