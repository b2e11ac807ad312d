package nmapscan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/recon/internal/model"
)

// ErrUnrecognizedOutput is returned for scan output that cannot be
// interpreted with certainty. No records are produced alongside it.
var ErrUnrecognizedOutput = errors.New("unrecognized nmap output")

// Outcome is what a delegated scan established.
type Outcome struct {
	Records []model.PortRecord
	OSHint  string
	HostUp  bool
}

// Convert turns a structured nmap run into records for the first host.
func Convert(run *nmap.Run, method model.ProbeMethod) (Outcome, error) {
	if run == nil {
		return Outcome{}, fmt.Errorf("%w: empty run", ErrUnrecognizedOutput)
	}

	for i := range run.Hosts {
		h := &run.Hosts[i]
		if len(h.Addresses) == 0 || h.Addresses[0].Addr == "" {
			continue
		}
		return convertHost(h, method)
	}
	return Outcome{}, fmt.Errorf("%w: no host with an address", ErrUnrecognizedOutput)
}

func convertHost(h *nmap.Host, method model.ProbeMethod) (Outcome, error) {
	out := Outcome{HostUp: h.Status.State == "up"}

	records := make([]model.PortRecord, 0, len(h.Ports))
	for j := range h.Ports {
		p := &h.Ports[j]

		proto, ok := parseProtocol(p.Protocol)
		if !ok || p.ID == 0 {
			return Outcome{}, fmt.Errorf("%w: port %d/%s", ErrUnrecognizedOutput, p.ID, p.Protocol)
		}

		rec := model.NewPortRecord(p.ID, proto, mapState(p.State.State), method)
		rec.Service = p.Service.Name
		rec.Version = joinNonEmpty(p.Service.Product, p.Service.Version, p.Service.ExtraInfo)
		records = append(records, rec)
	}
	out.Records = records

	if len(h.OS.Matches) > 0 {
		out.OSHint = h.OS.Matches[0].Name
	}
	return out, nil
}

func parseProtocol(s string) (model.Protocol, bool) {
	switch strings.ToLower(s) {
	case "tcp":
		return model.ProtocolTCP, true
	case "udp":
		return model.ProtocolUDP, true
	}
	return "", false
}

// mapState folds nmap's state vocabulary onto ours. Ambiguous states
// that include "filtered" count as filtered.
func mapState(s string) model.PortState {
	switch s {
	case "open":
		return model.StateOpen
	case "closed":
		return model.StateClosed
	case "filtered", "open|filtered", "closed|filtered":
		return model.StateFiltered
	default:
		return model.StateUnknown
	}
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
