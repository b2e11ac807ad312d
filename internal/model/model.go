// Package model holds the records an assessment produces. Everything here
// is created fresh per assessment and never shared between runs.
package model

import (
	"encoding/xml"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Protocol is the transport a port record refers to.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// PortState is the observed state of one port.
type PortState string

const (
	StateOpen     PortState = "open"
	StateClosed   PortState = "closed"
	StateFiltered PortState = "filtered"
	StateUnknown  PortState = "unknown"
)

// Technique is the caller's scan technique preference.
type Technique string

const (
	TechniqueConnect Technique = "connect"
	TechniqueSYN     Technique = "syn"
	TechniqueUDP     Technique = "udp"
)

// Valid reports whether t is a known technique.
func (t Technique) Valid() bool {
	switch t {
	case TechniqueConnect, TechniqueSYN, TechniqueUDP:
		return true
	}
	return false
}

// Protocol returns the transport probed by the technique.
func (t Technique) Protocol() Protocol {
	if t == TechniqueUDP {
		return ProtocolUDP
	}
	return ProtocolTCP
}

// MethodKind classifies where a piece of evidence came from.
type MethodKind string

const (
	KindDelegated    MethodKind = "delegated-scan"
	KindFallback     MethodKind = "raw-socket-fallback"
	KindFirewall     MethodKind = "firewall-probe"
	KindReachability MethodKind = "reachability-probe"
)

// ProbeMethod identifies a technique that contributed evidence.
type ProbeMethod struct {
	Kind    MethodKind    `json:"kind" xml:"kind,attr"`
	Name    string        `json:"name" xml:"name,attr"`
	Timeout time.Duration `json:"timeout_ns,omitempty" xml:"timeout,attr,omitempty"`
}

// Rank orders port evidence: delegated scans outrank the socket fallback.
func (m ProbeMethod) Rank() int {
	switch m.Kind {
	case KindDelegated:
		return 2
	case KindFallback:
		return 1
	default:
		return 0
	}
}

// Target is one host to assess together with its normalized ports.
type Target struct {
	Host     string   `json:"host" xml:"host,attr"`
	Address  string   `json:"address,omitempty" xml:"address,attr,omitempty"`
	PortSpec string   `json:"port_spec" xml:"port_spec,attr"`
	Ports    []uint16 `json:"-" xml:"-"`
}

// DialHost returns the address probes should connect to.
func (t Target) DialHost() string {
	if t.Address != "" {
		return t.Address
	}
	return t.Host
}

// PortRecord is the result for one (port, protocol) pair.
type PortRecord struct {
	Port       uint16      `json:"port" xml:"port,attr"`
	Protocol   Protocol    `json:"protocol" xml:"protocol,attr"`
	State      PortState   `json:"state" xml:"state,attr"`
	Service    string      `json:"service,omitempty" xml:"service,attr,omitempty"`
	Version    string      `json:"version,omitempty" xml:"version,attr,omitempty"`
	Banner     string      `json:"banner,omitempty" xml:"banner,omitempty"`
	Source     ProbeMethod `json:"source" xml:"source"`
	Confidence int         `json:"confidence" xml:"confidence,attr"`
}

// NewPortRecord builds a record whose confidence follows its source.
func NewPortRecord(port uint16, proto Protocol, state PortState, source ProbeMethod) PortRecord {
	return PortRecord{
		Port:       port,
		Protocol:   proto,
		State:      state,
		Source:     source,
		Confidence: source.Rank(),
	}
}

// Key identifies the (port, protocol) pair of the record.
func (r PortRecord) Key() PortKey {
	return PortKey{Port: r.Port, Protocol: r.Protocol}
}

// PortKey is the merge identity of a port record.
type PortKey struct {
	Port     uint16
	Protocol Protocol
}

// FilterVerdict is what one firewall technique concluded.
type FilterVerdict string

const (
	VerdictOpen     FilterVerdict = "open"
	VerdictFiltered FilterVerdict = "filtered"
	VerdictBlocked  FilterVerdict = "blocked"
	VerdictPartial  FilterVerdict = "partial"
	VerdictError    FilterVerdict = "error"
)

// Positive reports whether the verdict shows the host answering.
func (v FilterVerdict) Positive() bool {
	return v == VerdictOpen || v == VerdictPartial
}

// AvailabilityRecord is the host level picture built by the fusion engine.
type AvailabilityRecord struct {
	Target           string                   `json:"target"`
	IsAvailable      bool                     `json:"is_available"`
	ResponseTimeMs   *float64                 `json:"response_time_ms,omitempty"`
	MethodsUsed      []ProbeMethod            `json:"methods_used"`
	FirewallFindings map[string]FilterVerdict `json:"firewall_findings"`
	HostHint         string                   `json:"host_hint,omitempty"`
	Partial          bool                     `json:"partial,omitempty"`
	Timestamp        time.Time                `json:"timestamp"`
}

// NewAvailabilityRecord returns an empty record for target.
func NewAvailabilityRecord(target string) AvailabilityRecord {
	return AvailabilityRecord{
		Target:           target,
		MethodsUsed:      []ProbeMethod{},
		FirewallFindings: make(map[string]FilterVerdict),
		Timestamp:        time.Now(),
	}
}

// AddMethod records m as a contributing method. The set only grows.
func (a *AvailabilityRecord) AddMethod(m ProbeMethod) {
	for _, existing := range a.MethodsUsed {
		if existing.Kind == m.Kind && existing.Name == m.Name {
			return
		}
	}
	a.MethodsUsed = append(a.MethodsUsed, m)
}

// ObserveRTT keeps the fastest response time seen.
func (a *AvailabilityRecord) ObserveRTT(rtt time.Duration) {
	ms := float64(rtt.Microseconds()) / 1000
	if a.ResponseTimeMs == nil || ms < *a.ResponseTimeMs {
		a.ResponseTimeMs = &ms
	}
}

// Clone returns a deep copy safe to hand to callers.
func (a AvailabilityRecord) Clone() AvailabilityRecord {
	out := a
	out.MethodsUsed = append([]ProbeMethod{}, a.MethodsUsed...)
	out.FirewallFindings = make(map[string]FilterVerdict, len(a.FirewallFindings))
	for k, v := range a.FirewallFindings {
		out.FirewallFindings[k] = v
	}
	if a.ResponseTimeMs != nil {
		ms := *a.ResponseTimeMs
		out.ResponseTimeMs = &ms
	}
	return out
}

// MergedResult is the single record returned per assessment.
type MergedResult struct {
	XMLName            xml.Name                 `json:"-" xml:"assessment"`
	ID                 uuid.UUID                `json:"id" xml:"id,attr"`
	Target             Target                   `json:"target" xml:"target"`
	Technique          Technique                `json:"technique" xml:"technique,attr"`
	Availability       AvailabilityRecord       `json:"availability" xml:"-"`
	Ports              []PortRecord             `json:"ports" xml:"ports>port"`
	FirewallFindings   map[string]FilterVerdict `json:"firewall_findings" xml:"-"`
	DelegatedAvailable bool                     `json:"delegated_available" xml:"delegated_available,attr"`
	DelegatedReason    string                   `json:"delegated_reason,omitempty" xml:"delegated_reason,omitempty"`
	OSHint             string                   `json:"os_hint,omitempty" xml:"os_hint,omitempty"`
	Truncated          bool                     `json:"truncated,omitempty" xml:"truncated,attr,omitempty"`
	Partial            bool                     `json:"partial,omitempty" xml:"partial,attr,omitempty"`
	StartTime          time.Time                `json:"start_time" xml:"start_time,attr"`
	EndTime            time.Time                `json:"end_time" xml:"end_time,attr"`
	Duration           time.Duration            `json:"duration_ns" xml:"duration,attr"`
}

// OpenPorts returns the records in the open state.
func (r *MergedResult) OpenPorts() []PortRecord {
	var open []PortRecord
	for _, p := range r.Ports {
		if p.State == StateOpen {
			open = append(open, p)
		}
	}
	return open
}

// FindingNames returns the firewall technique names in sorted order.
func FindingNames(findings map[string]FilterVerdict) []string {
	names := make([]string, 0, len(findings))
	for name := range findings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
