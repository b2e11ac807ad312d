package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/scanning"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatXML   = "xml"

	maxBannerWidth = 40
)

func validateFormat(format string, allowXML bool) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	case formatXML:
		if allowXML {
			return nil
		}
	}
	return recerrors.NewScanError(recerrors.CodeValidation, fmt.Sprintf("unsupported output format %q", format))
}

// writeResult renders an assessment in the requested format.
func writeResult(w io.Writer, result *model.MergedResult, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, result)
	case formatXML:
		return scanning.WriteXML(w, result)
	default:
		return writeResultTable(w, result)
	}
}

// writeAvailability renders an availability record in the requested format.
func writeAvailability(w io.Writer, record model.AvailabilityRecord, format string) error {
	if format == formatJSON {
		return writeJSON(w, record)
	}
	writeAvailabilitySummary(w, record)
	return writeFindingsTable(w, record.FirewallFindings)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResultTable(w io.Writer, result *model.MergedResult) error {
	fmt.Fprintf(w, "Target:     %s\n", displayTarget(result.Target))
	fmt.Fprintf(w, "Technique:  %s\n", result.Technique)
	fmt.Fprintf(w, "Delegated:  %s\n", delegatedLine(result))
	if result.OSHint != "" {
		fmt.Fprintf(w, "OS hint:    %s\n", result.OSHint)
	}
	if result.Partial {
		fmt.Fprintln(w, "Result:     partial (deadline reached)")
	}
	if result.Truncated {
		fmt.Fprintln(w, "Ports:      truncated to the fallback limit")
	}
	writeAvailabilitySummary(w, result.Availability)
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header("Port", "Proto", "State", "Service", "Version", "Banner", "Source")
	for i := range result.Ports {
		p := &result.Ports[i]
		if err := table.Append([]string{
			strconv.Itoa(int(p.Port)),
			string(p.Protocol),
			string(p.State),
			p.Service,
			p.Version,
			truncate(p.Banner, maxBannerWidth),
			p.Source.Name,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(result.FirewallFindings) > 0 {
		fmt.Fprintln(w)
		return writeFindingsTable(w, result.FirewallFindings)
	}
	return nil
}

func writeAvailabilitySummary(w io.Writer, record model.AvailabilityRecord) {
	state := "unreachable"
	if record.IsAvailable {
		state = "available"
	}
	if record.ResponseTimeMs != nil {
		state += fmt.Sprintf(" (%.2f ms)", *record.ResponseTimeMs)
	}
	fmt.Fprintf(w, "Host:       %s\n", state)

	methods := make([]string, 0, len(record.MethodsUsed))
	for _, m := range record.MethodsUsed {
		methods = append(methods, m.Name)
	}
	if len(methods) > 0 {
		fmt.Fprintf(w, "Methods:    %s\n", strings.Join(methods, ", "))
	}
	if record.HostHint != "" {
		fmt.Fprintf(w, "Host hint:  %s\n", record.HostHint)
	}
}

func writeFindingsTable(w io.Writer, findings map[string]model.FilterVerdict) error {
	table := tablewriter.NewWriter(w)
	table.Header("Technique", "Verdict")
	for _, name := range model.FindingNames(findings) {
		if err := table.Append([]string{name, string(findings[name])}); err != nil {
			return err
		}
	}
	return table.Render()
}

func displayTarget(t model.Target) string {
	switch {
	case t.Host == "":
		return "-"
	case t.Address != "" && t.Address != t.Host:
		return fmt.Sprintf("%s (%s)", t.Host, t.Address)
	default:
		return t.Host
	}
}

func delegatedLine(result *model.MergedResult) string {
	if result.DelegatedAvailable {
		return "nmap"
	}
	if result.DelegatedReason != "" {
		return "unavailable: " + result.DelegatedReason
	}
	return "not used"
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
