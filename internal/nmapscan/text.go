package nmapscan

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/recon/internal/model"
)

var portLine = regexp.MustCompile(`^(\d{1,5})/(tcp|udp)\s+(\S+)\s+(\S+)(?:\s+(.+))?$`)

// ParseOutput interprets saved nmap output in either XML or normal form.
func ParseOutput(data []byte, method model.ProbeMethod) (Outcome, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.Contains(trimmed, []byte("<nmaprun")) {
		run := &nmap.Run{}
		if err := nmap.Parse(trimmed, run); err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", ErrUnrecognizedOutput, err)
		}
		return Convert(run, method)
	}
	return ParseText(trimmed, method)
}

// ParseText parses nmap's normal (-oN) output for the first host report.
// A malformed line inside the port table rejects the whole input.
func ParseText(data []byte, method model.ProbeMethod) (Outcome, error) {
	var (
		out       Outcome
		seenHost  bool
		inTable   bool
		osDetails string
		running   string
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r ")

		if strings.HasPrefix(line, "Nmap scan report for") {
			if seenHost {
				break
			}
			seenHost = true
			continue
		}
		if !seenHost {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Host is up"):
			out.HostUp = true
			continue
		case strings.HasPrefix(line, "PORT") && strings.Contains(line, "STATE"):
			inTable = true
			continue
		case strings.HasPrefix(line, "OS details:"):
			osDetails = strings.TrimSpace(strings.TrimPrefix(line, "OS details:"))
			continue
		case strings.HasPrefix(line, "Running"):
			if _, v, ok := strings.Cut(line, ":"); ok {
				running = strings.TrimSpace(v)
			}
			continue
		}

		if !inTable {
			continue
		}
		if line == "" || strings.HasPrefix(line, "Service Info:") {
			inTable = false
			continue
		}
		if strings.HasPrefix(line, "|") {
			continue
		}

		first, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		if !strings.Contains(first, "/") {
			inTable = false
			continue
		}

		rec, err := parsePortLine(line, method)
		if err != nil {
			return Outcome{}, err
		}
		out.Records = append(out.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrUnrecognizedOutput, err)
	}
	if !seenHost {
		return Outcome{}, fmt.Errorf("%w: no scan report", ErrUnrecognizedOutput)
	}

	out.OSHint = osDetails
	if out.OSHint == "" {
		out.OSHint = running
	}
	return out, nil
}

func parsePortLine(line string, method model.ProbeMethod) (model.PortRecord, error) {
	m := portLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return model.PortRecord{}, fmt.Errorf("%w: %q", ErrUnrecognizedOutput, line)
	}

	port, err := strconv.Atoi(m[1])
	if err != nil || port < 1 || port > 65535 {
		return model.PortRecord{}, fmt.Errorf("%w: port %q", ErrUnrecognizedOutput, m[1])
	}

	proto := model.ProtocolTCP
	if m[2] == "udp" {
		proto = model.ProtocolUDP
	}

	rec := model.NewPortRecord(uint16(port), proto, mapState(m[3]), method)
	rec.Service = m[4]
	rec.Version = strings.TrimSpace(m[5])
	return rec, nil
}
