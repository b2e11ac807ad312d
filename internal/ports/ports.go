// Package ports parses and normalizes port specifications such as
// "22,80,8000-8100" and maps well-known ports to service names.
package ports

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	minPort = 1
	maxPort = 65535
)

// Parse expands spec into a de-duplicated list of ports in the order they
// first appear. Single ports, ranges and comma separated mixes are accepted.
func Parse(spec string) ([]uint16, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("port specification cannot be empty")
	}

	seen := make(map[uint16]struct{})
	var out []uint16
	add := func(p uint16) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty element in port specification %q", spec)
		}

		if strings.Contains(part, "-") {
			start, end, err := parseRange(part)
			if err != nil {
				return nil, err
			}
			for p := start; p <= end; p++ {
				add(uint16(p))
			}
			continue
		}

		p, err := parsePort(part)
		if err != nil {
			return nil, err
		}
		add(uint16(p))
	}

	return out, nil
}

func parseRange(part string) (start, end int, err error) {
	bounds := strings.SplitN(part, "-", 2)
	start, err = parsePort(strings.TrimSpace(bounds[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start port in range %q: %w", part, err)
	}
	end, err = parsePort(strings.TrimSpace(bounds[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end port in range %q: %w", part, err)
	}
	if start > end {
		return 0, 0, fmt.Errorf("invalid port range %q: start port greater than end port", part)
	}
	return start, end, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port number %q", s)
	}
	if p < minPort || p > maxPort {
		return 0, fmt.Errorf("port %d out of range (%d-%d)", p, minPort, maxPort)
	}
	return p, nil
}

// Cap truncates ports to at most limit entries. A non-positive limit
// disables the cap.
func Cap(ports []uint16, limit int) ([]uint16, bool) {
	if limit <= 0 || len(ports) <= limit {
		return ports, false
	}
	return ports[:limit], true
}

// Format renders ports back into the compact comma and range syntax,
// sorted ascending.
func Format(ports []uint16) string {
	if len(ports) == 0 {
		return ""
	}
	sorted := append([]uint16(nil), ports...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var parts []string
	start, prev := sorted[0], sorted[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(int(start)))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, p := range sorted[1:] {
		if p == prev {
			continue
		}
		if p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()

	return strings.Join(parts, ",")
}
