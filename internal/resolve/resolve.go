// Package resolve turns assessment targets into dial addresses using
// explicit DNS queries, falling back to the system resolver.
package resolve

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/anstrom/recon/internal/logging"
)

const (
	defaultTimeout    = 5 * time.Second
	resolvConfPath    = "/etc/resolv.conf"
	defaultDNSPort    = "53"
	defaultSystemHost = "127.0.0.53"
)

// Resolver resolves hostnames to a single address.
type Resolver struct {
	client      *dns.Client
	nameservers []string
	system      *net.Resolver
	logger      *logging.Logger
}

// Config configures a Resolver.
type Config struct {
	// Nameservers in host:port form. Empty means resolv.conf.
	Nameservers []string
	Timeout     time.Duration
	Logger      *logging.Logger
}

// New creates a resolver.
func New(cfg Config) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	servers := cfg.Nameservers
	if len(servers) == 0 {
		servers = systemNameservers()
	}

	return &Resolver{
		client:      &dns.Client{Timeout: timeout},
		nameservers: servers,
		system:      net.DefaultResolver,
		logger:      logging.OrDefault(cfg.Logger).WithComponent("resolver"),
	}
}

func systemNameservers() []string {
	conf, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(conf.Servers) == 0 {
		return []string{net.JoinHostPort(defaultSystemHost, defaultDNSPort)}
	}
	port := conf.Port
	if port == "" {
		port = defaultDNSPort
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, port))
	}
	return servers
}

// Resolve returns an address for host. IP literals are returned as is.
func (r *Resolver) Resolve(ctx context.Context, host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("empty host")
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return ip.String(), nil
	}

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addr, err := r.query(ctx, host, qtype)
		if err == nil {
			return addr, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.logger.Debug("dns query failed", "host", host, "type", dns.TypeToString[qtype], "error", err)
	}

	addrs, err := r.system.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses found for %s", host)
	}
	return addrs[0], nil
}

func (r *Resolver) query(ctx context.Context, host string, qtype uint16) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.nameservers {
		in, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%s answered %s", server, dns.RcodeToString[in.Rcode])
			continue
		}
		for _, rr := range in.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				return rec.A.String(), nil
			case *dns.AAAA:
				return rec.AAAA.String(), nil
			}
		}
		lastErr = fmt.Errorf("%s returned no %s records", server, dns.TypeToString[qtype])
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no nameservers configured")
	}
	return "", lastErr
}
