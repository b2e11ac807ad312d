// Package banner retrieves short service banners from ports already known
// to be open. Failures are never errors: an unreadable service simply has
// no banner.
package banner

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/model"
)

// EncryptedMarker is reported for ports that conventionally speak TLS.
const EncryptedMarker = "SSL/TLS enabled"

const (
	defaultConnectTimeout = 3 * time.Second
	defaultIOTimeout      = 2 * time.Second
	defaultBufferSize     = 1024
)

// Hint selects the probe sent to a port.
type Hint int

const (
	// HintPassive reads whatever the service volunteers.
	HintPassive Hint = iota
	// HintHTTP sends a minimal HEAD request.
	HintHTTP
	// HintEncrypted reports EncryptedMarker without any I/O.
	HintEncrypted
	// HintSNMP queries sysDescr over SNMP.
	HintSNMP
	// HintNone skips the port.
	HintNone
)

var webPorts = map[uint16]bool{80: true, 81: true, 8000: true, 8008: true, 8080: true, 8081: true, 8888: true}

var encryptedPorts = map[uint16]bool{
	443: true, 465: true, 636: true, 853: true, 990: true,
	992: true, 993: true, 995: true, 5986: true, 8443: true,
}

// HintFor returns the probe hint for port.
func HintFor(port uint16, proto model.Protocol) Hint {
	if proto == model.ProtocolUDP {
		if port == 161 {
			return HintSNMP
		}
		return HintNone
	}
	switch {
	case webPorts[port]:
		return HintHTTP
	case encryptedPorts[port]:
		return HintEncrypted
	default:
		return HintPassive
	}
}

// Dialer opens transport connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config configures a Grabber.
type Config struct {
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	BufferSize     int
	SNMPCommunity  string
	Dialer         Dialer
	Logger         *logging.Logger
}

// Grabber reads banners.
type Grabber struct {
	connectTimeout time.Duration
	writeTimeout   time.Duration
	readTimeout    time.Duration
	bufferSize     int
	community      string
	dialer         Dialer
	logger         *logging.Logger
}

// New creates a Grabber, filling unset timeouts with defaults.
func New(cfg Config) *Grabber {
	g := &Grabber{
		connectTimeout: cfg.ConnectTimeout,
		writeTimeout:   cfg.WriteTimeout,
		readTimeout:    cfg.ReadTimeout,
		bufferSize:     cfg.BufferSize,
		community:      cfg.SNMPCommunity,
		dialer:         cfg.Dialer,
		logger:         logging.OrDefault(cfg.Logger).WithComponent("banner"),
	}
	if g.connectTimeout <= 0 {
		g.connectTimeout = defaultConnectTimeout
	}
	if g.writeTimeout <= 0 {
		g.writeTimeout = defaultIOTimeout
	}
	if g.readTimeout <= 0 {
		g.readTimeout = defaultIOTimeout
	}
	if g.bufferSize <= 0 {
		g.bufferSize = defaultBufferSize
	}
	if g.community == "" {
		g.community = "public"
	}
	if g.dialer == nil {
		g.dialer = &net.Dialer{}
	}
	return g
}

// Grab returns the trimmed banner of host:port, or "" when none could be read.
func (g *Grabber) Grab(ctx context.Context, host string, port uint16, proto model.Protocol) string {
	switch HintFor(port, proto) {
	case HintEncrypted:
		return EncryptedMarker
	case HintNone:
		return ""
	case HintSNMP:
		return g.snmpSysDescr(ctx, host, port)
	case HintHTTP:
		return g.exchange(ctx, host, port, httpProbe(host))
	default:
		return g.exchange(ctx, host, port, nil)
	}
}

func httpProbe(host string) []byte {
	return []byte("HEAD / HTTP/1.0\r\nHost: " + host + "\r\n\r\n")
}

func (g *Grabber) exchange(ctx context.Context, host string, port uint16, payload []byte) string {
	dctx, cancel := context.WithTimeout(ctx, g.connectTimeout)
	defer cancel()

	conn, err := g.dialer.DialContext(dctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		g.logger.Debug("banner dial failed", "host", host, "port", port, "error", err)
		return ""
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if len(payload) > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(g.writeTimeout)); err != nil {
			return ""
		}
		if _, err := conn.Write(payload); err != nil {
			g.logger.Debug("banner write failed", "host", host, "port", port, "error", err)
			return ""
		}
	}

	if err := conn.SetReadDeadline(time.Now().Add(g.readTimeout)); err != nil {
		return ""
	}
	buf := make([]byte, g.bufferSize)
	n, err := conn.Read(buf)
	if n == 0 {
		g.logger.Debug("no banner", "host", host, "port", port, "error", err)
		return ""
	}
	return clean(buf[:n])
}

func clean(b []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(b), ""))
}
