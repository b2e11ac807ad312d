package firewall

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"
)

// Dialer opens transport connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ConnectTechnique attempts plain TCP connections to a few well-known
// ports. A refusal is an answer; silence is loss.
type ConnectTechnique struct {
	ports   []uint16
	timeout time.Duration
	dialer  Dialer
}

// NewConnectTechnique builds the raw transport technique.
func NewConnectTechnique(ports []uint16, timeout time.Duration, dialer Dialer) *ConnectTechnique {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ConnectTechnique{ports: ports, timeout: timeout, dialer: dialer}
}

// Name returns the technique name.
func (c *ConnectTechnique) Name() string {
	return "tcp_connect"
}

// Observe dials each port in turn.
func (c *ConnectTechnique) Observe(ctx context.Context, host string) Observation {
	if len(c.ports) == 0 {
		return Observation{Err: fmt.Errorf("no ports configured")}
	}

	var (
		obs         Observation
		unreachable int
	)
	for _, port := range c.ports {
		if ctx.Err() != nil {
			return Observation{Err: ctx.Err()}
		}

		dctx, cancel := context.WithTimeout(ctx, c.timeout)
		conn, err := c.dialer.DialContext(dctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
		cancel()

		obs.Sent++
		switch {
		case err == nil:
			_ = conn.Close()
			obs.Received++
		case errors.Is(err, syscall.ECONNREFUSED):
			obs.Received++
		case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
			unreachable++
		case ctx.Err() != nil:
			return Observation{Err: ctx.Err()}
		}
	}

	obs.HasStats = true
	obs.LossPercent = lossPercent(obs.Sent, obs.Received)
	obs.Rejected = obs.Received == 0 && unreachable > 0
	return obs
}
