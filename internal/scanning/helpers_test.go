package scanning

import (
	"bufio"
	"context"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// routeDialer maps logical "host:port" addresses onto loopback listeners.
// Unrouted addresses fail like a silently dropped SYN.
type routeDialer struct {
	mu     sync.Mutex
	routes map[string]string
	inner  net.Dialer
}

func newRouteDialer() *routeDialer {
	return &routeDialer{routes: make(map[string]string)}
}

func (d *routeDialer) route(logical, real string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[logical] = real
}

func (d *routeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	real, ok := d.routes[address]
	d.mu.Unlock()
	if !ok {
		return nil, &net.OpError{Op: "dial", Net: network, Err: os.ErrDeadlineExceeded}
	}
	return d.inner.DialContext(ctx, network, real)
}

// countingDialer tracks how many dials are in flight at once.
type countingDialer struct {
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (d *countingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.calls.Add(1)
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		seen := d.maxSeen.Load()
		if n <= seen || d.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	select {
	case <-time.After(d.delay):
		return nil, &net.OpError{Op: "dial", Net: network, Err: os.ErrDeadlineExceeded}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// blockingDialer never completes a dial before ctx ends.
type blockingDialer struct{}

func (blockingDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// startListener accepts connections and hands them to serve.
func startListener(t *testing.T, serve func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				if serve != nil {
					serve(conn)
				}
			}()
		}
	}()
	return ln.Addr().String()
}

// closedPort returns a loopback address nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func sshServer(conn net.Conn) {
	_, _ = conn.Write([]byte("SSH-2.0-OpenSSH_9.6\r\n"))
	time.Sleep(50 * time.Millisecond)
}

func httpServer(conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "HEAD / HTTP/1.0") {
		return
	}
	_, _ = conn.Write([]byte("HTTP/1.0 200 OK\r\nServer: nginx/1.25.3\r\n\r\n"))
}
