package scanning

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/model"
)

var (
	nmapMethod     = model.ProbeMethod{Kind: model.KindDelegated, Name: "nmap"}
	fallbackMethod = model.ProbeMethod{Kind: model.KindFallback, Name: "tcp-connect"}
)

func rec(port uint16, proto model.Protocol, state model.PortState, src model.ProbeMethod) model.PortRecord {
	return model.NewPortRecord(port, proto, state, src)
}

func TestMerge_OneRecordPerKey(t *testing.T) {
	delegated := []model.PortRecord{
		rec(80, model.ProtocolTCP, model.StateOpen, nmapMethod),
		rec(22, model.ProtocolTCP, model.StateOpen, nmapMethod),
		rec(53, model.ProtocolUDP, model.StateOpen, nmapMethod),
	}
	fallback := []model.PortRecord{
		rec(22, model.ProtocolTCP, model.StateOpen, fallbackMethod),
		rec(53, model.ProtocolTCP, model.StateClosed, fallbackMethod),
		rec(8080, model.ProtocolTCP, model.StateFiltered, fallbackMethod),
	}

	merged := Merge(delegated, fallback)

	seen := make(map[model.PortKey]bool)
	for _, r := range merged {
		assert.False(t, seen[r.Key()], "duplicate %v", r.Key())
		seen[r.Key()] = true
	}
	require.Len(t, merged, 5)

	var order []model.PortKey
	for _, r := range merged {
		order = append(order, r.Key())
	}
	assert.Equal(t, []model.PortKey{
		{Port: 22, Protocol: model.ProtocolTCP},
		{Port: 53, Protocol: model.ProtocolTCP},
		{Port: 53, Protocol: model.ProtocolUDP},
		{Port: 80, Protocol: model.ProtocolTCP},
		{Port: 8080, Protocol: model.ProtocolTCP},
	}, order)
}

func TestMerge_DelegatedOutranksFallback(t *testing.T) {
	tests := []struct {
		name      string
		delegated model.PortState
		fallback  model.PortState
	}{
		{"delegated open, fallback filtered", model.StateOpen, model.StateFiltered},
		{"delegated filtered, fallback open", model.StateFiltered, model.StateOpen},
		{"delegated closed, fallback open", model.StateClosed, model.StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rec(443, model.ProtocolTCP, tt.delegated, nmapMethod)
			f := rec(443, model.ProtocolTCP, tt.fallback, fallbackMethod)

			for _, merged := range [][]model.PortRecord{Merge([]model.PortRecord{d}, []model.PortRecord{f}), Merge([]model.PortRecord{f}, []model.PortRecord{d})} {
				require.Len(t, merged, 1)
				assert.Equal(t, tt.delegated, merged[0].State)
				assert.Equal(t, model.KindDelegated, merged[0].Source.Kind)
				assert.Equal(t, 2, merged[0].Confidence)
			}
		})
	}
}

func TestMerge_Conflicting443(t *testing.T) {
	delegated := rec(443, model.ProtocolTCP, model.StateOpen, nmapMethod)
	delegated.Service = "https"
	delegated.Version = "nginx 1.25.3"
	fallback := rec(443, model.ProtocolTCP, model.StateFiltered, fallbackMethod)

	merged := Merge([]model.PortRecord{delegated}, []model.PortRecord{fallback})

	require.Len(t, merged, 1)
	assert.Equal(t, delegated, merged[0])
}

func TestMerge_SameSourceKeepsFirst(t *testing.T) {
	first := rec(22, model.ProtocolTCP, model.StateOpen, fallbackMethod)
	second := rec(22, model.ProtocolTCP, model.StateFiltered, fallbackMethod)

	merged := Merge([]model.PortRecord{first, second})
	require.Len(t, merged, 1)
	assert.Equal(t, model.StateOpen, merged[0].State)
}

func TestMerge_Deterministic(t *testing.T) {
	a := []model.PortRecord{rec(3, model.ProtocolTCP, model.StateOpen, nmapMethod), rec(1, model.ProtocolUDP, model.StateOpen, nmapMethod)}
	b := []model.PortRecord{rec(2, model.ProtocolTCP, model.StateClosed, fallbackMethod), rec(1, model.ProtocolTCP, model.StateOpen, fallbackMethod)}

	first := Merge(a, b)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Merge(a, b))
	}
	assert.Empty(t, Merge())
	assert.Empty(t, Merge(nil, nil))
}

type recordingGrabber struct {
	mu       sync.Mutex
	calls    []uint16
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (g *recordingGrabber) Grab(ctx context.Context, host string, port uint16, proto model.Protocol) string {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(g.delay)

	g.mu.Lock()
	g.calls = append(g.calls, port)
	g.mu.Unlock()
	return "banner-" + string(proto)
}

func TestMerger_EnrichOnlyOpenWithoutBanner(t *testing.T) {
	records := []model.PortRecord{
		rec(21, model.ProtocolTCP, model.StateOpen, fallbackMethod),
		rec(22, model.ProtocolTCP, model.StateClosed, fallbackMethod),
		rec(25, model.ProtocolTCP, model.StateOpen, fallbackMethod),
		rec(80, model.ProtocolTCP, model.StateFiltered, fallbackMethod),
	}
	records[2].Banner = "existing"

	g := &recordingGrabber{}
	out := NewMerger(g, 4, logging.Nop()).Enrich(context.Background(), "192.0.2.1", records)

	assert.Equal(t, []uint16{21}, g.calls)
	assert.Equal(t, "banner-tcp", out[0].Banner)
	assert.Empty(t, out[1].Banner)
	assert.Equal(t, "existing", out[2].Banner)
	assert.Equal(t, []uint16{21, 22, 25, 80}, []uint16{out[0].Port, out[1].Port, out[2].Port, out[3].Port})
}

func TestMerger_EnrichBoundsConcurrency(t *testing.T) {
	var records []model.PortRecord
	for p := uint16(1000); p < 1020; p++ {
		records = append(records, rec(p, model.ProtocolTCP, model.StateOpen, fallbackMethod))
	}

	g := &recordingGrabber{delay: 10 * time.Millisecond}
	NewMerger(g, 3, logging.Nop()).Enrich(context.Background(), "192.0.2.1", records)

	assert.Len(t, g.calls, 20)
	assert.LessOrEqual(t, g.maxSeen.Load(), int32(3))
}

func TestMerger_NilGrabber(t *testing.T) {
	records := []model.PortRecord{rec(22, model.ProtocolTCP, model.StateOpen, fallbackMethod)}
	out := NewMerger(nil, 0, logging.Nop()).Enrich(context.Background(), "h", records)
	assert.Empty(t, out[0].Banner)
}
