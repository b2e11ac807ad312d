package scanning

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/model"
)

func sampleResult() *model.MergedResult {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rtt := 3.25
	findings := map[string]model.FilterVerdict{
		"tcp_syn":     model.VerdictOpen,
		"tcp_ack":     model.VerdictFiltered,
		"tcp_connect": model.VerdictError,
	}

	ssh := rec(22, model.ProtocolTCP, model.StateOpen, nmapMethod)
	ssh.Service = "ssh"
	ssh.Version = "OpenSSH 9.6"
	ssh.Banner = "SSH-2.0-OpenSSH_9.6"

	return &model.MergedResult{
		ID:        uuid.MustParse("6f1c9d52-3f0e-4a53-9a3e-2a4f3c1b8e77"),
		Target:    model.Target{Host: "scanme.test", Address: "192.0.2.44", PortSpec: "22,443"},
		Technique: model.TechniqueConnect,
		Ports: []model.PortRecord{
			ssh,
			rec(443, model.ProtocolTCP, model.StateFiltered, fallbackMethod),
		},
		Availability: model.AvailabilityRecord{
			Target:           "scanme.test",
			IsAvailable:      true,
			ResponseTimeMs:   &rtt,
			MethodsUsed:      []model.ProbeMethod{{Kind: model.KindReachability, Name: "icmp-echo"}},
			FirewallFindings: findings,
			HostHint:         "Linux 5.15",
		},
		FirewallFindings:   findings,
		DelegatedAvailable: true,
		OSHint:             "Linux 5.15",
		StartTime:          start,
		EndTime:            start.Add(4 * time.Second),
		Duration:           4 * time.Second,
	}
}

func assertSameResult(t *testing.T, want, got *model.MergedResult) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Target.Host, got.Target.Host)
	assert.Equal(t, want.Target.Address, got.Target.Address)
	assert.Equal(t, []uint16{22, 443}, got.Target.Ports)
	assert.Equal(t, want.Technique, got.Technique)
	assert.Equal(t, want.Ports, got.Ports)
	assert.Equal(t, want.FirewallFindings, got.FirewallFindings)
	assert.Equal(t, want.DelegatedAvailable, got.DelegatedAvailable)
	assert.Equal(t, want.OSHint, got.OSHint)
	assert.True(t, want.StartTime.Equal(got.StartTime))
	assert.Equal(t, want.Duration, got.Duration)

	assert.True(t, got.Availability.IsAvailable)
	require.NotNil(t, got.Availability.ResponseTimeMs)
	assert.InDelta(t, 3.25, *got.Availability.ResponseTimeMs, 0.0001)
	assert.Equal(t, want.Availability.MethodsUsed, got.Availability.MethodsUsed)
	assert.Equal(t, "Linux 5.15", got.Availability.HostHint)
}

func TestSaveLoadResults(t *testing.T) {
	for _, name := range []string{"result.xml", "result.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := sampleResult()

			require.NoError(t, SaveResults(want, path))
			got, err := LoadResults(path)
			require.NoError(t, err)

			assertSameResult(t, want, got)
		})
	}
}

func TestSaveResults_XMLShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xml")
	require.NoError(t, SaveResults(sampleResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, `<recon version="1">`)
	assert.Contains(t, out, `<assessment id="6f1c9d52-3f0e-4a53-9a3e-2a4f3c1b8e77"`)
	assert.Contains(t, out, `<finding technique="tcp_ack" verdict="filtered">`)
}

func TestSaveResults_Errors(t *testing.T) {
	err := SaveResults(nil, filepath.Join(t.TempDir(), "x.xml"))
	assert.True(t, recerrors.IsCode(err, recerrors.CodeValidation))

	err = SaveResults(sampleResult(), "../escape.xml")
	assert.True(t, recerrors.IsCode(err, recerrors.CodeValidation))

	err = SaveResults(sampleResult(), filepath.Join(t.TempDir(), "missing", "dir", "x.xml"))
	assert.True(t, recerrors.IsCode(err, recerrors.CodeFileNotFound))
}

func TestLoadResults_Errors(t *testing.T) {
	_, err := LoadResults(filepath.Join(t.TempDir(), "absent.xml"))
	assert.True(t, recerrors.IsCode(err, recerrors.CodeFileNotFound))

	garbage := filepath.Join(t.TempDir(), "garbage.xml")
	require.NoError(t, os.WriteFile(garbage, []byte("<recon><assessment"), 0600))
	_, err = LoadResults(garbage)
	assert.True(t, recerrors.IsCode(err, recerrors.CodeParseFailed))

	empty := filepath.Join(t.TempDir(), "empty.xml")
	require.NoError(t, os.WriteFile(empty, []byte(`<recon version="1"></recon>`), 0600))
	_, err = LoadResults(empty)
	assert.True(t, recerrors.IsCode(err, recerrors.CodeParseFailed))

	_, err = LoadResults("a/../../b.json")
	assert.True(t, recerrors.IsCode(err, recerrors.CodeValidation))
}

func TestValidateFilePath(t *testing.T) {
	assert.NoError(t, validateFilePath("results/out.xml"))
	assert.NoError(t, validateFilePath("/tmp/out..xml"))
	assert.Error(t, validateFilePath(""))
	assert.Error(t, validateFilePath("../out.xml"))
	assert.Error(t, validateFilePath(".."))
}

func TestWriteXML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "<?xml")
	assert.Contains(t, out, `<recon version="1">`)
	assert.Contains(t, out, "<assessment")

	assert.Error(t, WriteXML(&buf, nil))
}
