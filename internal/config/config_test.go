package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2*time.Second, cfg.Scanning.DialTimeout)
	assert.Equal(t, 1024, cfg.Banner.BufferSize)
	assert.Equal(t, []uint16{22, 80, 443}, cfg.Availability.Ports)
	assert.Equal(t, "127.0.0.1:8080", cfg.GetAPIAddress())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "yaml overrides",
			content: `
scanning:
  worker_pool_size: 8
  dial_timeout: 500ms
  cross_check: true
firewall:
  techniques: [tcp_connect]
  count: 5
availability:
  methods: [icmp, nmap]
resolver:
  nameservers: ["127.0.0.1:53"]
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Scanning.WorkerPoolSize)
				assert.Equal(t, 500*time.Millisecond, cfg.Scanning.DialTimeout)
				assert.True(t, cfg.Scanning.CrossCheck)
				assert.Equal(t, []string{"tcp_connect"}, cfg.Firewall.Techniques)
				assert.Equal(t, 5, cfg.Firewall.Count)
				assert.Equal(t, []string{"icmp", "nmap"}, cfg.Availability.Methods)
				assert.Equal(t, []string{"127.0.0.1:53"}, cfg.Resolver.Nameservers)
				// untouched sections keep defaults
				assert.Equal(t, 3*time.Minute, cfg.Nmap.OperationTimeout)
			},
		},
		{
			name:    "json content",
			content: `{"scanning": {"worker_pool_size": 3}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3, cfg.Scanning.WorkerPoolSize)
			},
		},
		{
			name:    "invalid technique",
			content: "firewall:\n  techniques: [tcp_xmas]\n",
			wantErr: true,
		},
		{
			name:    "zero pool",
			content: "scanning:\n  worker_pool_size: 0\n",
			wantErr: true,
		},
		{
			name:    "bad default technique",
			content: "scanning:\n  default_technique: stealth\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			content: "scanning: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "recon.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recon.yaml")

	cfg := Default()
	cfg.Scanning.MaxFallbackPorts = 100
	cfg.Firewall.ProbePort = 443
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, loaded.Scanning.MaxFallbackPorts)
	assert.Equal(t, 443, loaded.Firewall.ProbePort)
	assert.Equal(t, cfg.Scanning.DialTimeout, loaded.Scanning.DialTimeout)
}
