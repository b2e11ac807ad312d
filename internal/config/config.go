// Package config holds the recon configuration file model. Files are
// YAML; every section has defaults so an absent file is valid.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/recon/internal/logging"
)

const (
	configDirPerm  = 0750
	configFilePerm = 0600
)

// Config represents the complete recon configuration.
type Config struct {
	Scanning     ScanningConfig     `yaml:"scanning" json:"scanning"`
	Nmap         NmapConfig         `yaml:"nmap" json:"nmap"`
	Banner       BannerConfig       `yaml:"banner" json:"banner"`
	Firewall     FirewallConfig     `yaml:"firewall" json:"firewall"`
	Availability AvailabilityConfig `yaml:"availability" json:"availability"`
	Resolver     ResolverConfig     `yaml:"resolver" json:"resolver"`
	API          APIConfig          `yaml:"api" json:"api"`
	Logging      logging.Config     `yaml:"logging" json:"logging"`
}

// ScanningConfig holds socket prober and orchestration settings.
type ScanningConfig struct {
	// Width of the socket probe pool.
	WorkerPoolSize int `yaml:"worker_pool_size" json:"worker_pool_size" validate:"min=1,max=4096"`

	// Per-port connect timeout.
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout" validate:"gt=0"`

	// Upper bound on ports handed to the socket prober.
	MaxFallbackPorts int `yaml:"max_fallback_ports" json:"max_fallback_ports" validate:"min=1,max=65535"`

	// Run the socket prober even when the delegated scan succeeded.
	CrossCheck bool `yaml:"cross_check" json:"cross_check"`

	DefaultPorts     string        `yaml:"default_ports" json:"default_ports" validate:"required"`
	DefaultTechnique string        `yaml:"default_technique" json:"default_technique" validate:"oneof=connect syn udp"`
	DefaultDeadline  time.Duration `yaml:"default_deadline" json:"default_deadline" validate:"gt=0"`

	// Extra time Assess may take past its deadline to assemble results.
	Grace time.Duration `yaml:"grace" json:"grace" validate:"gt=0"`
}

// NmapConfig holds delegated scan settings.
type NmapConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	BinaryPath       string        `yaml:"binary_path" json:"binary_path"`
	OperationTimeout time.Duration `yaml:"operation_timeout" json:"operation_timeout" validate:"gt=0"`
	HostTimeout      time.Duration `yaml:"host_timeout" json:"host_timeout" validate:"gt=0"`
	ServiceDetection bool          `yaml:"service_detection" json:"service_detection"`
	VersionIntensity int           `yaml:"version_intensity" json:"version_intensity" validate:"min=0,max=9"`
	Timing           int           `yaml:"timing" json:"timing" validate:"min=0,max=5"`
}

// BannerConfig holds banner grabbing settings.
type BannerConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout" validate:"gt=0"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout" validate:"gt=0"`
	BufferSize     int           `yaml:"buffer_size" json:"buffer_size" validate:"min=64,max=65536"`
	Concurrency    int           `yaml:"concurrency" json:"concurrency" validate:"min=1"`
	SNMPCommunity  string        `yaml:"snmp_community" json:"snmp_community"`
}

// FirewallConfig holds filter classifier settings.
type FirewallConfig struct {
	Techniques       []string      `yaml:"techniques" json:"techniques" validate:"min=1,dive,oneof=tcp_syn tcp_fin tcp_ack icmp_ping tcp_connect"`
	Hping3Path       string        `yaml:"hping3_path" json:"hping3_path" validate:"required"`
	ProbePort        int           `yaml:"probe_port" json:"probe_port" validate:"min=1,max=65535"`
	Count            int           `yaml:"count" json:"count" validate:"min=1,max=100"`
	TechniqueTimeout time.Duration `yaml:"technique_timeout" json:"technique_timeout" validate:"gt=0"`
	ConnectPorts     []uint16      `yaml:"connect_ports" json:"connect_ports" validate:"min=1,dive,min=1"`
}

// AvailabilityConfig holds fusion engine settings.
type AvailabilityConfig struct {
	Methods      []string      `yaml:"methods" json:"methods" validate:"dive,oneof=icmp nmap"`
	PingCount    int           `yaml:"ping_count" json:"ping_count" validate:"min=1"`
	PingTimeout  time.Duration `yaml:"ping_timeout" json:"ping_timeout" validate:"gt=0"`
	Privileged   bool          `yaml:"privileged" json:"privileged"`
	PortProbe    bool          `yaml:"port_probe" json:"port_probe"`
	Ports        []uint16      `yaml:"ports" json:"ports" validate:"dive,min=1"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" json:"probe_timeout" validate:"gt=0"`
}

// ResolverConfig holds DNS settings. Empty nameservers means the
// system resolv.conf.
type ResolverConfig struct {
	Nameservers []string      `yaml:"nameservers" json:"nameservers" validate:"dive,hostname_port"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	ListenAddr     string        `yaml:"listen_addr" json:"listen_addr" validate:"required"`
	Port           int           `yaml:"port" json:"port" validate:"min=1,max=65535"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout" validate:"gt=0"`
	MaxRequestSize int64         `yaml:"max_request_size" json:"max_request_size" validate:"min=1"`
	AllowedOrigins []string      `yaml:"allowed_origins" json:"allowed_origins"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			WorkerPoolSize:   100,
			DialTimeout:      2 * time.Second,
			MaxFallbackPorts: 1024,
			CrossCheck:       false,
			DefaultPorts:     "22,80,443,8080,8443",
			DefaultTechnique: "connect",
			DefaultDeadline:  3 * time.Minute,
			Grace:            2 * time.Second,
		},
		Nmap: NmapConfig{
			Enabled:          true,
			OperationTimeout: 3 * time.Minute,
			HostTimeout:      2 * time.Minute,
			ServiceDetection: true,
			VersionIntensity: 0,
			Timing:           4,
		},
		Banner: BannerConfig{
			Enabled:        true,
			ConnectTimeout: 3 * time.Second,
			WriteTimeout:   2 * time.Second,
			ReadTimeout:    2 * time.Second,
			BufferSize:     1024,
			Concurrency:    10,
			SNMPCommunity:  "public",
		},
		Firewall: FirewallConfig{
			Techniques:       []string{"tcp_syn", "tcp_fin", "tcp_ack", "icmp_ping", "tcp_connect"},
			Hping3Path:       "hping3",
			ProbePort:        80,
			Count:            3,
			TechniqueTimeout: 15 * time.Second,
			ConnectPorts:     []uint16{22, 80, 443},
		},
		Availability: AvailabilityConfig{
			Methods:      []string{"icmp"},
			PingCount:    3,
			PingTimeout:  10 * time.Second,
			Privileged:   false,
			PortProbe:    true,
			Ports:        []uint16{22, 80, 443},
			ProbeTimeout: 30 * time.Second,
		},
		Resolver: ResolverConfig{
			Timeout: 5 * time.Second,
		},
		API: APIConfig{
			ListenAddr:     "127.0.0.1",
			Port:           8080,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   5 * time.Minute,
			MaxRequestSize: 1024 * 1024,
			AllowedOrigins: []string{"*"},
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// JSON is a subset of YAML, so one decoder covers both extensions.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// GetAPIAddress returns the full API address.
func (c *Config) GetAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}
