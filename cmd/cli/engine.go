package cli

import (
	"github.com/anstrom/recon/internal/availability"
	"github.com/anstrom/recon/internal/banner"
	"github.com/anstrom/recon/internal/config"
	"github.com/anstrom/recon/internal/discovery"
	"github.com/anstrom/recon/internal/firewall"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/nmapscan"
	"github.com/anstrom/recon/internal/procexec"
	"github.com/anstrom/recon/internal/resolve"
	"github.com/anstrom/recon/internal/scanning"
)

// buildEngine wires every component named in cfg into one engine. The
// availability engine probes ports through its own non cross-checking
// chain built from the same strategies.
func buildEngine(cfg *config.Config, pm *metrics.PrometheusMetrics, logger *logging.Logger) *scanning.Engine {
	logger = logging.OrDefault(logger)
	var scanMetrics metrics.ScanMetrics = metrics.Nop{}
	if pm != nil {
		scanMetrics = pm
	}

	strategies := buildStrategies(cfg, scanMetrics, logger)

	var portProbe availability.PortProbe
	if cfg.Availability.PortProbe {
		chain := scanning.NewStrategyChain(strategies, false, logger)
		portProbe = chain.PortProbe(model.Technique(cfg.Scanning.DefaultTechnique))
	}

	avail := availability.NewEngine(availability.Config{
		Probers: discovery.Build(discovery.Config{
			Methods:     cfg.Availability.Methods,
			PingCount:   cfg.Availability.PingCount,
			PingTimeout: cfg.Availability.PingTimeout,
			Privileged:  cfg.Availability.Privileged,
			NmapBinary:  cfg.Nmap.BinaryPath,
		}, discovery.WithLogger(logger)),
		Classifier:   buildClassifier(cfg, scanMetrics, logger),
		PortProbe:    portProbe,
		ProbePorts:   cfg.Availability.Ports,
		ProbeTimeout: cfg.Availability.ProbeTimeout,
		Grace:        scanning.InnerGrace(cfg.Scanning.Grace),
		Metrics:      scanMetrics,
		Logger:       logger,
	})

	// A typed nil *banner.Grabber would defeat the merger's nil check.
	var grabber scanning.BannerGrabber
	if cfg.Banner.Enabled {
		grabber = banner.New(banner.Config{
			ConnectTimeout: cfg.Banner.ConnectTimeout,
			WriteTimeout:   cfg.Banner.WriteTimeout,
			ReadTimeout:    cfg.Banner.ReadTimeout,
			BufferSize:     cfg.Banner.BufferSize,
			SNMPCommunity:  cfg.Banner.SNMPCommunity,
			Logger:         logger,
		})
	}

	return scanning.NewEngine(scanning.Options{
		Strategies:        strategies,
		CrossCheck:        cfg.Scanning.CrossCheck,
		Grabber:           grabber,
		BannerConcurrency: cfg.Banner.Concurrency,
		Availability:      avail,
		Resolver: resolve.New(resolve.Config{
			Nameservers: cfg.Resolver.Nameservers,
			Timeout:     cfg.Resolver.Timeout,
			Logger:      logger,
		}),
		DefaultPorts:     cfg.Scanning.DefaultPorts,
		DefaultTechnique: model.Technique(cfg.Scanning.DefaultTechnique),
		DefaultDeadline:  cfg.Scanning.DefaultDeadline,
		Grace:            cfg.Scanning.Grace,
		Metrics:          scanMetrics,
		Logger:           logger,
	})
}

func buildStrategies(cfg *config.Config, m metrics.ScanMetrics, logger *logging.Logger) []scanning.PortProber {
	var strategies []scanning.PortProber
	if cfg.Nmap.Enabled {
		strategies = append(strategies, scanning.NewDelegatedProber(nmapscan.NewAdapter(nmapscan.Config{
			BinaryPath:       cfg.Nmap.BinaryPath,
			OperationTimeout: cfg.Nmap.OperationTimeout,
			HostTimeout:      cfg.Nmap.HostTimeout,
			ServiceDetection: cfg.Nmap.ServiceDetection,
			VersionIntensity: cfg.Nmap.VersionIntensity,
			Timing:           cfg.Nmap.Timing,
			Grace:            scanning.InnerGrace(cfg.Scanning.Grace),
			Metrics:          m,
			Logger:           logger,
		})))
	}
	return append(strategies, scanning.NewSocketProber(scanning.SocketProberConfig{
		Width:       cfg.Scanning.WorkerPoolSize,
		DialTimeout: cfg.Scanning.DialTimeout,
		MaxPorts:    cfg.Scanning.MaxFallbackPorts,
		Metrics:     m,
		Logger:      logger,
	}))
}

func buildClassifier(cfg *config.Config, m metrics.ScanMetrics, logger *logging.Logger) *firewall.Classifier {
	runner := procexec.NewExecRunner()

	techniques := make([]firewall.Technique, 0, len(cfg.Firewall.Techniques))
	for _, name := range cfg.Firewall.Techniques {
		technique, ok := firewall.BuildTechnique(firewall.TechniqueSpec{
			Name:         name,
			Hping3Path:   cfg.Firewall.Hping3Path,
			ProbePort:    cfg.Firewall.ProbePort,
			Count:        cfg.Firewall.Count,
			ConnectPorts: cfg.Firewall.ConnectPorts,
			DialTimeout:  cfg.Scanning.DialTimeout,
			Runner:       runner,
		})
		if !ok {
			logger.Warn("Unknown firewall technique skipped", "technique", name)
			continue
		}
		techniques = append(techniques, technique)
	}

	return firewall.NewClassifier(firewall.Config{
		Techniques:       techniques,
		TechniqueTimeout: cfg.Firewall.TechniqueTimeout,
		Metrics:          m,
		Logger:           logger,
	})
}
