// Package scanning assesses the ports of a single target.
//
// # Overview
//
// Engine.Assess is the entry point. It validates a Request, derives one
// deadline for everything it starts and returns one model.MergedResult.
// Port enumeration runs through a StrategyChain of PortProber values,
// normally the delegated nmap scan followed by the TCP connect fallback.
// The availability fusion engine runs concurrently with port probing.
//
// # Main Components
//
//   - SocketProber: TCP connect enumeration over a FixedResourceManager pool
//   - StrategyChain: ordered strategies, first success wins unless cross-checking
//   - Merge: one record per (port, protocol), delegated evidence outranks fallback
//   - Merger: banner enrichment of open records with bounded concurrency
//   - SaveResults / LoadResults: XML and JSON result files
//
// # Usage
//
//	engine := scanning.NewEngine(scanning.Options{
//		Strategies: []scanning.PortProber{
//			scanning.NewDelegatedProber(nmapscan.NewAdapter(nmapscan.Config{})),
//			scanning.NewSocketProber(scanning.SocketProberConfig{Width: 100}),
//		},
//		Grabber: banner.New(banner.Config{}),
//	})
//
//	result, err := engine.Assess(ctx, scanning.Request{
//		Target:    "192.0.2.10",
//		Ports:     "22,80,443",
//		Technique: model.TechniqueConnect,
//		Deadline:  time.Minute,
//	})
//
// # Error Handling
//
// Assess fails only for invalid input (VALIDATION, TARGET_INVALID) and for
// caller cancellation (CANCELED, returned together with the partial result).
// An unavailable nmap, a refused or silent port and a spent deadline are all
// expressed in the result itself.
//
// # Thread Safety
//
// An Engine may be shared. Each Assess call builds its own pool, session
// and result; nothing is written to shared state.
package scanning
