package scanning

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/ports"
)

const (
	defaultDeadline = 3 * time.Minute
	defaultGrace    = 2 * time.Second
	defaultPortSpec = "22,80,443,8080,8443"
)

// Request describes one assessment.
type Request struct {
	Target    string          `json:"target" validate:"required,hostname_rfc1123|ip"`
	Ports     string          `json:"ports"`
	Technique model.Technique `json:"technique" validate:"omitempty,oneof=connect syn udp"`
	Deadline  time.Duration   `json:"deadline" validate:"gte=0"`
}

// Resolver maps a hostname to an address. *resolve.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// AvailabilityAssessor builds the host level picture. *availability.Engine
// satisfies it.
type AvailabilityAssessor interface {
	Assess(ctx context.Context, target model.Target) model.AvailabilityRecord
}

// Options configures an Engine.
type Options struct {
	// Strategies in order of preference, usually delegated then fallback.
	Strategies        []PortProber
	CrossCheck        bool
	Grabber           BannerGrabber
	BannerConcurrency int
	Availability      AvailabilityAssessor
	Resolver          Resolver
	DefaultPorts      string
	DefaultTechnique  model.Technique
	DefaultDeadline   time.Duration
	Grace             time.Duration
	Metrics           metrics.ScanMetrics
	Logger            *logging.Logger
}

// Engine runs assessments. It keeps no state between calls.
type Engine struct {
	chain        *StrategyChain
	merger       *Merger
	availability AvailabilityAssessor
	resolver     Resolver
	validate     *validator.Validate
	defaultPorts string
	technique    model.Technique
	deadline     time.Duration
	grace        time.Duration
	metrics      metrics.ScanMetrics
	logger       *logging.Logger
}

// NewEngine creates an assessment engine.
func NewEngine(opts Options) *Engine {
	logger := logging.OrDefault(opts.Logger).WithComponent("engine")

	e := &Engine{
		chain:        NewStrategyChain(opts.Strategies, opts.CrossCheck, opts.Logger),
		merger:       NewMerger(opts.Grabber, opts.BannerConcurrency, opts.Logger),
		availability: opts.Availability,
		resolver:     opts.Resolver,
		validate:     validator.New(),
		defaultPorts: opts.DefaultPorts,
		technique:    opts.DefaultTechnique,
		deadline:     opts.DefaultDeadline,
		grace:        opts.Grace,
		metrics:      metrics.OrNop(opts.Metrics),
		logger:       logger,
	}
	if e.defaultPorts == "" {
		e.defaultPorts = defaultPortSpec
	}
	if !e.technique.Valid() {
		e.technique = model.TechniqueConnect
	}
	if e.deadline <= 0 {
		e.deadline = defaultDeadline
	}
	if e.grace <= 0 {
		e.grace = defaultGrace
	}
	return e
}

// Assess probes one target and returns a single merged result.
//
// Invalid input fails before anything is sent. Running out of deadline
// yields a partial result and no error. When the caller cancels ctx the
// partial result is returned together with a CANCELED error.
func (e *Engine) Assess(ctx context.Context, req Request) (*model.MergedResult, error) {
	target, technique, err := e.prepare(req)
	if err != nil {
		e.metrics.RecordAssessment(string(req.Technique), "invalid", 0)
		return nil, err
	}

	result := &model.MergedResult{
		ID:        uuid.New(),
		Technique: technique,
		StartTime: time.Now(),
	}
	logger := e.logger.WithAssessmentID(result.ID.String()).WithTarget(target.Host)
	logger.Info("assessment started", "ports", target.PortSpec, "technique", technique, "port_count", len(target.Ports))

	deadline := req.Deadline
	if deadline <= 0 {
		deadline = e.deadline
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	graceUp := graceAfter(runCtx, e.grace)

	target.Address = e.resolve(runCtx, logger, target.Host)
	result.Target = target

	availCh := e.startAvailability(runCtx, target)

	chainRes := e.runChain(runCtx, graceUp, logger, target, technique)
	if chainRes.Succeeded == 0 {
		logger.Error("no port probing strategy could run", "delegated_reason", chainRes.DelegatedReason)
	}

	records := chainRes.Records()
	records = e.merger.Enrich(runCtx, target.DialHost(), records)

	avail := awaitAvailability(availCh, graceUp, logger, target, records)
	if avail.HostHint == "" {
		avail.HostHint = chainRes.OSHint
	}

	result.Ports = records
	result.Availability = avail
	result.FirewallFindings = avail.FirewallFindings
	result.DelegatedAvailable = chainRes.DelegatedAvailable
	result.DelegatedReason = chainRes.DelegatedReason
	result.OSHint = chainRes.OSHint
	result.Truncated = chainRes.Truncated
	result.Partial = chainRes.Partial || avail.Partial || runCtx.Err() != nil
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	status := "success"
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		status = "canceled"
	case result.Partial:
		status = "partial"
	}
	e.recordMetrics(result, status)
	logger.Info("assessment finished",
		"status", status,
		"open_ports", len(result.OpenPorts()),
		"available", avail.IsAvailable,
		"delegated", result.DelegatedAvailable,
		"duration", result.Duration)

	if status == "canceled" {
		return result, recerrors.ErrCanceled(target.Host, ctx.Err())
	}
	return result, nil
}

// AssessAvailability runs only the availability fusion for host.
func (e *Engine) AssessAvailability(ctx context.Context, host string, deadline time.Duration) (model.AvailabilityRecord, error) {
	host = strings.TrimSpace(host)
	if err := e.validate.Var(host, "required,hostname_rfc1123|ip"); err != nil {
		return model.AvailabilityRecord{}, recerrors.ErrInvalidTarget(host)
	}
	if e.availability == nil {
		return model.AvailabilityRecord{}, recerrors.NewScanError(recerrors.CodeConfiguration, "availability assessment is not configured")
	}
	if deadline <= 0 {
		deadline = e.deadline
	}

	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	target := model.Target{Host: host}
	target.Address = e.resolve(runCtx, e.logger.WithTarget(host), host)

	rec := e.availability.Assess(runCtx, target)
	if errors.Is(ctx.Err(), context.Canceled) {
		return rec, recerrors.ErrCanceled(host, ctx.Err())
	}
	return rec, nil
}

func (e *Engine) prepare(req Request) (model.Target, model.Technique, error) {
	req.Target = strings.TrimSpace(req.Target)
	if err := e.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.StructField() == "Target" {
					return model.Target{}, "", recerrors.ErrInvalidTarget(req.Target)
				}
			}
		}
		return model.Target{}, "", recerrors.WrapScanErrorWithTarget(recerrors.CodeValidation, "invalid assessment request", req.Target, err)
	}

	spec := strings.TrimSpace(req.Ports)
	if spec == "" {
		spec = e.defaultPorts
	}
	list, err := ports.Parse(spec)
	if err != nil {
		return model.Target{}, "", recerrors.ErrInvalidPorts(spec, err)
	}

	technique := req.Technique
	if technique == "" {
		technique = e.technique
	}
	return model.Target{Host: req.Target, PortSpec: spec, Ports: list}, technique, nil
}

// resolve returns the address to dial. A failed lookup is not fatal; the
// probes then use the host name as given.
func (e *Engine) resolve(ctx context.Context, logger *logging.Logger, host string) string {
	if e.resolver == nil {
		return ""
	}
	addr, err := e.resolver.Resolve(ctx, host)
	if err != nil {
		logger.Warn("target resolution failed, probing host name directly", "error", err)
		return ""
	}
	return addr
}

// InnerGrace returns the grace period for collaborators that run under
// Assess, such as the fusion engine and the nmap adapter. It is strictly
// shorter than grace so their own cleanup ends before Assess stops
// waiting for them.
func InnerGrace(grace time.Duration) time.Duration {
	if grace <= 0 {
		grace = defaultGrace
	}
	if inner := grace - grace/4; inner > 0 && inner < grace {
		return inner
	}
	return grace
}

// graceAfter returns a channel closed once grace has passed after ctx
// ended. Every wait in Assess is bounded by it.
func graceAfter(ctx context.Context, grace time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	context.AfterFunc(ctx, func() {
		time.AfterFunc(grace, func() { close(ch) })
	})
	return ch
}

// runChain runs the strategy chain but abandons it when the grace period
// is up.
func (e *Engine) runChain(ctx context.Context, graceUp <-chan struct{}, logger *logging.Logger,
	target model.Target, technique model.Technique) ChainResult {
	ch := make(chan ChainResult, 1)
	go func() {
		ch <- e.chain.Run(ctx, target, technique)
	}()

	select {
	case res := <-ch:
		return res
	case <-graceUp:
		select {
		case res := <-ch:
			return res
		default:
		}
		logger.Warn("port probing did not stop after deadline, abandoning it")
		return ChainResult{Partial: true, DelegatedReason: "abandoned after deadline"}
	}
}

func (e *Engine) startAvailability(ctx context.Context, target model.Target) <-chan model.AvailabilityRecord {
	ch := make(chan model.AvailabilityRecord, 1)
	if e.availability == nil {
		close(ch)
		return ch
	}
	go func() {
		ch <- e.availability.Assess(ctx, target)
	}()
	return ch
}

// awaitAvailability waits for the fusion engine until the grace period
// is up, then folds in the port evidence.
func awaitAvailability(ch <-chan model.AvailabilityRecord, graceUp <-chan struct{}, logger *logging.Logger,
	target model.Target, records []model.PortRecord) model.AvailabilityRecord {
	var (
		rec model.AvailabilityRecord
		ok  bool
	)
	select {
	case rec, ok = <-ch:
	case <-graceUp:
		// a record already delivered still counts
		select {
		case rec, ok = <-ch:
		default:
			logger.Warn("availability assessment did not finish in time")
			rec = model.NewAvailabilityRecord(target.Host)
			rec.Partial = true
			ok = true
		}
	}
	if !ok {
		rec = model.NewAvailabilityRecord(target.Host)
	}

	// an open port proves availability no matter what the fusion saw
	for _, r := range records {
		if r.State == model.StateOpen {
			rec.IsAvailable = true
			rec.AddMethod(r.Source)
		}
	}
	return rec
}

func (e *Engine) recordMetrics(result *model.MergedResult, status string) {
	e.metrics.RecordAssessment(string(result.Technique), status, result.Duration)

	type bucket struct {
		source string
		state  model.PortState
	}
	counts := make(map[bucket]int)
	for _, r := range result.Ports {
		counts[bucket{source: string(r.Source.Kind), state: r.State}]++
	}
	for b, n := range counts {
		e.metrics.RecordPorts(b.source, string(b.state), n)
	}
}
