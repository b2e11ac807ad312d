package scanning

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/model"
)

const defaultBannerConcurrency = 10

// Merge reconciles records from several sources into exactly one record per
// (port, protocol). The record with the higher confidence wins; between
// equal confidences the first one seen is kept. The result is sorted by
// port, then protocol.
func Merge(sets ...[]model.PortRecord) []model.PortRecord {
	best := make(map[model.PortKey]model.PortRecord)
	for _, set := range sets {
		for _, rec := range set {
			key := rec.Key()
			current, seen := best[key]
			if !seen || rec.Confidence > current.Confidence {
				best[key] = rec
			}
		}
	}

	merged := make([]model.PortRecord, 0, len(best))
	for _, rec := range best {
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Port != merged[j].Port {
			return merged[i].Port < merged[j].Port
		}
		return merged[i].Protocol < merged[j].Protocol
	})
	return merged
}

// BannerGrabber reads a service banner. *banner.Grabber satisfies it.
type BannerGrabber interface {
	Grab(ctx context.Context, host string, port uint16, proto model.Protocol) string
}

// Merger attaches banners to merged records.
type Merger struct {
	grabber     BannerGrabber
	concurrency int
	logger      *logging.Logger
}

// NewMerger creates a merger. A nil grabber disables enrichment.
func NewMerger(grabber BannerGrabber, concurrency int, logger *logging.Logger) *Merger {
	if concurrency <= 0 {
		concurrency = defaultBannerConcurrency
	}
	return &Merger{
		grabber:     grabber,
		concurrency: concurrency,
		logger:      logging.OrDefault(logger).WithComponent("merger"),
	}
}

// Enrich grabs a banner for every open record that has none yet. Records
// keep their order; only the Banner field changes.
func (m *Merger) Enrich(ctx context.Context, host string, records []model.PortRecord) []model.PortRecord {
	if m.grabber == nil {
		return records
	}

	var g errgroup.Group
	g.SetLimit(m.concurrency)

	grabbed := 0
	for i := range records {
		if records[i].State != model.StateOpen || records[i].Banner != "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		grabbed++
		rec := &records[i]
		g.Go(func() error {
			rec.Banner = m.grabber.Grab(ctx, host, rec.Port, rec.Protocol)
			return nil
		})
	}
	_ = g.Wait()

	m.logger.Debug("banner enrichment finished", "target", host, "grabbed", grabbed)
	return records
}
