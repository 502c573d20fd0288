package crawler

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/manager-records-crawler/internal/metrics"
)

// DefaultMaxPages bounds a manager's paginated crawl.
const DefaultMaxPages = 100

// CollectorConfig controls pagination bounds.
type CollectorConfig struct {
	// MaxPages is the safety bound on pages fetched per manager.
	MaxPages int
	// StrictPageLimit turns reaching MaxPages into an error instead of a warning.
	StrictPageLimit bool
}

// Collector walks a manager's head-to-head statistics pages.
type Collector struct {
	fetcher Fetcher
	source  Source
	cfg     CollectorConfig
	logger  *zap.Logger
}

// NewCollector builds a Collector.
func NewCollector(fetcher Fetcher, source Source, cfg CollectorConfig, logger *zap.Logger) *Collector {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		fetcher: fetcher,
		source:  source,
		cfg:     cfg,
		logger:  logger,
	}
}

// CollectRecords crawls pages 1..MaxPages of the manager's statistics and
// returns one record per distinct opponent. The crawl stops when a page has
// no results body, or when a page repeats the previous one (the site re-serves
// its last page past the end). The first row seen for an opponent wins.
func (c *Collector) CollectRecords(ctx context.Context, m Manager) (Collection, error) {
	out := Collection{
		Manager: m,
		Records: make(map[ManagerID]MatchupRecord),
	}
	logger := c.logger.With(zap.String("manager_id", string(m.ID)), zap.String("manager", m.Name))

	var previous PageSignature
	for page := 1; page <= c.cfg.MaxPages; page++ {
		pageURL := c.source.StatsURL(m, page)
		doc, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return Collection{}, fmt.Errorf("fetch stats page %d: %w", page, err)
		}
		metrics.ObservePage("stats")
		out.Pages = page

		body := resultsBody(doc)
		if body.Length() == 0 {
			logger.Info("no results body", zap.Int("page", page), zap.String("url", pageURL))
			return c.finish(out, TerminationEmpty, logger), nil
		}

		sig := SignPage(body)
		if page > 1 && sig == previous {
			return c.finish(out, TerminationRepeated, logger), nil
		}

		if err := c.processRows(m, page, body, &out, logger); err != nil {
			return Collection{}, err
		}
		previous = sig
	}

	if c.cfg.StrictPageLimit {
		metrics.ObserveTermination(string(TerminationPageLimit))
		return Collection{}, fmt.Errorf("manager %s: %w (%d pages)", m.ID, ErrPageLimitReached, c.cfg.MaxPages)
	}
	logger.Warn("page limit reached without end-of-data signal; pagination contract may have changed",
		zap.Int("max_pages", c.cfg.MaxPages),
		zap.Int("records", len(out.Records)),
	)
	return c.finish(out, TerminationPageLimit, logger), nil
}

func (c *Collector) processRows(m Manager, page int, body *goquery.Selection, out *Collection, logger *zap.Logger) error {
	var rowErr error
	body.ChildrenFiltered("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		rec, err := parseMatchupRow(m, tr)
		if err != nil {
			rowErr = fmt.Errorf("stats page %d row %d: %w", page, i, err)
			return false
		}
		if _, seen := out.Records[rec.TargetID]; seen {
			out.Duplicates = append(out.Duplicates, Duplicate{
				TargetID:   rec.TargetID,
				TargetName: rec.TargetName,
				Page:       page,
			})
			metrics.ObserveDuplicate()
			logger.Info("duplicate opponent skipped",
				zap.String("target_id", string(rec.TargetID)),
				zap.String("target", rec.TargetName),
				zap.Int("page", page),
			)
			return true
		}
		out.Records[rec.TargetID] = rec
		out.Order = append(out.Order, rec.TargetID)
		return true
	})
	return rowErr
}

func (c *Collector) finish(out Collection, reason Termination, logger *zap.Logger) Collection {
	out.Termination = reason
	metrics.ObserveTermination(string(reason))
	metrics.ObserveRecords(len(out.Records))
	logger.Info("completed manager",
		zap.String("termination", string(reason)),
		zap.Int("pages", out.Pages),
		zap.Int("records", len(out.Records)),
		zap.Int("duplicates", len(out.Duplicates)),
	)
	return out
}
