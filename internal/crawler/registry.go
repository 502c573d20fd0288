package crawler

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/manager-records-crawler/internal/metrics"
)

// Registry lists the managers active in a season.
type Registry struct {
	fetcher Fetcher
	source  Source
	logger  *zap.Logger
}

// NewRegistry builds a Registry reading listing pages through fetcher.
func NewRegistry(fetcher Fetcher, source Source, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		fetcher: fetcher,
		source:  source,
		logger:  logger,
	}
}

// ListManagers fetches the season's listing page and returns its managers.
// A missing table or any unparseable row fails the whole call.
func (r *Registry) ListManagers(ctx context.Context, season int) (ManagerSet, error) {
	listingURL := r.source.ListingURL(season)
	doc, err := r.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing for season %d: %w", season, err)
	}
	metrics.ObservePage("listing")

	rows, err := listingRows(doc)
	if err != nil {
		return nil, fmt.Errorf("season %d: %w", season, err)
	}

	managers := make(ManagerSet, rows.Length())
	var rowErr error
	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		m, err := parseManagerRow(tr)
		if err != nil {
			rowErr = fmt.Errorf("season %d row %d: %w", season, i, err)
			return false
		}
		if !managers.Add(m) {
			r.logger.Debug("duplicate manager in listing",
				zap.Int("season", season),
				zap.String("manager_id", string(m.ID)),
			)
		}
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	r.logger.Info("listed managers",
		zap.Int("season", season),
		zap.Int("rows", rows.Length()),
		zap.Int("managers", len(managers)),
	)
	return managers, nil
}
