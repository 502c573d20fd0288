package crawler

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/JakeFAU/manager-records-crawler/internal/metrics"
)

// ManagerLister lists the managers of one season.
type ManagerLister interface {
	ListManagers(ctx context.Context, season int) (ManagerSet, error)
}

// RecordCollector collects one manager's matchup records.
type RecordCollector interface {
	CollectRecords(ctx context.Context, m Manager) (Collection, error)
}

// Observer receives progress callbacks while Records runs.
type Observer interface {
	ManagersListed(total int)
	ManagerStarted(index int, m Manager)
	ManagerFinished(m Manager, records int, err error)
}

type nopObserver struct{}

func (nopObserver) ManagersListed(int) {}
func (nopObserver) ManagerStarted(int, Manager) {}
func (nopObserver) ManagerFinished(Manager, int, error) {}

// Aggregator unions season registries and drives the collector over every manager.
type Aggregator struct {
	registry  ManagerLister
	collector RecordCollector
	observer  Observer
	logger    *zap.Logger
}

// NewAggregator builds an Aggregator.
func NewAggregator(registry ManagerLister, collector RecordCollector, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		registry:  registry,
		collector: collector,
		observer:  nopObserver{},
		logger:    logger,
	}
}

// SetObserver installs o for subsequent calls to Records.
func (a *Aggregator) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	a.observer = o
}

// ManagerRows yields one metadata row per manager per season, in ascending id
// order within a season. A failed season yields a *UnitError; iteration
// continues with the next season if the consumer keeps going.
func (a *Aggregator) ManagerRows(ctx context.Context, seasons SeasonRange) iter.Seq2[ManagerRow, error] {
	return func(yield func(ManagerRow, error) bool) {
		for _, season := range seasons.Seasons() {
			if ctx.Err() != nil {
				yield(ManagerRow{}, ctx.Err())
				return
			}
			managers, err := a.registry.ListManagers(ctx, season)
			if err != nil {
				metrics.ObserveUnit("season", "failed")
				if !yield(ManagerRow{}, &UnitError{Season: season, Err: err}) {
					return
				}
				continue
			}
			metrics.ObserveUnit("season", "succeeded")
			for _, m := range managers.Sorted() {
				row := ManagerRow{Season: season, Manager: m.Name, Identifier: m.ID, Club: m.Club}
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// Union returns the managers active in any season of the range. Failed
// seasons are returned as *UnitError values alongside the partial union.
func (a *Aggregator) Union(ctx context.Context, seasons SeasonRange) (ManagerSet, []error) {
	union := make(ManagerSet)
	var errs []error
	for _, season := range seasons.Seasons() {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		managers, err := a.registry.ListManagers(ctx, season)
		if err != nil {
			metrics.ObserveUnit("season", "failed")
			errs = append(errs, &UnitError{Season: season, Err: err})
			continue
		}
		metrics.ObserveUnit("season", "succeeded")
		union.Union(managers)
	}
	return union, errs
}

// Records yields every matchup record of every manager active in the range.
// Managers are visited in ascending id order and each manager's records in
// first-seen order. Records are not deduplicated across source managers.
// Each failed unit yields a *UnitError; the aggregator moves on to the next
// unit as long as the consumer keeps iterating.
func (a *Aggregator) Records(ctx context.Context, seasons SeasonRange) iter.Seq2[MatchupRecord, error] {
	return func(yield func(MatchupRecord, error) bool) {
		union, errs := a.Union(ctx, seasons)
		for _, err := range errs {
			if !yield(MatchupRecord{}, err) {
				return
			}
		}

		managers := union.Sorted()
		a.logger.Info("collecting records",
			zap.Int("first_season", seasons.First),
			zap.Int("last_season", seasons.Last),
			zap.Int("managers", len(managers)),
		)
		a.observer.ManagersListed(len(managers))
		for i, m := range managers {
			if ctx.Err() != nil {
				yield(MatchupRecord{}, ctx.Err())
				return
			}
			a.logger.Info("scraping manager",
				zap.Int("index", i+1),
				zap.Int("total", len(managers)),
				zap.String("manager_id", string(m.ID)),
				zap.String("manager", m.Name),
			)
			a.observer.ManagerStarted(i+1, m)
			collection, err := a.collector.CollectRecords(ctx, m)
			a.observer.ManagerFinished(m, len(collection.Records), err)
			if err != nil {
				metrics.ObserveUnit("manager", "failed")
				if !yield(MatchupRecord{}, &UnitError{Manager: &m, Err: err}) {
					return
				}
				continue
			}
			metrics.ObserveUnit("manager", "succeeded")
			for _, rec := range collection.Ordered() {
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}
