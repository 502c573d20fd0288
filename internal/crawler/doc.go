// Package crawler implements the manager record crawl: the season registry,
// the paginated head-to-head collector with its end-of-data detection, and the
// aggregator that drives both over a range of seasons.
package crawler
