// Package csvfile writes crawl output as CSV files on local disk.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
)

// RecordHeader is the column layout of the matchup statistics file.
var RecordHeader = []string{"id", "name", "targetId", "targetName", "matches", "wins", "draws", "losses"}

// ManagerHeader is the column layout of the season managers file.
var ManagerHeader = []string{"season", "manager", "identifier", "club"}

type file struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
	rows int
}

func create(path string, header []string) (*file, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header to %s: %w", path, err)
	}
	return &file{path: path, f: f, w: w}, nil
}

func (c *file) write(row []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return fmt.Errorf("%s is closed", c.path)
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("write row to %s: %w", c.path, err)
	}
	c.rows++
	return nil
}

// Path returns the file location.
func (c *file) Path() string { return c.path }

// Rows returns the number of data rows written.
func (c *file) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Close flushes buffered rows and closes the file. It is safe to call twice.
func (c *file) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return nil
	}
	c.w.Flush()
	flushErr := c.w.Error()
	closeErr := c.f.Close()
	c.f = nil
	if flushErr != nil {
		return fmt.Errorf("flush %s: %w", c.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", c.path, closeErr)
	}
	return nil
}

// RecordWriter streams matchup records to a CSV file.
type RecordWriter struct {
	*file
}

// NewRecordWriter creates (or truncates) path and writes the header row.
func NewRecordWriter(path string) (*RecordWriter, error) {
	f, err := create(path, RecordHeader)
	if err != nil {
		return nil, err
	}
	return &RecordWriter{file: f}, nil
}

// WriteRecord appends one record.
func (w *RecordWriter) WriteRecord(_ context.Context, rec crawler.MatchupRecord) error {
	return w.write([]string{
		string(rec.ID),
		rec.Name,
		string(rec.TargetID),
		rec.TargetName,
		strconv.Itoa(rec.Matches),
		strconv.Itoa(rec.Wins),
		strconv.Itoa(rec.Draws),
		strconv.Itoa(rec.Losses),
	})
}

// ManagerWriter streams season manager rows to a CSV file.
type ManagerWriter struct {
	*file
}

// NewManagerWriter creates (or truncates) path and writes the header row.
func NewManagerWriter(path string) (*ManagerWriter, error) {
	f, err := create(path, ManagerHeader)
	if err != nil {
		return nil, err
	}
	return &ManagerWriter{file: f}, nil
}

// WriteManager appends one row.
func (w *ManagerWriter) WriteManager(_ context.Context, row crawler.ManagerRow) error {
	return w.write([]string{
		strconv.Itoa(row.Season),
		row.Manager,
		string(row.Identifier),
		row.Club,
	})
}
