package crawler

import (
	"fmt"
	"sort"
	"strconv"
)

// ManagerID is the stable numeric identifier the source site assigns to a manager.
type ManagerID string

// Less orders ids numerically, falling back to lexical order for non-numeric ids.
func (id ManagerID) Less(other ManagerID) bool {
	a, errA := strconv.ParseInt(string(id), 10, 64)
	b, errB := strconv.ParseInt(string(other), 10, 64)
	if errA == nil && errB == nil {
		return a < b
	}
	return id < other
}

// Manager is an immutable value describing one manager as observed on a page.
// Identity is defined solely by ID.
type Manager struct {
	ID   ManagerID `json:"id"`
	Name string    `json:"name"`
	Club string    `json:"club"`
}

// ManagerSet holds managers keyed by id.
type ManagerSet map[ManagerID]Manager

// Add inserts m unless a manager with the same id is already present.
// It reports whether m was inserted.
func (s ManagerSet) Add(m Manager) bool {
	if _, ok := s[m.ID]; ok {
		return false
	}
	s[m.ID] = m
	return true
}

// Union adds every manager of other that is not yet present.
func (s ManagerSet) Union(other ManagerSet) {
	for _, m := range other.Sorted() {
		s.Add(m)
	}
}

// Sorted returns the managers ordered by ascending id.
func (s ManagerSet) Sorted() []Manager {
	out := make([]Manager, 0, len(s))
	for _, m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Less(out[j].ID)
	})
	return out
}

// MatchupRecord is the head-to-head history between a source manager and one opponent.
type MatchupRecord struct {
	ID         ManagerID `json:"id"`
	Name       string    `json:"name"`
	TargetID   ManagerID `json:"targetId"`
	TargetName string    `json:"targetName"`
	Matches    int       `json:"matches"`
	Wins       int       `json:"wins"`
	Draws      int       `json:"draws"`
	Losses     int       `json:"losses"`
}

// ManagerRow is one line of the per-season manager metadata export.
type ManagerRow struct {
	Season     int       `json:"season"`
	Manager    string    `json:"manager"`
	Identifier ManagerID `json:"identifier"`
	Club       string    `json:"club"`
}

// PageSignature fingerprints the results table of one fetched page.
type PageSignature string

// Termination describes why a manager's paginated crawl stopped.
type Termination string

// Termination values reported by the collector.
const (
	TerminationEmpty     Termination = "empty"
	TerminationRepeated  Termination = "repeated"
	TerminationPageLimit Termination = "page_limit"
)

// Duplicate describes an opponent row skipped because its id was already collected.
type Duplicate struct {
	TargetID   ManagerID
	TargetName string
	Page       int
}

// Collection is the outcome of one manager's paginated crawl.
type Collection struct {
	Manager     Manager
	Records     map[ManagerID]MatchupRecord
	Order       []ManagerID
	Termination Termination
	Pages       int
	Duplicates  []Duplicate
}

// Ordered returns the records in the order their opponents were first seen.
func (c Collection) Ordered() []MatchupRecord {
	out := make([]MatchupRecord, 0, len(c.Order))
	for _, id := range c.Order {
		out = append(out, c.Records[id])
	}
	return out
}

// SeasonRange is an inclusive range of season labels.
type SeasonRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Validate rejects inverted or non-positive ranges.
func (r SeasonRange) Validate() error {
	if r.First <= 0 || r.Last <= 0 {
		return fmt.Errorf("season range %d-%d must be positive", r.First, r.Last)
	}
	if r.Last < r.First {
		return fmt.Errorf("season range %d-%d is inverted", r.First, r.Last)
	}
	return nil
}

// Seasons enumerates the seasons in ascending order.
func (r SeasonRange) Seasons() []int {
	if r.Last < r.First {
		return nil
	}
	out := make([]int, 0, r.Last-r.First+1)
	for s := r.First; s <= r.Last; s++ {
		out = append(out, s)
	}
	return out
}
