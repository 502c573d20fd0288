package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

const testBaseURL = "https://tm.test"

var testSource = Source{BaseURL: testBaseURL}

// fakeFetcher serves canned HTML keyed by URL, falling back to fn.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	fn    func(rawURL string) (string, error)
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()

	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	html, ok := f.pages[rawURL]
	if !ok {
		if f.fn == nil {
			return nil, fmt.Errorf("unexpected url %s", rawURL)
		}
		var err error
		if html, err = f.fn(rawURL); err != nil {
			return nil, err
		}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

type opponent struct {
	id      string
	name    string
	matches int
	wins    int
	draws   int
	losses  int
}

func statsRow(o opponent) string {
	return fmt.Sprintf(
		`<tr><td class="hauptlink"><a href="/%s/profil/trainer/%s" title="%s">%s</a></td>`+
			`<td class="zentriert">%d</td><td class="zentriert">%d</td><td class="zentriert">%d</td><td class="zentriert">%d</td></tr>`,
		slugify(o.name), o.id, o.name, o.name, o.matches, o.wins, o.draws, o.losses,
	)
}

func statsPage(opponents ...opponent) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="responsive-table"><table class="items">`)
	b.WriteString(`<thead><tr><th>Manager</th><th>Matches</th><th>W</th><th>D</th><th>L</th></tr></thead><tbody>`)
	for _, o := range opponents {
		b.WriteString("\n")
		b.WriteString(statsRow(o))
	}
	b.WriteString(`</tbody></table></div></body></html>`)
	return b.String()
}

const emptyStatsPage = `<html><body><div class="empty">No data available</div></body></html>`

// opponentsRange builds n distinct opponents with ids starting at first.
func opponentsRange(first, n int) []opponent {
	out := make([]opponent, 0, n)
	for i := 0; i < n; i++ {
		id := first + i
		out = append(out, opponent{
			id:      fmt.Sprint(id),
			name:    fmt.Sprintf("Manager %d", id),
			matches: id % 7,
			wins:    id % 3,
			draws:   id % 2,
			losses:  id%7 - id%3 - id%2 + 3,
		})
	}
	return out
}

type listed struct {
	id   string
	name string
	club string
}

func listingRow(l listed) string {
	return fmt.Sprintf(
		`<tr><td>1</td><td><img src="/p.png" title="%s" alt="%s"></td>`+
			`<td><a href="/%s/profil/trainer/%s">%s</a></td><td>Age</td>`+
			`<td><img src="/c.png" alt="%s" title="%s"></td></tr>`,
		l.name, l.name, slugify(l.name), l.id, l.name, l.club, l.club,
	)
}

func listingPage(rows ...listed) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="nav"><tbody><tr><td>Filter</td></tr></tbody></table>`)
	b.WriteString(`<table class="items"><thead><tr><th>#</th></tr></thead><tbody>`)
	for _, l := range rows {
		b.WriteString(listingRow(l))
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}
