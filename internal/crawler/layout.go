package crawler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBaseURL is the statistics site crawled by default.
const DefaultBaseURL = "https://www.transfermarkt.co.uk"

const (
	listingPath = "/premier-league/trainer/pokalwettbewerb/GB1/plus/0"
	statsPath   = "/%s/bilanztrainer/trainer/%s/ajax/yw1/page/%d"

	// The listing table is the second tbody on the page.
	listingTableIndex = 1

	listingNameCell    = 1
	listingProfileCell = 2
	listingClubCell    = 4

	statsOpponentCell = 0
	statsMatchesCell  = 1
	statsWinsCell     = 2
	statsDrawsCell    = 3
	statsLossesCell   = 4
)

// Source builds URLs for the remote statistics site.
type Source struct {
	BaseURL string
}

func (s Source) base() string {
	if s.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(s.BaseURL, "/")
}

// ListingURL returns the manager listing for a season. The site indexes a
// season by the calendar year preceding its label.
func (s Source) ListingURL(season int) string {
	return fmt.Sprintf("%s%s?saison_id=%d", s.base(), listingPath, season-1)
}

// StatsURL returns one page of a manager's head-to-head statistics.
func (s Source) StatsURL(m Manager, page int) string {
	return fmt.Sprintf("%s"+statsPath+"?ajax=yw1", s.base(), slugify(m.Name), url.PathEscape(string(m.ID)), page)
}

// slugify builds the cosmetic name segment of a stats URL; the site routes on the id alone.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "trainer"
	}
	return slug
}

// listingRows returns the manager rows of a season listing page.
func listingRows(doc *goquery.Document) (*goquery.Selection, error) {
	bodies := doc.Find("tbody")
	if bodies.Length() <= listingTableIndex {
		return nil, fmt.Errorf("%w: listing has %d tbody elements", ErrTableMissing, bodies.Length())
	}
	return bodies.Eq(listingTableIndex).ChildrenFiltered("tr"), nil
}

// resultsBody returns the head-to-head results body, or an empty selection
// when the manager has no recorded matchups.
func resultsBody(doc *goquery.Document) *goquery.Selection {
	return doc.Find("tbody").First()
}

func parseManagerRow(tr *goquery.Selection) (Manager, error) {
	cells := tr.ChildrenFiltered("td")
	if cells.Length() <= listingClubCell {
		return Manager{}, fmt.Errorf("%w: listing row has %d cells", ErrRowMalformed, cells.Length())
	}
	name, ok := cells.Eq(listingNameCell).Find("img").First().Attr("title")
	if !ok {
		return Manager{}, fmt.Errorf("%w: manager name image missing", ErrRowMalformed)
	}
	href, ok := cells.Eq(listingProfileCell).Find("a").First().Attr("href")
	if !ok {
		return Manager{}, fmt.Errorf("%w: manager profile link missing", ErrRowMalformed)
	}
	id, err := idFromHref(href)
	if err != nil {
		return Manager{}, err
	}
	club, ok := cells.Eq(listingClubCell).Find("img").First().Attr("alt")
	if !ok {
		return Manager{}, fmt.Errorf("%w: club image missing for manager %s", ErrRowMalformed, id)
	}
	return Manager{ID: id, Name: strings.TrimSpace(name), Club: strings.TrimSpace(club)}, nil
}

func parseMatchupRow(source Manager, tr *goquery.Selection) (MatchupRecord, error) {
	cells := tr.ChildrenFiltered("td")
	if cells.Length() <= statsLossesCell {
		return MatchupRecord{}, fmt.Errorf("%w: stats row has %d cells", ErrRowMalformed, cells.Length())
	}
	link := cells.Eq(statsOpponentCell).Find("a").First()
	href, ok := link.Attr("href")
	if !ok {
		return MatchupRecord{}, fmt.Errorf("%w: opponent link missing", ErrRowMalformed)
	}
	targetID, err := idFromHref(href)
	if err != nil {
		return MatchupRecord{}, err
	}
	targetName, _ := link.Attr("title")

	rec := MatchupRecord{
		ID:         source.ID,
		Name:       source.Name,
		TargetID:   targetID,
		TargetName: strings.TrimSpace(targetName),
	}
	counts := []struct {
		cell int
		dst  *int
	}{
		{statsMatchesCell, &rec.Matches},
		{statsWinsCell, &rec.Wins},
		{statsDrawsCell, &rec.Draws},
		{statsLossesCell, &rec.Losses},
	}
	for _, c := range counts {
		n, err := parseCount(cells.Eq(c.cell).Text())
		if err != nil {
			return MatchupRecord{}, fmt.Errorf("opponent %s: %w", targetID, err)
		}
		*c.dst = n
	}
	return rec, nil
}

// idFromHref extracts the trailing numeric path segment of a profile link,
// e.g. /jurgen-klopp/profil/trainer/118 -> 118.
func idFromHref(href string) (ManagerID, error) {
	raw := href
	if u, err := url.Parse(href); err == nil {
		raw = u.Path
	}
	raw = strings.TrimRight(raw, "/")
	seg := raw[strings.LastIndex(raw, "/")+1:]
	if seg == "" {
		return "", fmt.Errorf("%w: no identifier in %q", ErrRowMalformed, href)
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: non-numeric identifier in %q", ErrRowMalformed, href)
		}
	}
	return ManagerID(seg), nil
}

// parseCount reads a non-negative count; the site renders zero as "-".
func parseCount(text string) (int, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if text == "" || text == "-" {
		return 0, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: count %q: %v", ErrRowMalformed, text, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrRowMalformed, n)
	}
	return n, nil
}
