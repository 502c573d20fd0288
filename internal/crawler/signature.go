package crawler

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// canonicalTable serializes a results body to a stable string: rows joined by
// newlines, cells by tabs, each cell its whitespace-normalized text followed by
// the hrefs of its links.
func canonicalTable(body *goquery.Selection) string {
	var b strings.Builder
	body.ChildrenFiltered("tr").Each(func(i int, tr *goquery.Selection) {
		if i > 0 {
			b.WriteByte('\n')
		}
		tr.ChildrenFiltered("td,th").Each(func(j int, cell *goquery.Selection) {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(strings.Join(strings.Fields(cell.Text()), " "))
			cell.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				b.WriteByte('|')
				b.WriteString(href)
			})
		})
	})
	return b.String()
}

// SignPage fingerprints a results body as the hex SHA-256 of its canonical form.
func SignPage(body *goquery.Selection) PageSignature {
	sum := sha256.Sum256([]byte(canonicalTable(body)))
	return PageSignature(hex.EncodeToString(sum[:]))
}
