package freshersnow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"fresherwatch/internal/domain"
	"fresherwatch/internal/scrape/types"
	"fresherwatch/internal/scrape/util"
)

const DefaultURL = "https://www.freshersnow.com/freshers-jobs/"

// wantedColumns are the lowercase header fragments the listing table is
// matched against. A table qualifies when at least four of them appear in
// its header row.
var wantedColumns = []string{"company", "job role", "qualification", "experience", "location", "apply"}

// fallbackContainers are tried in order when no listing table is present.
// The site has changed shape before; these cover the layouts seen so far.
var fallbackContainers = []string{
	"article.type-post",
	"div.job-list",
	"li.job-item",
	"div.post",
}

// auxLabels maps posting fields to the label keywords that may precede their
// value in loosely structured markup ("Company: Foo Pvt Ltd"). Kept as data
// so new label variants are additive.
var auxLabels = map[string][]string{
	"company":       {"company", "company name"},
	"qualification": {"qualification", "eligibility"},
	"experience":    {"experience"},
	"location":      {"location", "job location"},
}

type Scraper struct {
	url string
	hc  *http.Client
	lim *util.HostLimiter
}

func New(url string, timeout time.Duration, lim *util.HostLimiter) *Scraper {
	if url == "" {
		url = DefaultURL
	}
	return &Scraper{
		url: url,
		hc:  &http.Client{Timeout: timeout},
		lim: lim,
	}
}

func (s *Scraper) Source() domain.Source { return domain.SourceFreshersNow }

func (s *Scraper) Fetch(ctx context.Context) ([]domain.JobPosting, error) {
	if s.lim != nil {
		if err := s.lim.WaitURL(ctx, s.url); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", util.UserAgent)

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("freshersnow get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("freshersnow status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("freshersnow read body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("freshersnow parse html: %w", err)
	}
	jobs, err := Extract(doc)
	if err != nil {
		// shape of the page matters when the extractor gives up on it
		return nil, fmt.Errorf("freshersnow extract (page %d bytes, %d tables, %d anchors): %w",
			len(body), doc.Find("table").Length(), doc.Find("a[href]").Length(), err)
	}
	return jobs, nil
}

// Extract pulls postings out of an already-parsed page, preserving document
// order. It prefers the main listing table and falls back to loose
// article/list parsing when the table is missing or empty. Malformed entries
// (no title or no link) are skipped, not fatal.
func Extract(doc *goquery.Document) ([]domain.JobPosting, error) {
	table := findListingTable(doc)
	if table != nil {
		if jobs := extractTable(table); len(jobs) > 0 {
			return jobs, nil
		}
	}

	jobs, err := extractLoose(doc)
	if err != nil {
		if table != nil {
			// the container was recognized, it just had no usable rows
			return nil, nil
		}
		return nil, err
	}
	return jobs, nil
}

func findListingTable(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		headers := headerTexts(table)
		if len(headers) == 0 {
			return true
		}
		hits := 0
		for _, w := range wantedColumns {
			for _, h := range headers {
				if strings.Contains(h, w) {
					hits++
					break
				}
			}
		}
		if hits >= 4 {
			found = table
			return false
		}
		return true
	})
	return found
}

func headerTexts(table *goquery.Selection) []string {
	var out []string
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		out = append(out, strings.ToLower(util.CleanText(th.Text())))
	})
	if len(out) > 0 {
		return out
	}
	// some tables put the header in the first row as plain cells
	table.Find("tr").First().Find("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.ToLower(util.CleanText(c.Text())))
	})
	return out
}

func extractTable(table *goquery.Selection) []domain.JobPosting {
	var headers []string
	table.Find("tr").First().Find("th, td").Each(func(_ int, c *goquery.Selection) {
		headers = append(headers, strings.ToLower(util.CleanText(c.Text())))
	})

	idx := map[string]int{}
	for i, h := range headers {
		for _, name := range wantedColumns {
			if _, taken := idx[name]; !taken && strings.Contains(h, name) {
				idx[name] = i
			}
		}
	}

	var out []domain.JobPosting
	table.Find("tr").Each(func(ri int, row *goquery.Selection) {
		if ri == 0 {
			return // header row
		}
		cells := row.Find("td, th")
		if cells.Length() < 4 {
			return
		}

		cellText := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= cells.Length() {
				return ""
			}
			return util.CleanText(cells.Eq(i).Text())
		}
		cellLink := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= cells.Length() {
				return ""
			}
			href, _ := cells.Eq(i).Find("a[href]").First().Attr("href")
			return strings.TrimSpace(href)
		}

		title := cellText("job role")
		link := cellLink("apply")
		if link == "" {
			link = cellLink("job role")
		}
		if link == "" {
			// the apply anchor sometimes sits in the last cell regardless
			// of what the header says
			href, _ := cells.Eq(cells.Length() - 1).Find("a[href]").First().Attr("href")
			link = strings.TrimSpace(href)
		}
		if title == "" || link == "" {
			return
		}

		out = append(out, domain.JobPosting{
			Title:         title,
			Link:          link,
			Company:       cellText("company"),
			Qualification: cellText("qualification"),
			Experience:    cellText("experience"),
			Location:      cellText("location"),
			Source:        domain.SourceFreshersNow,
		})
	})
	return out
}

func extractLoose(doc *goquery.Document) ([]domain.JobPosting, error) {
	var items *goquery.Selection
	for _, sel := range fallbackContainers {
		items = doc.Find(sel)
		if items.Length() > 0 {
			break
		}
	}
	if items == nil || items.Length() == 0 {
		items = doc.Find("article, .post, .entry, .blog-post, li")
		if items.Length() > 100 {
			items = items.Slice(0, 100)
		}
	}
	if items.Length() == 0 {
		return nil, types.ErrNoListing
	}

	var out []domain.JobPosting
	items.Each(func(_ int, item *goquery.Selection) {
		a := item.Find("a[href]").First()
		title := util.CleanText(a.Text())
		link, _ := a.Attr("href")
		link = strings.TrimSpace(link)
		if title == "" || link == "" {
			ha := item.Find("h2 a, h3 a").First()
			if href, ok := ha.Attr("href"); ok {
				if title == "" {
					title = util.CleanText(ha.Text())
				}
				if link == "" {
					link = strings.TrimSpace(href)
				}
			}
		}
		if title == "" || link == "" {
			return
		}

		aux := scanAuxFields(item)
		out = append(out, domain.JobPosting{
			Title:         title,
			Link:          link,
			Company:       aux["company"],
			Qualification: aux["qualification"],
			Experience:    aux["experience"],
			Location:      aux["location"],
			Source:        domain.SourceFreshersNow,
		})
	})
	return out, nil
}

// scanAuxFields walks the item's text a line at a time looking for
// "<label>: <value>" pairs. A missing label just leaves that field empty.
func scanAuxFields(item *goquery.Selection) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(item.Text(), "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(util.CleanText(k))
		v = util.CleanText(v)
		if v == "" {
			continue
		}
		for field, labels := range auxLabels {
			if out[field] != "" {
				continue
			}
			for _, l := range labels {
				if k == l {
					out[field] = v
					break
				}
			}
		}
	}
	return out
}
