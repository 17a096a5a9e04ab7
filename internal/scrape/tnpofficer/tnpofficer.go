package tnpofficer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"fresherwatch/internal/domain"
	"fresherwatch/internal/scrape/types"
	"fresherwatch/internal/scrape/util"
)

const DefaultURL = "https://tnpofficer.com/2025-batch/"

// contentContainers locate the main content area; anchors outside it are
// navigation, not listings.
const contentContainers = "article, .entry-content, .post-content, .site-content, #content"

// junkKeywords excludes anchors that point at the site's own non-job pages.
var junkKeywords = []string{"mock", "course", "certification", "resources", "quick links"}

// companySeparators split a title like "Acme Off Campus Drive 2025" so the
// leading chunk can be used as the company name.
var companySeparators = []string{" off campus", " Off Campus", " | "}

type Scraper struct {
	url        string
	linkPrefix string
	hc         *http.Client
	lim        *util.HostLimiter
}

func New(pageURL string, timeout time.Duration, lim *util.HostLimiter) *Scraper {
	if pageURL == "" {
		pageURL = DefaultURL
	}
	return &Scraper{
		url:        pageURL,
		linkPrefix: linkPrefixFor(pageURL),
		hc:         &http.Client{Timeout: timeout},
		lim:        lim,
	}
}

// linkPrefixFor derives the prefix a listing anchor must start with: same
// scheme and host as the listing page itself.
func linkPrefixFor(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return "https://tnpofficer.com/"
	}
	return u.Scheme + "://" + u.Host + "/"
}

func (s *Scraper) Source() domain.Source { return domain.SourceTNPOfficer }

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
		return nil, fmt.Errorf("tnpofficer get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("tnpofficer status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("tnpofficer read body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tnpofficer parse html: %w", err)
	}
	jobs, err := Extract(doc, s.linkPrefix)
	if err != nil {
		return nil, fmt.Errorf("tnpofficer extract (page %d bytes, %d containers, %d anchors): %w",
			len(body), doc.Find(contentContainers).Length(), doc.Find("a[href]").Length(), err)
	}
	return jobs, nil
}

// Extract collects drive links from the page's content area, in document
// order. Anchors are kept when they point back into the site, carry a
// title-length text, and don't look like site navigation. Duplicate hrefs
// within one page are dropped.
func Extract(doc *goquery.Document, linkPrefix string) ([]domain.JobPosting, error) {
	containers := doc.Find(contentContainers)
	if containers.Length() == 0 {
		if doc.Find("a[href]").Length() == 0 {
			return nil, types.ErrNoListing
		}
		// page layout changed; scan the whole document rather than fail
		containers = doc.Selection
	}

	seen := map[string]bool{}
	var out []domain.JobPosting

	containers.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		text := util.CleanText(a.Text())

		if !strings.HasPrefix(href, linkPrefix) {
			return
		}
		if len(text) < 6 {
			return
		}
		if util.ContainsAny(text, junkKeywords) {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true

		out = append(out, domain.JobPosting{
			Title:   text,
			Link:    href,
			Company: companyFromTitle(text),
			Source:  domain.SourceTNPOfficer,
		})
	})
	return out, nil
}

// companyFromTitle pulls the company out of the common
// "<Company> off campus drive ..." pattern. Empty when no pattern matches.
func companyFromTitle(title string) string {
	for _, sep := range companySeparators {
		if i := strings.Index(title, sep); i > 0 {
			return strings.TrimSpace(title[:i])
		}
	}
	return ""
}
