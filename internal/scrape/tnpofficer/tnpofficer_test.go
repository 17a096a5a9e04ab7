package tnpofficer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"fresherwatch/internal/scrape/types"
)

const listPage = `<!doctype html>
<html><body>
<article class="entry-content">
  <a href="https://tnpofficer.com/acme-drive/">Acme Off Campus Drive 2025 | Software Engineer</a>
  <a href="https://tnpofficer.com/globex-hiring/">Globex hiring freshers for QA roles</a>
  <a href="https://tnpofficer.com/acme-drive/">Acme Off Campus Drive 2025 | Software Engineer</a>
  <a href="https://tnpofficer.com/mock-tests/">Mock Tests and Practice</a>
  <a href="https://tnpofficer.com/x/">short</a>
  <a href="https://elsewhere.example.com/job/">External job board posting</a>
</article>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestExtract(t *testing.T) {
	jobs, err := Extract(mustDoc(t, listPage), "https://tnpofficer.com/")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 postings (dup, junk, short, offsite dropped), got %d", len(jobs))
	}

	if jobs[0].Link != "https://tnpofficer.com/acme-drive/" {
		t.Errorf("link = %q", jobs[0].Link)
	}
	if jobs[0].Company != "Acme" {
		t.Errorf("company = %q (want split before \" Off Campus\")", jobs[0].Company)
	}
	if jobs[1].Company != "" {
		t.Errorf("expected no company for %q, got %q", jobs[1].Title, jobs[1].Company)
	}
}

func TestExtractNoListing(t *testing.T) {
	_, err := Extract(mustDoc(t, `<html><body><p>blank</p></body></html>`), "https://tnpofficer.com/")
	if err != types.ErrNoListing {
		t.Fatalf("expected ErrNoListing, got %v", err)
	}
}

func TestExtractLayoutChangedStillScansAnchors(t *testing.T) {
	// no known container, but anchors exist: scan the whole page
	page := `<html><body><div class="mystery">
	  <a href="https://tnpofficer.com/acme-drive/">Acme Off Campus Drive 2025</a>
	</div></body></html>`
	jobs, err := Extract(mustDoc(t, page), "https://tnpofficer.com/")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(jobs))
	}
}

func TestFetchNoListingReportsPageShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><body><p>blank</p></body></html>`)
	}))
	defer srv.Close()

	s := New(srv.URL+"/2025-batch/", 5*time.Second, nil)
	_, err := s.Fetch(context.Background())
	if !errors.Is(err, types.ErrNoListing) {
		t.Fatalf("err = %v, want ErrNoListing", err)
	}
	if !strings.Contains(err.Error(), "bytes") || !strings.Contains(err.Error(), "containers") {
		t.Fatalf("error lacks page size/shape: %v", err)
	}
}

func TestFetch(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.ReplaceAll(listPage, "https://tnpofficer.com", srv.URL))
	}))
	defer srv.Close()

	s := New(srv.URL+"/2025-batch/", 5*time.Second, nil)
	jobs, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(jobs))
	}
}
