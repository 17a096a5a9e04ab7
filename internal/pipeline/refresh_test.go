package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fresherwatch/internal/domain"
	"fresherwatch/internal/scrape"
	"fresherwatch/internal/scrape/freshersnow"
	"fresherwatch/internal/scrape/tnpofficer"
	"fresherwatch/internal/scrape/types"
	"fresherwatch/internal/store"
)

// three valid rows; link is the identity used by the seen-store
const fixturePage = `<!doctype html>
<html><body>
<table>
<tr><th>Company</th><th>Job Role</th><th>Qualification</th><th>Experience</th><th>Location</th><th>Apply Link</th></tr>
<tr><td>Acme</td><td>Trainee A</td><td>B.E</td><td>Freshers</td><td>Pune</td><td><a href="https://example.com/a">Apply</a></td></tr>
<tr><td>Globex</td><td>Trainee B</td><td>B.E</td><td>Freshers</td><td>Pune</td><td><a href="https://example.com/b">Apply</a></td></tr>
<tr><td>Initech</td><td>Trainee C</td><td>B.E</td><td>Freshers</td><td>Pune</td><td><a href="https://example.com/c">Apply</a></td></tr>
</table>
</body></html>`

func newTestPipeline(t *testing.T, fetchers ...types.Fetcher) (*Pipeline, *store.Store) {
	t.Helper()
	seen, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = seen.Close() })

	return New(scrape.NewAggregator(5*time.Second, fetchers...), seen), seen
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixturePage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefreshOnlyNew(t *testing.T) {
	srv := fixtureServer(t)
	pipe, seen := newTestPipeline(t, freshersnow.New(srv.URL, 5*time.Second, nil))
	ctx := context.Background()

	// one of the three is already known to this channel
	if err := seen.Record(ctx, "chan-1", []domain.JobPosting{{Link: "https://example.com/b"}}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	req := Request{ChannelID: "chan-1", Selector: domain.SelectFreshersNow, Limit: 10, OnlyNew: true}

	out, err := pipe.Refresh(ctx, req)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(out.Postings) != 2 {
		t.Fatalf("postings = %d, want 2", len(out.Postings))
	}
	if out.Postings[0].Link != "https://example.com/a" || out.Postings[1].Link != "https://example.com/c" {
		t.Fatalf("unexpected postings %q, %q", out.Postings[0].Link, out.Postings[1].Link)
	}

	// identical second call: everything delivered above is now seen
	out, err = pipe.Refresh(ctx, req)
	if err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if len(out.Postings) != 0 {
		t.Fatalf("second refresh returned %d postings, want 0", len(out.Postings))
	}
}

func TestRefreshRecordsDeliveredEvenWithoutOnlyNew(t *testing.T) {
	srv := fixtureServer(t)
	pipe, _ := newTestPipeline(t, freshersnow.New(srv.URL, 5*time.Second, nil))
	ctx := context.Background()

	out, err := pipe.Refresh(ctx, Request{ChannelID: "chan-1", Selector: domain.SelectFreshersNow, Limit: 10})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(out.Postings) != 3 {
		t.Fatalf("postings = %d, want 3", len(out.Postings))
	}

	// an only_new run afterwards must suppress what was already delivered
	out, err = pipe.Refresh(ctx, Request{ChannelID: "chan-1", Selector: domain.SelectFreshersNow, Limit: 10, OnlyNew: true})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(out.Postings) != 0 {
		t.Fatalf("postings = %d, want 0", len(out.Postings))
	}
}

func TestRefreshPartialSourceFailure(t *testing.T) {
	srv := fixtureServer(t)

	// a server that is already gone: connection refused
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	pipe, _ := newTestPipeline(t,
		freshersnow.New(srv.URL, 2*time.Second, nil),
		tnpofficer.New(deadURL+"/2025-batch/", 2*time.Second, nil),
	)

	out, err := pipe.Refresh(context.Background(), Request{ChannelID: "chan-1", Selector: domain.SelectBoth, Limit: 10})
	if err != nil {
		t.Fatalf("Refresh must not fail on a single dead source: %v", err)
	}
	if len(out.Postings) != 3 {
		t.Fatalf("postings = %d, want 3 from the healthy source", len(out.Postings))
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Source != domain.SourceTNPOfficer {
		t.Fatalf("warnings = %+v", out.Warnings)
	}
}

func TestRefreshSurfacesRecordFailure(t *testing.T) {
	srv := fixtureServer(t)
	pipe, seen := newTestPipeline(t, freshersnow.New(srv.URL, 5*time.Second, nil))

	// a closed store fails every write
	if err := seen.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := pipe.Refresh(context.Background(), Request{ChannelID: "chan-1", Selector: domain.SelectFreshersNow})
	if err == nil {
		t.Fatal("expected the refresh to fail when recording does")
	}
	if st := pipe.Status(); st.LastError == "" {
		t.Error("status did not capture the failure")
	}
}

func TestRefreshStatus(t *testing.T) {
	srv := fixtureServer(t)
	pipe, _ := newTestPipeline(t, freshersnow.New(srv.URL, 5*time.Second, nil))

	if _, err := pipe.Refresh(context.Background(), Request{ChannelID: "chan-1", Selector: domain.SelectFreshersNow}); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	st := pipe.Status()
	if st.Running {
		t.Error("status still running")
	}
	if st.LastPosted != 3 || st.LastError != "" || st.LastOkAt == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -5: 1, 1: 1, 30: 30, 50: 50, 200: 50}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
