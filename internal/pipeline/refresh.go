package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"fresherwatch/internal/domain"
	"fresherwatch/internal/scrape"
	"fresherwatch/internal/store"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Request is the descriptor handed in by the presentation layer.
type Request struct {
	ChannelID string
	Selector  domain.Selector
	Limit     int // per source, clamped to [1,50]; 0 means DefaultLimit
	OnlyNew   bool
}

// Outcome is what a refresh hands back for rendering: the postings to
// deliver (FreshersNow first, then TNP Officer, each newest-first) and any
// per-source failures that made the result partial.
type Outcome struct {
	Postings []domain.JobPosting
	Warnings []scrape.Warning
}

// Status mirrors the most recent refresh for the keepalive API.
type Status struct {
	LastRunAt  string `json:"last_run_at"`
	LastOkAt   string `json:"last_ok_at"`
	LastError  string `json:"last_error"`
	LastPosted int    `json:"last_posted"`
	Running    bool   `json:"running"`
}

type Pipeline struct {
	agg    *scrape.Aggregator
	seen   *store.Store
	status atomic.Value // Status
}

func New(agg *scrape.Aggregator, seen *store.Store) *Pipeline {
	p := &Pipeline{agg: agg, seen: seen}
	p.status.Store(Status{})
	return p
}

// Refresh runs one fetch → filter → record cycle for a channel. Per-source
// failures surface as Outcome.Warnings, not as an error; only a seen-store
// write failure fails the refresh. An empty result is a success.
func (p *Pipeline) Refresh(ctx context.Context, req Request) (Outcome, error) {
	p.markRunning()

	out, err := p.refresh(ctx, req)
	p.markDone(len(out.Postings), err)
	return out, err
}

func (p *Pipeline) refresh(ctx context.Context, req Request) (Outcome, error) {
	limit := clampLimit(req.Limit)

	res := p.agg.Fetch(ctx, req.Selector, limit)

	out := Outcome{Warnings: res.Warnings}
	for _, src := range req.Selector.Sources() {
		list := res.Lists[src]
		if req.OnlyNew {
			list = p.seen.FilterNew(ctx, req.ChannelID, list)
		}
		out.Postings = append(out.Postings, list...)
	}

	if len(out.Postings) == 0 {
		return out, nil
	}

	// Record only what is actually delivered: an only_new=false run still
	// marks its postings seen so later only_new runs suppress them.
	if err := p.seen.Record(ctx, req.ChannelID, out.Postings); err != nil {
		return Outcome{}, fmt.Errorf("record seen links: %w", err)
	}
	return out, nil
}

func (p *Pipeline) Status() Status {
	return p.status.Load().(Status)
}

func (p *Pipeline) markRunning() {
	st := p.Status()
	st.Running = true
	st.LastRunAt = time.Now().Format(time.RFC3339)
	p.status.Store(st)
}

func (p *Pipeline) markDone(posted int, err error) {
	st := p.Status()
	st.Running = false
	st.LastPosted = posted
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = time.Now().Format(time.RFC3339)
	}
	p.status.Store(st)
}

func clampLimit(n int) int {
	if n == 0 {
		return DefaultLimit
	}
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
