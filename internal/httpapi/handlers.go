package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"fresherwatch/internal/events"
	"fresherwatch/internal/pipeline"
	"fresherwatch/internal/sched"
)

type HealthHandler struct{}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().Format(time.RFC3339),
	})
}

type StatusHandler struct {
	Status func() pipeline.Status
}

func (h StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Status())
}

type SchedulesHandler struct {
	Sched *sched.Scheduler
}

type scheduleView struct {
	ChannelID string `json:"channelId"`
	At        string `json:"at"`
	TZ        string `json:"tz"`
	Selector  string `json:"selector"`
	NextFire  string `json:"nextFire,omitempty"`
}

func (h SchedulesHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.Sched.Entries()
	out := make([]scheduleView, 0, len(entries))
	for _, e := range entries {
		v := scheduleView{
			ChannelID: e.ChannelID,
			At:        fmt.Sprintf("%02d:%02d", e.Hour, e.Minute),
			TZ:        e.TZ,
			Selector:  string(e.Selector),
		}
		if next, ok := h.Sched.NextFire(e.ChannelID); ok {
			v.NextFire = next.Format(time.RFC3339)
		}
		out = append(out, v)
	}
	WriteJSON(w, http.StatusOK, out)
}

type EventsHandler struct {
	Hub *events.Hub
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "streaming unsupported")
		return
	}

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	fmt.Fprintf(w, "event: message\ndata: %s\n\n", events.Make("ping", "", nil))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
