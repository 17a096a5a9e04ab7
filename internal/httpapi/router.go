package httpapi

import (
	"log"
	"net/http"

	"fresherwatch/internal/events"
	"fresherwatch/internal/pipeline"
	"fresherwatch/internal/sched"
)

type Deps struct {
	Hub    *events.Hub
	Sched  *sched.Scheduler
	Status func() pipeline.Status
}

// NewMux builds the keepalive/status surface. It is read-only: the bot's
// slash commands are the mutation path.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))
	mux.HandleFunc("/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: StatusHandler{Status: d.Status}.Get,
	}))
	mux.HandleFunc("/schedules", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: SchedulesHandler{Sched: d.Sched}.List,
	}))
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: EventsHandler{Hub: d.Hub}.ServeSSE,
	}))

	return mux
}

func Start(addr string, handler http.Handler) error {
	log.Printf("[httpapi] listening on %s", addr)
	return http.ListenAndServe(addr, handler)
}
