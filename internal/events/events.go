package events

import (
	"encoding/json"
	"time"
)

// Event is the envelope streamed over /events: refresh outcomes, schedule
// changes, pings.
type Event struct {
	Type    string          `json:"type"`
	At      time.Time       `json:"at"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func Make(typ, channel string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:    typ,
		At:      time.Now().UTC(),
		Channel: channel,
		Data:    raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
