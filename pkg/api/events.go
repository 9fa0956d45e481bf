package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

// eventsHandler streams responder activity as server-sent events until the
// client disconnects or the listener shuts down.
func (as *AdminServer) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	if as.events == nil {
		http.Error(w, "event stream not enabled", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the listener's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	sub := as.events.Subscribe()
	defer as.events.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-as.closing:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			data, err := sonnet.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
