package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// SSEHandler streams a session's progress as server-sent events. The
// session is taken from the {session} path value, falling back to the
// "session" query parameter. The stream ends after the complete event.
func SSEHandler(b *Broker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := r.PathValue("session")
		if session == "" {
			session = r.URL.Query().Get("session")
		}
		if session == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		sub := b.Subscribe(session)
		defer b.Unsubscribe(sub)

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					slog.Error("Failed to encode progress event", "error", err)
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					slog.Debug("Progress observer went away", "session", session, "error", err)
					return
				}
				flusher.Flush()
				if ev.Stage == StageComplete {
					return
				}
			}
		}
	})
}
