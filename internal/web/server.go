package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func Handler(status *Status, hub *Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	if hub != nil {
		mux.Handle("/ws", hub)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		snap := status.Snapshot(time.Now().UTC())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>RTK Rover</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>RTK Rover</h1>")
		_, _ = fmt.Fprintf(w, "<p>Machine-readable status at <a href=\"/api/status\">/api/status</a>; live fixes on <code>/ws</code>.</p>")
		_, _ = fmt.Fprintf(w, "<pre>quality=%s\ncaster_connected=%v\nrtcm_rx=%d\nrtcm_tx=%d\nfixes=%d\nlast_tick_utc=%s</pre>",
			snap.Quality, snap.Caster.Connected,
			snap.Stats.CorrectionBytesReceived, snap.Stats.CorrectionBytesForwarded,
			snap.Stats.Fixes, snap.LastTickUTC,
		)
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

// Serve runs the status server until ctx is cancelled. Timeouts guard the
// handshake only; /ws connections are long-lived.
func Serve(ctx context.Context, listenAddr string, status *Status, hub *Hub) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, hub),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
