package internal

import (
	"chat-room/domain"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed inspect.html
var templatesFS embed.FS

// WindowProvider returns the messages currently displayed and the viewer's user id.
type WindowProvider func() ([]domain.Message, string)

type InspectRow struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	SenderID  string `json:"uid"`
	Text      string `json:"text"`
	Alignment string `json:"alignment"`
}

type PageData struct {
	Items []InspectRow
}

// NewDebugRouter serves /healthz, /metrics and /inspect.
// /inspect renders the window as HTML, or JSON with ?format=json.
func NewDebugRouter(gatherer prometheus.Gatherer, window WindowProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/inspect", func(w http.ResponseWriter, r *http.Request) {
		messages, viewer := window()
		rows := make([]InspectRow, 0, len(messages))
		for _, m := range messages {
			rows = append(rows, InspectRow{
				ID:        m.ID.String(),
				CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
				SenderID:  m.SenderID,
				Text:      m.Text,
				Alignment: domain.AlignFor(m, viewer).String(),
			})
		}

		if r.URL.Query().Get("format") == "json" {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(rows)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, PageData{Items: rows})
	})
	return r
}

// StartDebugServer listens on localhost:port until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, handler http.Handler) {
	server := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Debug server available", "url", fmt.Sprintf("http://%s/inspect", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
