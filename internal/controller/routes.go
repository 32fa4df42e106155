// internal/controller/routes.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Router bundles what the admin API serves. Audit is optional and only mounted with a database.
type Router struct {
	Broadcasts *BroadcastController
	History    *HistoryController
	Audit      http.HandlerFunc
	Limiter    *rate.Limiter
	Log        logrus.FieldLogger
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog(rt.Log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if rt.Limiter != nil {
			r.Use(RateLimit(rt.Limiter))
		}

		b := rt.Broadcasts
		r.Get("/templates", b.ListTemplates)
		r.Post("/templates", b.CreateTemplate)
		r.Put("/templates/{id}", b.UpdateTemplate)
		r.Post("/templates/{id}/test", b.TestTemplate)

		r.Get("/recipients/count", b.RecipientCount)
		r.Post("/recipients/refresh", b.RefreshRecipients)

		r.Post("/broadcasts/preview", b.Preview)
		r.Post("/broadcasts/send", b.Send)
		r.Post("/broadcasts/retry", b.Retry)
		r.Post("/broadcasts/schedule", b.Schedule)
		r.Post("/broadcasts/reset", b.Reset)
		r.Get("/broadcasts/state", b.State)

		r.Get("/scheduled", b.ListScheduled)
		r.Post("/scheduled/{id}/cancel", b.CancelScheduled)

		h := rt.History
		r.Get("/history", h.List)
		r.Post("/history/select/{id}", h.Toggle)
		r.Post("/history/select-failed", h.SelectFailed)
		r.Delete("/history/select", h.ClearSelection)
		r.Post("/history/resend", h.Resend)

		if rt.Audit != nil {
			r.Get("/audit", rt.Audit)
		}
	})
	return r
}
