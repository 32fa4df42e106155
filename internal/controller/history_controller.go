// internal/controller/history_controller.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/isp-broadcast/internal/service"
)

// HistoryController serves each operator's own feed, so cooldown and selection are per operator.
type HistoryController struct {
	Sessions *Sessions
}

// List serves GET /history?page=&limit=&refresh=true. Unforced reads honour the feed cooldown.
func (c *HistoryController) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	forced, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	res, err := c.Sessions.For(r).History.Fetch(r.Context(), page, limit, forced)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"fetched":  res.Fetched,
		"selected": res.Selected,
	}
	if res.Page != nil {
		resp["messages"] = res.Page.Records
		resp["pagination"] = res.Page.Pagination
		resp["pages"] = service.PageWindow(res.Page.Pagination.Page, res.Page.Pagination.TotalPages)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *HistoryController) Toggle(w http.ResponseWriter, r *http.Request) {
	selected, err := c.Sessions.For(r).History.Toggle(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected": selected})
}

func (c *HistoryController) SelectFailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected": c.Sessions.For(r).History.SelectAllFailed()})
}

func (c *HistoryController) ClearSelection(w http.ResponseWriter, r *http.Request) {
	c.Sessions.For(r).History.ClearSelection()
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected": []string{}})
}

func (c *HistoryController) Resend(w http.ResponseWriter, r *http.Request) {
	n, err := c.Sessions.For(r).History.Resend(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resent": n})
}
