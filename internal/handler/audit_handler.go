// internal/handler/audit_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/repository"
)

// AuditHandler serves the stored dispatch audit trail straight from the repository.
type AuditHandler struct {
	Repo repository.AuditRepositoryInterface
	Log  logrus.FieldLogger
}

// NewAuditHandler creates a new AuditHandler with the given repository
func NewAuditHandler(repo repository.AuditRepositoryInterface, log logrus.FieldLogger) *AuditHandler {
	return &AuditHandler{Repo: repo, Log: log}
}

// ListAuditHandler returns a paginated list of audit events, optionally filtered by action
func (h *AuditHandler) ListAuditHandler(w http.ResponseWriter, r *http.Request) {
	pageStr := r.URL.Query().Get("page")
	pageSizeStr := r.URL.Query().Get("page_size")
	page := 1
	pageSize := 20

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 {
			pageSize = ps
		}
	}
	if pageSize > 100 {
		pageSize = 100
	}

	action := r.URL.Query().Get("action")
	if action != "" && !validAction(action) {
		http.Error(w, "invalid action filter", http.StatusBadRequest)
		return
	}

	offset := (page - 1) * pageSize
	events, total, err := h.Repo.List(r.Context(), offset, pageSize, action)
	if err != nil {
		h.Log.WithError(err).Error("❌ Error fetching audit events")
		http.Error(w, "failed to fetch audit events: "+err.Error(), http.StatusInternalServerError)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	response := map[string]interface{}{
		"data": events,
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
			"total_pages": totalPages,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func validAction(a string) bool {
	switch model.AuditAction(a) {
	case model.AuditSendCompleted, model.AuditSendFailed, model.AuditScheduled, model.AuditCancelled, model.AuditResend:
		return true
	}
	return false
}
