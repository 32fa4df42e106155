// internal/service/history.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/isp-broadcast/internal/errors"
	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/repository"
)

const (
	DefaultHistoryCooldown = 5 * time.Second
	DefaultHistoryLimit    = 20
	MaxHistoryLimit        = 100
)

// HistoryFeed pages delivery history and holds the resend selection for one session.
// Reads closer together than Cooldown are skipped unless forced.
type HistoryFeed struct {
	Repo     repository.HistoryRepositoryInterface
	Audit    AuditPublisher
	Log      logrus.FieldLogger
	Now      func() time.Time
	Cooldown time.Duration

	mu        sync.Mutex
	loaded    bool
	lastFetch time.Time
	page      *model.HistoryPage
	selected  map[string]struct{}
}

func NewHistoryFeed(repo repository.HistoryRepositoryInterface, audit AuditPublisher, log logrus.FieldLogger) *HistoryFeed {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HistoryFeed{
		Repo:     repo,
		Audit:    audit,
		Log:      log,
		Cooldown: DefaultHistoryCooldown,
		selected: map[string]struct{}{},
	}
}

type FetchResult struct {
	Page *model.HistoryPage `json:"page"`
	// Fetched is false when the cooldown served the previous page.
	Fetched  bool     `json:"fetched"`
	Selected []string `json:"selected"`
}

// Fetch reads one page. The first read of a session always goes out.
func (h *HistoryFeed) Fetch(ctx context.Context, page, limit int, forced bool) (*FetchResult, error) {
	page, limit = clampPage(page, limit)

	h.mu.Lock()
	now := h.now()
	if h.loaded && !forced && now.Sub(h.lastFetch) < h.cooldown() {
		res := &FetchResult{Page: h.page, Selected: h.selectedLocked()}
		h.mu.Unlock()
		return res, nil
	}
	// Stamped before the call so a slow or failing read still holds off the next one.
	h.lastFetch = now
	h.loaded = true
	h.mu.Unlock()

	p, err := h.Repo.List(ctx, page, limit)
	if err != nil {
		if errors.Is(err, appErrors.ErrRateLimited) {
			h.Log.WithFields(logrus.Fields{"page": page, "limit": limit}).Warn("history read rate limited")
		}
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.page = p
	h.pruneSelection()
	return &FetchResult{Page: p, Fetched: true, Selected: h.selectedLocked()}, nil
}

// Toggle flips the selection of a FAILED record on the current page.
func (h *HistoryFeed) Toggle(id string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.recordLocked(id)
	if !ok || rec.Status != model.DeliveryFailed {
		return h.selectedLocked(), appErrors.NewValidation("id", fmt.Errorf("%w: %s", appErrors.ErrRecordNotSelectable, id))
	}
	if _, on := h.selected[id]; on {
		delete(h.selected, id)
	} else {
		h.selected[id] = struct{}{}
	}
	return h.selectedLocked(), nil
}

// SelectAllFailed selects every FAILED record on the current page, replacing the selection.
func (h *HistoryFeed) SelectAllFailed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = map[string]struct{}{}
	if h.page != nil {
		for _, r := range h.page.Records {
			if r.Status == model.DeliveryFailed {
				h.selected[r.ID] = struct{}{}
			}
		}
	}
	return h.selectedLocked()
}

func (h *HistoryFeed) ClearSelection() {
	h.mu.Lock()
	h.selected = map[string]struct{}{}
	h.mu.Unlock()
}

func (h *HistoryFeed) Selected() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selectedLocked()
}

// Resend asks the remote to redeliver the selection. On success the selection is cleared and
// the current page re-read regardless of cooldown; on failure the selection is kept.
func (h *HistoryFeed) Resend(ctx context.Context) (int, error) {
	ids := h.Selected()
	if len(ids) == 0 {
		return 0, appErrors.NewValidation("ids", appErrors.ErrNothingSelected)
	}

	if err := h.Repo.Resend(ctx, ids); err != nil {
		h.Log.WithError(err).WithField("count", len(ids)).Warn("resend rejected")
		return 0, fmt.Errorf("resend messages: %w", err)
	}

	h.mu.Lock()
	h.selected = map[string]struct{}{}
	page, limit := 1, DefaultHistoryLimit
	if h.page != nil {
		page, limit = h.page.Pagination.Page, h.page.Pagination.Limit
	}
	h.mu.Unlock()

	h.Log.WithField("count", len(ids)).Info("messages queued for resend")
	publishAudit(ctx, h.Audit, h.Log, model.AuditEvent{
		Action:     model.AuditResend,
		Reference:  fmt.Sprintf("%d history records", len(ids)),
		Recipients: ids,
		SentCount:  len(ids),
	})

	if _, err := h.Fetch(ctx, page, limit, true); err != nil {
		h.Log.WithError(err).Warn("history refresh after resend failed")
	}
	return len(ids), nil
}

// Reset ends the session: the next Fetch goes out and nothing stays selected.
func (h *HistoryFeed) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = false
	h.lastFetch = time.Time{}
	h.page = nil
	h.selected = map[string]struct{}{}
}

func (h *HistoryFeed) recordLocked(id string) (model.HistoryRecord, bool) {
	if h.page == nil {
		return model.HistoryRecord{}, false
	}
	for _, r := range h.page.Records {
		if r.ID == id {
			return r, true
		}
	}
	return model.HistoryRecord{}, false
}

// pruneSelection drops ids that are no longer FAILED records on the current page.
func (h *HistoryFeed) pruneSelection() {
	for id := range h.selected {
		if rec, ok := h.recordLocked(id); !ok || rec.Status != model.DeliveryFailed {
			delete(h.selected, id)
		}
	}
}

func (h *HistoryFeed) selectedLocked() []string {
	ids := make([]string, 0, len(h.selected))
	for id := range h.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *HistoryFeed) cooldown() time.Duration {
	if h.Cooldown <= 0 {
		return DefaultHistoryCooldown
	}
	return h.Cooldown
}

func (h *HistoryFeed) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return page, limit
}

// PageItem is one pagination control: a page number or a gap.
type PageItem struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// PageWindow lists the pagination controls for current of total pages.
// Up to 7 pages are listed in full. Longer lists keep the first and last page
// and the current page with its neighbours, with a gap marker wherever pages are skipped.
func PageWindow(current, total int) []PageItem {
	if total < 1 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	var items []PageItem
	if total <= 7 {
		for p := 1; p <= total; p++ {
			items = append(items, PageItem{Page: p})
		}
		return items
	}

	pages := []int{1}
	for p := current - 1; p <= current+1; p++ {
		if p > 1 && p < total {
			pages = append(pages, p)
		}
	}
	pages = append(pages, total)
	for i, p := range pages {
		if i > 0 && p-pages[i-1] > 1 {
			items = append(items, PageItem{Ellipsis: true})
		}
		items = append(items, PageItem{Page: p})
	}
	return items
}
