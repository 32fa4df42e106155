// internal/controller/broadcast_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/service"
)

type BroadcastController struct {
	Templates  *service.TemplateService
	Recipients *service.RecipientResolver
	Composer   *service.Composer
	Sessions   *Sessions
	Log        logrus.FieldLogger
}

type composeBody struct {
	Name         string                `json:"name"`
	Population   model.PopulationScope `json:"populationScope"`
	RegionID     string                `json:"regionId"`
	StatusFilter model.StatusFilter    `json:"statusFilter"`
	TemplateID   string                `json:"templateId"`
	Message      string                `json:"message"`
}

// compose renders the request body. Templates are re-read so a just-enabled template is honoured.
func (c *BroadcastController) compose(r *http.Request, body composeBody) (*service.Composition, error) {
	in := service.ComposeInput{
		Name: body.Name,
		Scope: model.RecipientScope{
			Population:   body.Population,
			RegionID:     body.RegionID,
			StatusFilter: body.StatusFilter,
		},
		FreeText: body.Message,
	}
	if body.TemplateID != "" {
		t, err := c.Templates.Get(r.Context(), body.TemplateID)
		if err != nil {
			return nil, err
		}
		in.Template = t
	}
	return c.Composer.Compose(in)
}

func (c *BroadcastController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := c.Templates.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	type templateView struct {
		model.Template
		Variables service.ResolvedVariables `json:"variables"`
	}
	out := make([]templateView, 0, len(templates))
	for i := range templates {
		out = append(out, templateView{Template: templates[i], Variables: service.ResolveVariables(&templates[i])})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

func (c *BroadcastController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t model.Template
	if err := decodeBody(r, &t); err != nil {
		writeError(w, err)
		return
	}
	created, err := c.Templates.Create(r.Context(), &t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (c *BroadcastController) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var t model.Template
	if err := decodeBody(r, &t); err != nil {
		writeError(w, err)
		return
	}
	t.ID = chi.URLParam(r, "id")
	updated, err := c.Templates.Update(r.Context(), &t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (c *BroadcastController) TestTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PhoneNumber string            `json:"phoneNumber"`
		Variables   map[string]string `json:"variables"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := c.Templates.Test(r.Context(), chi.URLParam(r, "id"), body.PhoneNumber, body.Variables); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "sent"})
}

func (c *BroadcastController) RecipientCount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := c.Recipients.Resolve(model.RecipientScope{
		Population:   model.PopulationScope(q.Get("populationScope")),
		RegionID:     q.Get("regionId"),
		StatusFilter: model.StatusFilter(q.Get("statusFilter")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *BroadcastController) RefreshRecipients(w http.ResponseWriter, r *http.Request) {
	snap, err := c.Recipients.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (c *BroadcastController) Preview(w http.ResponseWriter, r *http.Request) {
	var body composeBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	comp, err := c.compose(r, body)
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := c.Sessions.For(r).Dispatch.Preview(comp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (c *BroadcastController) Send(w http.ResponseWriter, r *http.Request) {
	var body composeBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	comp, err := c.compose(r, body)
	if err != nil {
		writeError(w, err)
		return
	}
	dispatch := c.Sessions.For(r).Dispatch
	job, err := dispatch.SendNow(r.Context(), comp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":   job,
		"state": dispatch.State(),
	})
}

func (c *BroadcastController) Retry(w http.ResponseWriter, r *http.Request) {
	dispatch := c.Sessions.For(r).Dispatch
	job, err := dispatch.Retry(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":   job,
		"state": dispatch.State(),
	})
}

func (c *BroadcastController) Schedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		composeBody
		ScheduledAt time.Time        `json:"scheduledAt"`
		Recurring   model.Recurrence `json:"recurring"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	comp, err := c.compose(r, body.composeBody)
	if err != nil {
		writeError(w, err)
		return
	}
	msg, err := c.Sessions.For(r).Dispatch.Schedule(r.Context(), comp, body.ScheduledAt, body.Recurring)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (c *BroadcastController) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Sessions.For(r).Dispatch.State())
}

func (c *BroadcastController) Reset(w http.ResponseWriter, r *http.Request) {
	state, err := c.Sessions.For(r).Dispatch.Reset()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (c *BroadcastController) ListScheduled(w http.ResponseWriter, r *http.Request) {
	list, err := c.Sessions.For(r).Dispatch.ListScheduled(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": list})
}

func (c *BroadcastController) CancelScheduled(w http.ResponseWriter, r *http.Request) {
	if err := c.Sessions.For(r).Dispatch.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": model.ScheduleCancelled})
}
