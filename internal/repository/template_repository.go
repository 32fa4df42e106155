// internal/repository/template_repository.go
package repository

import (
	"context"
	"net/http"
	"net/url"

	"github.com/unclebandit/isp-broadcast/internal/model"
)

type TemplateRepositoryInterface interface {
	List(ctx context.Context) ([]model.Template, error)
	Create(ctx context.Context, t *model.Template) (*model.Template, error)
	Update(ctx context.Context, t *model.Template) (*model.Template, error)
	Test(ctx context.Context, templateID, phoneNumber string, variables map[string]string) error
}

type TemplateRepository struct {
	Client *Client
}

func (r *TemplateRepository) List(ctx context.Context) ([]model.Template, error) {
	var out listEnvelope[model.Template]
	if err := r.Client.do(ctx, http.MethodGet, "/templates", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.Template) (*model.Template, error) {
	var out model.Template
	if err := r.Client.do(ctx, http.MethodPost, "/templates", t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TemplateRepository) Update(ctx context.Context, t *model.Template) (*model.Template, error) {
	var out model.Template
	if err := r.Client.do(ctx, http.MethodPut, "/templates/"+url.PathEscape(t.ID), t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TemplateRepository) Test(ctx context.Context, templateID, phoneNumber string, variables map[string]string) error {
	body := map[string]any{
		"phoneNumber": phoneNumber,
		"variables":   variables,
	}
	return r.Client.do(ctx, http.MethodPost, "/templates/"+url.PathEscape(templateID)+"/test", body, nil)
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
