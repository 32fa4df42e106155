// internal/repository/scheduled_repository.go
package repository

import (
	"context"
	"net/http"
	"net/url"

	"github.com/unclebandit/isp-broadcast/internal/model"
)

type ScheduledRepositoryInterface interface {
	Create(ctx context.Context, req *model.CreateScheduledRequest) (*model.ScheduledMessage, error)
	List(ctx context.Context) ([]model.ScheduledMessage, error)
	Cancel(ctx context.Context, id string) error
}

type ScheduledRepository struct {
	Client *Client
}

func (r *ScheduledRepository) Create(ctx context.Context, req *model.CreateScheduledRequest) (*model.ScheduledMessage, error) {
	var out model.ScheduledMessage
	if err := r.Client.do(ctx, http.MethodPost, "/scheduled-messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ScheduledRepository) List(ctx context.Context) ([]model.ScheduledMessage, error) {
	var out listEnvelope[model.ScheduledMessage]
	if err := r.Client.do(ctx, http.MethodGet, "/scheduled-messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (r *ScheduledRepository) Cancel(ctx context.Context, id string) error {
	return r.Client.do(ctx, http.MethodPost, "/scheduled-messages/"+url.PathEscape(id)+"/cancel", nil, nil)
}

var _ ScheduledRepositoryInterface = (*ScheduledRepository)(nil)
