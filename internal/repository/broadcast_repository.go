// internal/repository/broadcast_repository.go
package repository

import (
	"context"
	"net/http"
	"net/url"

	"github.com/unclebandit/isp-broadcast/internal/model"
)

type BroadcastRepositoryInterface interface {
	Create(ctx context.Context, req *model.CreateBroadcastRequest) (string, error)
	Execute(ctx context.Context, id string) (*model.ExecuteResult, error)
}

type BroadcastRepository struct {
	Client *Client
}

func (r *BroadcastRepository) Create(ctx context.Context, req *model.CreateBroadcastRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := r.Client.do(ctx, http.MethodPost, "/broadcasts", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (r *BroadcastRepository) Execute(ctx context.Context, id string) (*model.ExecuteResult, error) {
	var out model.ExecuteResult
	if err := r.Client.do(ctx, http.MethodPost, "/broadcasts/"+url.PathEscape(id)+"/execute", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var _ BroadcastRepositoryInterface = (*BroadcastRepository)(nil)
