// internal/repository/history_repository.go
package repository

import (
	"context"
	"fmt"
	"net/http"

	"github.com/unclebandit/isp-broadcast/internal/model"
)

type HistoryRepositoryInterface interface {
	List(ctx context.Context, page, limit int) (*model.HistoryPage, error)
	Resend(ctx context.Context, ids []string) error
}

type HistoryRepository struct {
	Client *Client
}

func (r *HistoryRepository) List(ctx context.Context, page, limit int) (*model.HistoryPage, error) {
	var out model.HistoryPage
	path := fmt.Sprintf("/messages/history?page=%d&limit=%d", page, limit)
	if err := r.Client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *HistoryRepository) Resend(ctx context.Context, ids []string) error {
	return r.Client.do(ctx, http.MethodPost, "/messages/resend", map[string][]string{"ids": ids}, nil)
}

var _ HistoryRepositoryInterface = (*HistoryRepository)(nil)
