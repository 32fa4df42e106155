package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/repository"
)

// Mock repositories
type MockStatsRepo struct {
	Regions   []model.RegionStat
	Customers *model.CustomerStats
	Err       error
	Calls     int
}

func (m *MockStatsRepo) RegionStats(ctx context.Context) ([]model.RegionStat, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Regions, nil
}

func (m *MockStatsRepo) CustomerStats(ctx context.Context) (*model.CustomerStats, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Customers, nil
}

type MockTemplateRepo struct {
	Templates []model.Template
	Tested    map[string]string
	Err       error
}

func (m *MockTemplateRepo) List(ctx context.Context) ([]model.Template, error) {
	out := make([]model.Template, len(m.Templates))
	copy(out, m.Templates)
	return out, m.Err
}
func (m *MockTemplateRepo) Create(ctx context.Context, t *model.Template) (*model.Template, error) {
	cp := *t
	return &cp, m.Err
}
func (m *MockTemplateRepo) Update(ctx context.Context, t *model.Template) (*model.Template, error) {
	cp := *t
	return &cp, m.Err
}
func (m *MockTemplateRepo) Test(ctx context.Context, id, phone string, vars map[string]string) error {
	m.Tested = vars
	return m.Err
}

type MockBroadcastRepo struct {
	CreateErr  error
	ExecuteErr error
	Result     model.ExecuteResult
	Created    []*model.CreateBroadcastRequest
	Executed   []string
}

func (m *MockBroadcastRepo) Create(ctx context.Context, req *model.CreateBroadcastRequest) (string, error) {
	m.Created = append(m.Created, req)
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	return "job-1", nil
}

func (m *MockBroadcastRepo) Execute(ctx context.Context, id string) (*model.ExecuteResult, error) {
	m.Executed = append(m.Executed, id)
	if m.ExecuteErr != nil {
		return nil, m.ExecuteErr
	}
	res := m.Result
	return &res, nil
}

type MockScheduledRepo struct {
	Messages  []model.ScheduledMessage
	CreateErr error
	Created   []*model.CreateScheduledRequest
	Cancelled []string
	ListCalls int
}

func (m *MockScheduledRepo) Create(ctx context.Context, req *model.CreateScheduledRequest) (*model.ScheduledMessage, error) {
	m.Created = append(m.Created, req)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	msg := model.ScheduledMessage{
		ID:          "sched-1",
		Recipient:   req.Recipient,
		Message:     req.Message,
		ScheduledAt: req.ScheduledAt,
		Recurring:   req.Recurring,
		Status:      model.ScheduleScheduled,
	}
	m.Messages = append(m.Messages, msg)
	return &msg, nil
}

func (m *MockScheduledRepo) List(ctx context.Context) ([]model.ScheduledMessage, error) {
	m.ListCalls++
	out := make([]model.ScheduledMessage, len(m.Messages))
	copy(out, m.Messages)
	return out, nil
}

func (m *MockScheduledRepo) Cancel(ctx context.Context, id string) error {
	m.Cancelled = append(m.Cancelled, id)
	for i := range m.Messages {
		if m.Messages[i].ID == id {
			m.Messages[i].Status = model.ScheduleCancelled
		}
	}
	return nil
}

type MockHistoryRepo struct {
	Page      *model.HistoryPage
	Err       error
	ResendErr error
	ListCalls int
	Resent    [][]string
}

func (m *MockHistoryRepo) List(ctx context.Context, page, limit int) (*model.HistoryPage, error) {
	m.ListCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	p := *m.Page
	p.Pagination.Page, p.Pagination.Limit = page, limit
	return &p, nil
}

func (m *MockHistoryRepo) Resend(ctx context.Context, ids []string) error {
	m.Resent = append(m.Resent, ids)
	return m.ResendErr
}

type MockAudit struct {
	mu     sync.Mutex
	Events []model.AuditEvent
}

func (m *MockAudit) PublishAudit(ctx context.Context, e model.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}

var (
	_ repository.StatsRepositoryInterface     = (*MockStatsRepo)(nil)
	_ repository.TemplateRepositoryInterface  = (*MockTemplateRepo)(nil)
	_ repository.BroadcastRepositoryInterface = (*MockBroadcastRepo)(nil)
	_ repository.ScheduledRepositoryInterface = (*MockScheduledRepo)(nil)
	_ repository.HistoryRepositoryInterface   = (*MockHistoryRepo)(nil)
)

func quietLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)}
}
