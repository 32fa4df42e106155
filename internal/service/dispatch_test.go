package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/isp-broadcast/internal/errors"
	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/service"
)

type dispatchFixture struct {
	clock      *fakeClock
	broadcasts *MockBroadcastRepo
	scheduled  *MockScheduledRepo
	audit      *MockAudit
	composer   *service.Composer
	ctrl       *service.DispatchController
	progress   []int
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	stats := newStatsRepo()
	stats.Customers = &model.CustomerStats{Total: 12, Active: 10}

	f := &dispatchFixture{
		clock:      newClock(),
		broadcasts: &MockBroadcastRepo{},
		scheduled:  &MockScheduledRepo{},
		audit:      &MockAudit{},
	}
	f.composer = &service.Composer{Recipients: newResolver(t, stats), Now: f.clock.Now}
	f.ctrl = service.NewDispatchController(f.broadcasts, f.scheduled, f.audit, quietLogger())
	f.ctrl.Now = f.clock.Now
	f.ctrl.OnChange = func(s service.State) {
		if n := len(f.progress); n == 0 || f.progress[n-1] != s.Progress {
			f.progress = append(f.progress, s.Progress)
		}
	}
	return f
}

func (f *dispatchFixture) compose(t *testing.T) *service.Composition {
	t.Helper()
	comp, err := f.composer.Compose(service.ComposeInput{Name: "Invoice reminder", Scope: allActive, FreeText: "Your invoice is ready"})
	require.NoError(t, err)
	return comp
}

func TestSendNow_PartialDeliveryCompletes(t *testing.T) {
	f := newDispatchFixture(t)
	f.broadcasts.Result = model.ExecuteResult{SentCount: 8, FailedCount: 2}

	comp := f.compose(t)
	require.Equal(t, 10, comp.RecipientCount)

	job, err := f.ctrl.SendNow(context.Background(), comp)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, 8, job.SentCount)
	assert.Equal(t, 2, job.FailedCount)
	assert.NotNil(t, job.ExecutedAt)

	st := f.ctrl.State()
	assert.Equal(t, service.PhaseCompleted, st.Phase)
	assert.Equal(t, service.ProgressDone, st.Progress)
	assert.Equal(t, []int{0, 25, 50, 100}, f.progress)

	require.Len(t, f.broadcasts.Created, 1)
	assert.Equal(t, []string{service.GroupAllActive}, f.broadcasts.Created[0].Recipients)
	assert.Equal(t, []string{"job-1"}, f.broadcasts.Executed)

	require.Len(t, f.audit.Events, 1)
	assert.Equal(t, model.AuditSendCompleted, f.audit.Events[0].Action)
	assert.Equal(t, 2, f.audit.Events[0].FailedCount)
}

func TestSendNow_CreateRejectedReturnsToComposing(t *testing.T) {
	f := newDispatchFixture(t)
	f.broadcasts.CreateErr = &appErrors.RemoteError{StatusCode: 422, Message: "recipients group unknown"}

	_, err := f.ctrl.SendNow(context.Background(), f.compose(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipients group unknown")
	assert.True(t, appErrors.IsRemote(err))

	st := f.ctrl.State()
	assert.Equal(t, service.PhaseComposing, st.Phase)
	assert.Nil(t, st.Job)
	assert.Equal(t, "recipients group unknown", st.LastError)
	assert.Empty(t, f.broadcasts.Executed)
}

func TestSendNow_ExecuteFailureThenRetrySameJob(t *testing.T) {
	f := newDispatchFixture(t)
	f.broadcasts.ExecuteErr = &appErrors.RemoteError{StatusCode: 502, Message: "gateway down"}

	job, err := f.ctrl.SendNow(context.Background(), f.compose(t))
	require.Error(t, err)
	require.NotNil(t, job)
	assert.Equal(t, model.JobDraft, job.Status)
	assert.Equal(t, service.PhaseFailed, f.ctrl.State().Phase)

	f.broadcasts.ExecuteErr = nil
	f.broadcasts.Result = model.ExecuteResult{SentCount: 10}
	job, err = f.ctrl.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, "job-1", job.ID)
	assert.Len(t, f.broadcasts.Created, 1)
	assert.Equal(t, []string{"job-1", "job-1"}, f.broadcasts.Executed)

	require.Len(t, f.audit.Events, 2)
	assert.Equal(t, model.AuditSendFailed, f.audit.Events[0].Action)
	assert.Equal(t, model.AuditSendCompleted, f.audit.Events[1].Action)
}

func TestRetry_NothingToRetry(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.ctrl.Retry(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestSendNow_RejectsUncomposedContent(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.ctrl.SendNow(context.Background(), &service.Composition{Recipients: []string{"all_customers"}, Message: "hi"})
	assert.True(t, appErrors.IsValidation(err))

	_, err = f.ctrl.SendNow(context.Background(), nil)
	assert.True(t, appErrors.IsValidation(err))
	assert.Empty(t, f.broadcasts.Created)
}

func TestSendNow_DisabledTemplateNeverReachesRemote(t *testing.T) {
	f := newDispatchFixture(t)
	tpl := &model.Template{ID: "promo", Content: "Hi {{customerName}}", Enabled: false}

	comp, err := f.composer.Compose(service.ComposeInput{Scope: allActive, Template: tpl})
	assert.ErrorIs(t, err, appErrors.ErrTemplateDisabled)
	_, err = f.ctrl.SendNow(context.Background(), comp)
	assert.Error(t, err)
	assert.Empty(t, f.broadcasts.Created)

	tpl.Enabled = true
	comp, err = f.composer.Compose(service.ComposeInput{Scope: allActive, Template: tpl})
	require.NoError(t, err)
	_, err = f.ctrl.SendNow(context.Background(), comp)
	require.NoError(t, err)
	assert.Len(t, f.broadcasts.Created, 1)
}

func TestSendNow_AfterCompletedStartsNewJob(t *testing.T) {
	f := newDispatchFixture(t)
	f.broadcasts.Result = model.ExecuteResult{SentCount: 10}

	_, err := f.ctrl.SendNow(context.Background(), f.compose(t))
	require.NoError(t, err)
	_, err = f.ctrl.SendNow(context.Background(), f.compose(t))
	require.NoError(t, err)
	assert.Len(t, f.broadcasts.Created, 2)
}

func TestPreviewAndReset(t *testing.T) {
	f := newDispatchFixture(t)

	st, err := f.ctrl.Preview(f.compose(t))
	require.NoError(t, err)
	assert.Equal(t, service.PhasePreviewing, st.Phase)
	assert.Equal(t, "Your invoice is ready", st.Composition.Message)

	st, err = f.ctrl.Reset()
	require.NoError(t, err)
	assert.Equal(t, service.PhaseComposing, st.Phase)
	assert.Nil(t, st.Composition)
}

func TestSchedule_LeadTime(t *testing.T) {
	f := newDispatchFixture(t)
	comp := f.compose(t)

	_, err := f.ctrl.Schedule(context.Background(), comp, f.clock.Now(), model.RecurNone)
	assert.ErrorIs(t, err, appErrors.ErrScheduleTooSoon)
	assert.Empty(t, f.scheduled.Created)

	at := f.clock.Now().Add(2 * time.Minute)
	msg, err := f.ctrl.Schedule(context.Background(), comp, at, model.RecurNone)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleScheduled, msg.Status)
	assert.Nil(t, msg.NextOccurrence)

	require.Len(t, f.scheduled.Created, 1)
	assert.Equal(t, service.GroupAllActive, f.scheduled.Created[0].Recipient)
	assert.Empty(t, f.scheduled.Created[0].Recurring)
	assert.Equal(t, 1, f.scheduled.ListCalls)
	assert.Equal(t, service.PhaseScheduled, f.ctrl.State().Phase)
}

func TestSchedule_RecurringAnnotatesNextOccurrence(t *testing.T) {
	f := newDispatchFixture(t)
	at := f.clock.Now().Add(time.Hour)

	msg, err := f.ctrl.Schedule(context.Background(), f.compose(t), at, model.RecurDaily)
	require.NoError(t, err)
	require.NotNil(t, msg.NextOccurrence)
	assert.Equal(t, at, *msg.NextOccurrence)
	assert.Equal(t, model.RecurDaily, f.scheduled.Created[0].Recurring)
}

func TestSchedule_InvalidRecurrence(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.ctrl.Schedule(context.Background(), f.compose(t), f.clock.Now().Add(time.Hour), "HOURLY")
	assert.ErrorIs(t, err, appErrors.ErrInvalidRecurrence)
	assert.Empty(t, f.scheduled.Created)
}

func TestCancel_OnlyWhileScheduled(t *testing.T) {
	f := newDispatchFixture(t)
	f.scheduled.Messages = []model.ScheduledMessage{
		{ID: "s-proc", Recipient: "north_active", Status: model.ScheduleProcessing},
	}

	_, err := f.ctrl.Schedule(context.Background(), f.compose(t), f.clock.Now().Add(time.Hour), model.RecurNone)
	require.NoError(t, err)

	err = f.ctrl.Cancel(context.Background(), "s-proc")
	assert.ErrorIs(t, err, appErrors.ErrNotCancellable)

	err = f.ctrl.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrScheduleNotFound)

	require.NoError(t, f.ctrl.Cancel(context.Background(), "sched-1"))
	assert.Equal(t, []string{"sched-1"}, f.scheduled.Cancelled)
	assert.Equal(t, service.PhaseCancelled, f.ctrl.State().Phase)
}

func TestListScheduled_FollowsTrackedMessage(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.ctrl.Schedule(context.Background(), f.compose(t), f.clock.Now().Add(time.Hour), model.RecurNone)
	require.NoError(t, err)

	f.scheduled.Messages[0].Status = model.ScheduleProcessing
	_, err = f.ctrl.ListScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.PhaseProcessing, f.ctrl.State().Phase)

	f.scheduled.Messages[0].Status = model.ScheduleCompleted
	list, err := f.ctrl.ListScheduled(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, service.PhaseCompleted, f.ctrl.State().Phase)
}

type blockingBroadcasts struct {
	MockBroadcastRepo
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBroadcasts) Execute(ctx context.Context, id string) (*model.ExecuteResult, error) {
	close(b.entered)
	<-b.release
	return &model.ExecuteResult{SentCount: 1}, nil
}

func TestSendNow_OverlappingCallIsBusy(t *testing.T) {
	f := newDispatchFixture(t)
	blocking := &blockingBroadcasts{entered: make(chan struct{}), release: make(chan struct{})}
	f.ctrl.Broadcasts = blocking

	first, second := f.compose(t), f.compose(t)
	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.SendNow(context.Background(), first)
		done <- err
	}()
	<-blocking.entered

	_, err := f.ctrl.SendNow(context.Background(), second)
	assert.ErrorIs(t, err, appErrors.ErrBusy)

	close(blocking.release)
	require.NoError(t, <-done)
}

func TestCancel_RechecksRemoteStatus(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.ctrl.Schedule(context.Background(), f.compose(t), f.clock.Now().Add(time.Hour), model.RecurNone)
	require.NoError(t, err)

	// The remote starts delivering after the last listing was taken.
	f.scheduled.Messages[0].Status = model.ScheduleProcessing

	err = f.ctrl.Cancel(context.Background(), "sched-1")
	assert.ErrorIs(t, err, appErrors.ErrNotCancellable)
	assert.Empty(t, f.scheduled.Cancelled)
	assert.Equal(t, service.PhaseProcessing, f.ctrl.State().Phase)
}
