// internal/service/dispatch.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/isp-broadcast/internal/errors"
	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/repository"
)

// MinScheduleLead is how far in the future a scheduled message must be at creation.
const MinScheduleLead = time.Minute

// DispatchController drives one compose session from preview to a sent or scheduled broadcast.
// Operations do not overlap: a call made while another is in flight fails with ErrBusy.
type DispatchController struct {
	Broadcasts repository.BroadcastRepositoryInterface
	Scheduled  repository.ScheduledRepositoryInterface
	Audit      AuditPublisher
	Log        logrus.FieldLogger
	Now        func() time.Time

	// OnChange observes every state change, including progress milestones.
	OnChange func(State)

	mu        sync.Mutex
	busy      bool
	state     State
	schedules []model.ScheduledMessage
}

func NewDispatchController(b repository.BroadcastRepositoryInterface, s repository.ScheduledRepositoryInterface, audit AuditPublisher, log logrus.FieldLogger) *DispatchController {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DispatchController{
		Broadcasts: b,
		Scheduled:  s,
		Audit:      audit,
		Log:        log,
		state:      State{Phase: PhaseComposing},
	}
}

func (d *DispatchController) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current().clone()
}

// Preview records the composition the operator is looking at.
func (d *DispatchController) Preview(comp *Composition) (State, error) {
	if err := checkComposition(comp); err != nil {
		return d.State(), err
	}
	if err := d.begin(); err != nil {
		return d.State(), err
	}
	defer d.end()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.startOver()
	if err := d.apply(EventPreview); err != nil {
		return d.current().clone(), err
	}
	d.state.Composition = comp
	d.state.Progress = 0
	d.state.LastError = ""
	d.notify()
	return d.state.clone(), nil
}

// Reset returns to an empty compose form.
func (d *DispatchController) Reset() (State, error) {
	if err := d.begin(); err != nil {
		return d.State(), err
	}
	defer d.end()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.apply(EventReset); err != nil {
		return d.current().clone(), err
	}
	d.state = State{Phase: PhaseComposing}
	d.notify()
	return d.state.clone(), nil
}

// SendNow creates a draft job and executes it. The job completes even when some recipients fail.
func (d *DispatchController) SendNow(ctx context.Context, comp *Composition) (*model.BroadcastJob, error) {
	if err := checkComposition(comp); err != nil {
		return nil, err
	}
	if err := d.begin(); err != nil {
		return nil, err
	}
	defer d.end()

	job := &model.BroadcastJob{
		Name:       comp.Name,
		Message:    comp.Message,
		Recipients: append([]string(nil), comp.Recipients...),
		TemplateID: comp.TemplateID,
		Variables:  comp.Variables,
		CreatedAt:  d.now(),
		Status:     model.JobDraft,
	}

	d.mu.Lock()
	d.startOver()
	if err := d.apply(EventSend); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.state.Composition = comp
	d.state.Job = job
	d.state.Progress = 0
	d.state.LastError = ""
	d.notify()
	d.mu.Unlock()

	id, err := d.Broadcasts.Create(ctx, &model.CreateBroadcastRequest{
		Name:       job.Name,
		Message:    job.Message,
		Recipients: job.Recipients,
		TemplateID: job.TemplateID,
		Variables:  job.Variables,
	})
	if err != nil {
		d.mu.Lock()
		_ = d.apply(EventCreateFailed)
		d.state.Job = nil
		d.state.Progress = 0
		d.state.LastError = err.Error()
		d.notify()
		d.mu.Unlock()
		d.Log.WithError(err).WithField("name", job.Name).Warn("broadcast create rejected")
		return nil, fmt.Errorf("create broadcast: %w", err)
	}

	d.mu.Lock()
	job.ID = id
	d.state.Progress = ProgressCreated
	d.notify()
	d.mu.Unlock()

	return d.execute(ctx, job, comp.RecipientCount)
}

// Retry executes the draft job left behind by a failed execute.
func (d *DispatchController) Retry(ctx context.Context) (*model.BroadcastJob, error) {
	if err := d.begin(); err != nil {
		return nil, err
	}
	defer d.end()

	d.mu.Lock()
	if d.state.Phase != PhaseFailed || d.state.Job == nil || d.state.Job.ID == "" {
		phase := d.state.Phase
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: nothing to retry in %s", appErrors.ErrInvalidTransition, phase)
	}
	if err := d.apply(EventSend); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	job := d.state.Job
	count := 0
	if d.state.Composition != nil {
		count = d.state.Composition.RecipientCount
	}
	d.state.LastError = ""
	d.state.Progress = ProgressCreated
	d.notify()
	d.mu.Unlock()

	return d.execute(ctx, job, count)
}

func (d *DispatchController) execute(ctx context.Context, job *model.BroadcastJob, resolved int) (*model.BroadcastJob, error) {
	log := d.Log.WithFields(logrus.Fields{"job": job.ID, "name": job.Name, "recipients": job.Recipients})

	d.mu.Lock()
	job.Status = model.JobSending
	d.state.Progress = ProgressExecuting
	d.notify()
	d.mu.Unlock()

	res, err := d.Broadcasts.Execute(ctx, job.ID)
	if err != nil {
		d.mu.Lock()
		job.Status = model.JobDraft
		_ = d.apply(EventSendFailed)
		d.state.LastError = err.Error()
		d.notify()
		snapshot := *job
		d.mu.Unlock()

		log.WithError(err).Warn("broadcast execute failed")
		publishAudit(ctx, d.Audit, d.Log, model.AuditEvent{
			Action:     model.AuditSendFailed,
			Reference:  job.ID,
			Recipients: job.Recipients,
			Detail:     err.Error(),
		})
		return &snapshot, fmt.Errorf("execute broadcast: %w", err)
	}

	now := d.now()
	d.mu.Lock()
	job.SentCount = res.SentCount
	job.FailedCount = res.FailedCount
	job.ExecutedAt = &now
	job.Status = model.JobCompleted
	_ = d.apply(EventExecuted)
	d.state.Progress = ProgressDone
	d.notify()
	snapshot := *job
	d.mu.Unlock()

	fields := logrus.Fields{"sent": res.SentCount, "failed": res.FailedCount, "resolved": resolved}
	if res.SentCount+res.FailedCount > resolved {
		log.WithFields(fields).Warn("remote reported more deliveries than resolved recipients")
	}
	if res.FailedCount > 0 {
		log.WithFields(fields).Warn("broadcast completed with failures")
	} else {
		log.WithFields(fields).Info("broadcast completed")
	}

	publishAudit(ctx, d.Audit, d.Log, model.AuditEvent{
		Action:      model.AuditSendCompleted,
		Reference:   job.ID,
		Recipients:  job.Recipients,
		SentCount:   res.SentCount,
		FailedCount: res.FailedCount,
	})
	return &snapshot, nil
}

// Schedule defers comp to at. Recurring roll-forward is handled remotely.
func (d *DispatchController) Schedule(ctx context.Context, comp *Composition, at time.Time, recurring model.Recurrence) (*model.ScheduledMessage, error) {
	if err := checkComposition(comp); err != nil {
		return nil, err
	}
	if recurring == "" {
		recurring = model.RecurNone
	}
	if !recurring.Valid() {
		return nil, appErrors.NewValidation("recurring", fmt.Errorf("%w: %s", appErrors.ErrInvalidRecurrence, recurring))
	}
	if !at.After(d.now().Add(MinScheduleLead)) {
		return nil, appErrors.NewValidation("scheduledAt", appErrors.ErrScheduleTooSoon)
	}
	if err := d.begin(); err != nil {
		return nil, err
	}
	defer d.end()

	d.mu.Lock()
	d.startOver()
	if err := d.apply(EventSchedule); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.state.Composition = comp
	d.state.LastError = ""
	d.notify()
	d.mu.Unlock()

	req := &model.CreateScheduledRequest{
		Recipient:   comp.Recipients[0],
		Message:     comp.Message,
		ScheduledAt: at,
		TemplateID:  comp.TemplateID,
		Variables:   comp.Variables,
	}
	if recurring != model.RecurNone {
		req.Recurring = recurring
	}

	msg, err := d.Scheduled.Create(ctx, req)
	if err != nil {
		d.mu.Lock()
		_ = d.apply(EventScheduleFailed)
		d.state.LastError = err.Error()
		d.notify()
		d.mu.Unlock()
		d.Log.WithError(err).Warn("schedule rejected")
		return nil, fmt.Errorf("schedule message: %w", err)
	}
	if msg.Status == "" {
		msg.Status = model.ScheduleScheduled
	}
	if msg.Recurring == "" {
		msg.Recurring = recurring
	}
	annotateNext(msg, d.now())

	d.mu.Lock()
	_ = d.apply(EventScheduled)
	d.state.Scheduled = msg
	d.notify()
	d.mu.Unlock()

	d.Log.WithFields(logrus.Fields{
		"scheduled":    msg.ID,
		"recipient":    msg.Recipient,
		"scheduled_at": msg.ScheduledAt,
		"recurring":    msg.Recurring,
	}).Info("message scheduled")
	publishAudit(ctx, d.Audit, d.Log, model.AuditEvent{
		Action:     model.AuditScheduled,
		Reference:  msg.ID,
		Recipients: []string{msg.Recipient},
		Detail:     fmt.Sprintf("%s %s", msg.ScheduledAt.Format(time.RFC3339), msg.Recurring),
	})

	if _, err := d.refreshSchedules(ctx); err != nil {
		d.Log.WithError(err).Warn("scheduled list refresh failed")
	}
	out := *msg
	return &out, nil
}

// ListScheduled re-fetches scheduled messages and follows the tracked one through its remote lifecycle.
func (d *DispatchController) ListScheduled(ctx context.Context) ([]model.ScheduledMessage, error) {
	if err := d.begin(); err != nil {
		return nil, err
	}
	defer d.end()
	return d.refreshSchedules(ctx)
}

// Cancel stops a message that is still SCHEDULED on the remote. Once PROCESSING it can no longer be cancelled.
func (d *DispatchController) Cancel(ctx context.Context, id string) error {
	if err := d.begin(); err != nil {
		return err
	}
	defer d.end()

	// The status check must see the remote's current view, not the last listing.
	if _, err := d.refreshSchedules(ctx); err != nil {
		return err
	}
	msg, ok := d.findSchedule(id)
	if !ok {
		return appErrors.NewValidation("id", fmt.Errorf("%w: %s", appErrors.ErrScheduleNotFound, id))
	}
	if msg.Status != model.ScheduleScheduled {
		return appErrors.NewValidation("id", fmt.Errorf("%w: %s is %s", appErrors.ErrNotCancellable, id, msg.Status))
	}

	if err := d.Scheduled.Cancel(ctx, id); err != nil {
		d.Log.WithError(err).WithField("scheduled", id).Warn("cancel rejected")
		return fmt.Errorf("cancel scheduled message: %w", err)
	}

	d.Log.WithField("scheduled", id).Info("scheduled message cancelled")
	publishAudit(ctx, d.Audit, d.Log, model.AuditEvent{
		Action:     model.AuditCancelled,
		Reference:  id,
		Recipients: []string{msg.Recipient},
	})

	if _, err := d.refreshSchedules(ctx); err != nil {
		d.Log.WithError(err).Warn("scheduled list refresh failed")
	}
	return nil
}

func (d *DispatchController) refreshSchedules(ctx context.Context) ([]model.ScheduledMessage, error) {
	list, err := d.Scheduled.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scheduled messages: %w", err)
	}
	now := d.now()
	for i := range list {
		annotateNext(&list[i], now)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.schedules = list
	d.syncTracked()
	return append([]model.ScheduledMessage(nil), list...), nil
}

// syncTracked moves the phase along when the remote list shows the tracked message progressing.
func (d *DispatchController) syncTracked() {
	tracked := d.state.Scheduled
	if tracked == nil {
		return
	}
	if d.state.Phase != PhaseScheduled && d.state.Phase != PhaseProcessing {
		return
	}
	for i := range d.schedules {
		remote := d.schedules[i]
		if remote.ID != tracked.ID {
			continue
		}
		var events []Event
		switch remote.Status {
		case model.ScheduleScheduled:
		case model.ScheduleProcessing:
			events = []Event{EventProcessing}
		case model.ScheduleCompleted:
			events = []Event{EventProcessing, EventExecuted}
		case model.ScheduleFailed:
			events = []Event{EventProcessing, EventSendFailed}
		case model.ScheduleCancelled:
			events = []Event{EventCancel}
		}
		for _, ev := range events {
			if next, err := Transition(d.state.Phase, ev); err == nil {
				d.state.Phase = next
			}
		}
		cp := remote
		d.state.Scheduled = &cp
		d.notify()
		return
	}
}

func (d *DispatchController) findSchedule(id string) (model.ScheduledMessage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.schedules {
		if m.ID == id {
			return m, true
		}
	}
	return model.ScheduledMessage{}, false
}

func annotateNext(m *model.ScheduledMessage, now time.Time) {
	m.NextOccurrence = nil
	if m.Status != model.ScheduleScheduled && m.Status != model.ScheduleProcessing {
		return
	}
	if next, ok := m.Recurring.Next(m.ScheduledAt, now); ok {
		m.NextOccurrence = &next
	}
}

func checkComposition(comp *Composition) error {
	if comp == nil || !comp.composed {
		return appErrors.NewValidation("composition", errors.New("compose the broadcast before sending"))
	}
	if len(comp.Recipients) == 0 || comp.Recipients[0] == "" {
		return appErrors.NewValidation("recipients", appErrors.ErrEmptyRecipients)
	}
	return nil
}

// startOver leaves a finished or parked session for a new composition. mu must be held.
func (d *DispatchController) startOver() {
	switch d.current().Phase {
	case PhaseCompleted, PhaseCancelled, PhaseFailed, PhaseScheduled, PhaseProcessing:
		_ = d.apply(EventEdit)
		d.state.Job = nil
		d.state.Scheduled = nil
		d.state.Progress = 0
		d.state.LastError = ""
	}
}

// apply must be called with mu held.
func (d *DispatchController) apply(ev Event) error {
	next, err := Transition(d.current().Phase, ev)
	if err != nil {
		return err
	}
	d.state.Phase = next
	return nil
}

// current must be called with mu held.
func (d *DispatchController) current() State {
	if d.state.Phase == "" {
		d.state.Phase = PhaseComposing
	}
	return d.state
}

// notify must be called with mu held.
func (d *DispatchController) notify() {
	if d.OnChange != nil {
		d.OnChange(d.state.clone())
	}
}

func (d *DispatchController) begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return appErrors.ErrBusy
	}
	d.busy = true
	return nil
}

func (d *DispatchController) end() {
	d.mu.Lock()
	d.busy = false
	d.mu.Unlock()
}

func (d *DispatchController) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
