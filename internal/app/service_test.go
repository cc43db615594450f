package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"golang-notify-dispatch/internal/domain"
	"golang-notify-dispatch/internal/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	saved           []*domain.Notification
	pending         []*domain.Notification
	statusChanges   map[uuid.UUID][]ports.OutboxStatus
	recorded        []*domain.Notification
	saveErr         error
	recordErr       error
	updateErr       error
	getPendingErr   error
	getNotification *domain.Notification
}

func newStubRepo() *stubRepo {
	return &stubRepo{statusChanges: map[uuid.UUID][]ports.OutboxStatus{}}
}

func (r *stubRepo) SaveNotification(ctx context.Context, n *domain.Notification) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, n)
	return nil
}

func (r *stubRepo) GetNotification(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	if r.getNotification == nil {
		return nil, domain.ErrNotificationNotFound
	}
	return r.getNotification, nil
}

func (r *stubRepo) GetPendingNotifications(ctx context.Context, limit int) ([]*domain.Notification, error) {
	return r.pending, r.getPendingErr
}

func (r *stubRepo) UpdateOutboxStatus(ctx context.Context, id uuid.UUID, status ports.OutboxStatus) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.statusChanges[id] = append(r.statusChanges[id], status)
	return nil
}

func (r *stubRepo) RecordOutcomes(ctx context.Context, n *domain.Notification) error {
	if r.recordErr != nil {
		return r.recordErr
	}
	r.recorded = append(r.recorded, n)
	return nil
}

type stubPublisher struct {
	published []*domain.Notification
	errOn     map[uuid.UUID]error
}

func (p *stubPublisher) Publish(ctx context.Context, n *domain.Notification) error {
	if err := p.errOn[n.ID]; err != nil {
		return err
	}
	p.published = append(p.published, n)
	return nil
}

type stubDispatcher struct {
	result domain.DispatchResult
	err    error
	mark   func(n *domain.Notification)
}

func (d *stubDispatcher) Dispatch(ctx context.Context, n *domain.Notification) (domain.DispatchResult, error) {
	if d.mark != nil {
		d.mark(n)
	}
	return d.result, d.err
}

type stubPipeline struct {
	dispatcher *stubDispatcher
	err        error
}

func (p *stubPipeline) Dispatcher(channel domain.Channel) (Dispatcher, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.dispatcher, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testNotification(count int) *domain.Notification {
	n := domain.NewSMSNotification(domain.TypeTransactional, "SENDER")
	for i := 0; i < count; i++ {
		n.AddItem(domain.NewItem("987654321"+string(rune('0'+i)), "hello"))
	}
	return n
}

func TestCreateNotification(t *testing.T) {
	repo := newStubRepo()
	svc := NewNotifyServiceWith(repo, &stubPublisher{}, &stubPipeline{}, discardLogger())

	n := testNotification(2)
	require.NoError(t, svc.CreateNotification(context.Background(), n))
	require.Len(t, repo.saved, 1)
	assert.Same(t, n, repo.saved[0])
}

func TestCreateNotification_SaveError(t *testing.T) {
	repo := newStubRepo()
	repo.saveErr = errors.New("db down")
	svc := NewNotifyServiceWith(repo, &stubPublisher{}, &stubPipeline{}, discardLogger())

	err := svc.CreateNotification(context.Background(), testNotification(1))
	assert.ErrorContains(t, err, "db down")
}

func TestPublishPending(t *testing.T) {
	repo := newStubRepo()
	n1, n2 := testNotification(1), testNotification(1)
	repo.pending = []*domain.Notification{n1, n2}
	pub := &stubPublisher{}

	svc := NewNotifyServiceWith(repo, pub, &stubPipeline{}, discardLogger())

	count, err := svc.PublishPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, pub.published, 2)
	assert.Equal(t, []ports.OutboxStatus{ports.OutboxQueued}, repo.statusChanges[n1.ID])
	assert.Equal(t, []ports.OutboxStatus{ports.OutboxQueued}, repo.statusChanges[n2.ID])
}

func TestPublishPending_RollsBackOnPublishFailure(t *testing.T) {
	repo := newStubRepo()
	n1, n2 := testNotification(1), testNotification(1)
	repo.pending = []*domain.Notification{n1, n2}
	pub := &stubPublisher{errOn: map[uuid.UUID]error{n1.ID: errors.New("broker gone")}}

	svc := NewNotifyServiceWith(repo, pub, &stubPipeline{}, discardLogger())

	count, err := svc.PublishPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The failed notification is rolled back to pending for the next poll.
	assert.Equal(t, []ports.OutboxStatus{ports.OutboxQueued, ports.OutboxPending}, repo.statusChanges[n1.ID])
	assert.Equal(t, []ports.OutboxStatus{ports.OutboxQueued}, repo.statusChanges[n2.ID])
}

func TestProcessNotification(t *testing.T) {
	repo := newStubRepo()
	pipeline := &stubPipeline{dispatcher: &stubDispatcher{
		result: domain.DispatchResult{Success: true, ExtID: "success"},
		mark: func(n *domain.Notification) {
			for _, item := range n.Items {
				item.MarkSent("ext-1")
			}
		},
	}}

	svc := NewNotifyServiceWith(repo, &stubPublisher{}, pipeline, discardLogger())

	n := testNotification(2)
	require.NoError(t, svc.ProcessNotification(context.Background(), n))

	require.Len(t, repo.recorded, 1)
	assert.Equal(t, []ports.OutboxStatus{ports.OutboxDispatched}, repo.statusChanges[n.ID])
	for _, item := range n.Items {
		assert.Equal(t, domain.StatusSent, item.Status)
	}
}

func TestProcessNotification_ConfigErrorIsTerminal(t *testing.T) {
	repo := newStubRepo()
	pipeline := &stubPipeline{err: domain.ErrConfiguration}

	svc := NewNotifyServiceWith(repo, &stubPublisher{}, pipeline, discardLogger())

	n := testNotification(2)
	require.NoError(t, svc.ProcessNotification(context.Background(), n))

	// Items are failed and the outcome is recorded rather than requeued.
	for _, item := range n.Items {
		assert.Equal(t, domain.StatusFailed, item.Status)
		assert.NotEmpty(t, item.Error)
	}
	require.Len(t, repo.recorded, 1)
	assert.Equal(t, []ports.OutboxStatus{ports.OutboxDispatched}, repo.statusChanges[n.ID])
}

func TestProcessNotification_RecordFailureReturnsError(t *testing.T) {
	repo := newStubRepo()
	repo.recordErr = errors.New("db down")
	pipeline := &stubPipeline{dispatcher: &stubDispatcher{result: domain.DispatchResult{Success: true}}}

	svc := NewNotifyServiceWith(repo, &stubPublisher{}, pipeline, discardLogger())

	err := svc.ProcessNotification(context.Background(), testNotification(1))
	assert.ErrorContains(t, err, "record outcomes")
}

func TestDispatchNow_PropagatesPipelineError(t *testing.T) {
	pipeline := &stubPipeline{err: domain.ErrConfiguration}
	svc := NewNotifyServiceWith(newStubRepo(), &stubPublisher{}, pipeline, discardLogger())

	_, err := svc.DispatchNow(context.Background(), testNotification(1))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestGetNotification_NotFound(t *testing.T) {
	svc := NewNotifyServiceWith(newStubRepo(), &stubPublisher{}, &stubPipeline{}, discardLogger())

	_, err := svc.GetNotification(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotificationNotFound)
}
