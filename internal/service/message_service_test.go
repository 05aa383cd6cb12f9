package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
)

type mockMessageRepo struct {
	messages   map[string]models.Message
	seq        int
	lastFilter models.MessageFilter
	countErr   error
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{messages: map[string]models.Message{}}
}

func (m *mockMessageRepo) List(_ context.Context, filter models.MessageFilter) ([]models.Message, int, error) {
	m.lastFilter = filter
	var out []models.Message
	for _, msg := range m.messages {
		if filter.Status != nil && msg.Status != *filter.Status {
			continue
		}
		out = append(out, msg)
	}
	return out, len(out), nil
}

func (m *mockMessageRepo) FindByID(_ context.Context, id string) (*models.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &msg, nil
}

func (m *mockMessageRepo) Create(_ context.Context, msg *models.Message) error {
	m.seq++
	msg.ID = fmt.Sprintf("m%d", m.seq)
	m.messages[msg.ID] = *msg
	return nil
}

func (m *mockMessageRepo) UpdateStatus(_ context.Context, id string, status models.MessageStatus) error {
	msg, ok := m.messages[id]
	if !ok {
		return sql.ErrNoRows
	}
	msg.Status = status
	m.messages[id] = msg
	return nil
}

func (m *mockMessageRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.messages[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.messages, id)
	return nil
}

func (m *mockMessageRepo) CountUnread(_ context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, msg := range m.messages {
		if msg.Status == models.MessageUnread {
			n++
		}
	}
	return n, nil
}

func TestMessageServiceInboxFlow(t *testing.T) {
	repo := newMockMessageRepo()
	svc := NewMessageService(repo, nil, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Submit(ctx, SubmitMessageRequest{Name: "Asha", Email: "ASHA@example.com", Subject: "Drive dates", Message: "When is the next drive?"})
	require.NoError(t, err)
	assert.Equal(t, models.MessageUnread, first.Status)
	assert.Equal(t, "asha@example.com", first.SenderEmail)
	_, err = svc.Submit(ctx, SubmitMessageRequest{Name: "Ravi", Email: "ravi@example.com", Subject: "Hi", Message: "Hello"})
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	updated, err := svc.UpdateStatus(ctx, first.ID, " Replied ")
	require.NoError(t, err)
	assert.Equal(t, models.MessageReplied, updated.Status)

	unread := models.MessageUnread
	messages, pagination, err := svc.List(ctx, models.MessageFilter{Status: &unread})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, 1, pagination.TotalCount)

	require.NoError(t, svc.Delete(ctx, first.ID))
	_, err = svc.Get(ctx, first.ID)
	assertAppError(t, err, 404, "message not found")
}

func TestMessageServiceValidation(t *testing.T) {
	repo := newMockMessageRepo()
	repo.messages["m1"] = models.Message{ID: "m1", Status: models.MessageUnread}
	svc := NewMessageService(repo, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitMessageRequest{Name: "Asha", Email: "nope", Subject: "x", Message: "y"})
	assertAppError(t, err, 400, "invalid message payload")

	_, err = svc.UpdateStatus(ctx, "m1", "archived")
	assertAppError(t, err, 400, "status must be unread, read or replied")

	_, err = svc.UpdateStatus(ctx, "missing", models.MessageRead)
	assertAppError(t, err, 404, "message not found")

	bogus := models.MessageStatus("spam")
	_, _, err = svc.List(ctx, models.MessageFilter{Status: &bogus})
	assertAppError(t, err, 400, "")

	assertAppError(t, svc.Delete(ctx, "missing"), 404, "message not found")

	repo.countErr = errors.New("db down")
	_, err = svc.UnreadCount(ctx)
	assertAppError(t, err, 500, "failed to count messages")
}
