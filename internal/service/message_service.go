package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

type messageRepository interface {
	List(ctx context.Context, filter models.MessageFilter) ([]models.Message, int, error)
	FindByID(ctx context.Context, id string) (*models.Message, error)
	Create(ctx context.Context, msg *models.Message) error
	UpdateStatus(ctx context.Context, id string, status models.MessageStatus) error
	Delete(ctx context.Context, id string) error
	CountUnread(ctx context.Context) (int, error)
}

// SubmitMessageRequest is the public contact form payload.
type SubmitMessageRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=255"`
	Message string `json:"message" validate:"required,max=5000"`
}

// MessageService runs the contact message inbox.
type MessageService struct {
	repo      messageRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs the message service.
func NewMessageService(repo messageRepository, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{repo: repo, validator: validate, logger: logger}
}

// Submit stores a new unread message.
func (s *MessageService) Submit(ctx context.Context, req SubmitMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	msg := &models.Message{
		SenderName:  strings.TrimSpace(req.Name),
		SenderEmail: strings.ToLower(strings.TrimSpace(req.Email)),
		Subject:     strings.TrimSpace(req.Subject),
		Body:        req.Message,
		Status:      models.MessageUnread,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store message")
	}
	return msg, nil
}

// List returns messages newest first.
func (s *MessageService) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be unread, read or replied")
	}
	messages, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return messages, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one message.
func (s *MessageService) Get(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "message not found", "failed to load message")
	}
	return msg, nil
}

// UpdateStatus moves a message between unread, read and replied.
func (s *MessageService) UpdateStatus(ctx context.Context, id string, status models.MessageStatus) (*models.Message, error) {
	status = models.MessageStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be unread, read or replied")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, notFoundOrInternal(err, "message not found", "failed to update message")
	}
	return s.Get(ctx, id)
}

// Delete removes a message.
func (s *MessageService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "message not found", "failed to delete message")
	}
	return nil
}

// UnreadCount returns how many messages await attention.
func (s *MessageService) UnreadCount(ctx context.Context) (int, error) {
	count, err := s.repo.CountUnread(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count messages")
	}
	return count, nil
}
