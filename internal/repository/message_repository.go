package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/placement-sarthi/placement-api/internal/models"
)

const messageColumns = "id, sender_name, sender_email, subject, body, status, created_at, updated_at"

// MessageRepository stores contact form submissions.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// List returns messages newest first.
func (r *MessageRepository) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, int, error) {
	var args []interface{}
	conditions := []string{"1=1"}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(sender_name) LIKE $%d OR LOWER(sender_email) LIKE $%d OR LOWER(subject) LIKE $%d)", len(args), len(args), len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf("SELECT %s FROM messages %s ORDER BY created_at DESC LIMIT %d OFFSET %d", messageColumns, where, size, (page-1)*size)
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM messages "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	return messages, total, nil
}

// FindByID returns one message.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := r.db.GetContext(ctx, &msg, "SELECT "+messageColumns+" FROM messages WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Create stores a new message as unread.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Status == "" {
		msg.Status = models.MessageUnread
	}
	const query = `INSERT INTO messages (id, sender_name, sender_email, subject, body, status, created_at, updated_at)
        VALUES (:id, :sender_name, :sender_email, :subject, :body, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// UpdateStatus changes the inbox status of a message.
func (r *MessageRepository) UpdateStatus(ctx context.Context, id string, status models.MessageStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE messages SET status = $2, updated_at = $3 WHERE id = $1", id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	return expectAffected(res, "update message status")
}

// Delete removes a message.
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return expectAffected(res, "delete message")
}

// CountUnread returns the number of unread messages.
func (r *MessageRepository) CountUnread(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM messages WHERE status = $1", models.MessageUnread); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return total, nil
}
