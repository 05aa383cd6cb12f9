package models

import "time"

// MessageStatus tracks inbox handling of a contact message.
type MessageStatus string

const (
	MessageUnread  MessageStatus = "unread"
	MessageRead    MessageStatus = "read"
	MessageReplied MessageStatus = "replied"
)

// Valid reports whether s is a known status.
func (s MessageStatus) Valid() bool {
	return s == MessageUnread || s == MessageRead || s == MessageReplied
}

// Message is a contact form submission.
type Message struct {
	ID          string        `db:"id" json:"id"`
	SenderName  string        `db:"sender_name" json:"senderName"`
	SenderEmail string        `db:"sender_email" json:"senderEmail"`
	Subject     string        `db:"subject" json:"subject"`
	Body        string        `db:"body" json:"message"`
	Status      MessageStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// MessageFilter captures inbox listing criteria.
type MessageFilter struct {
	Status   *MessageStatus
	Search   string
	Page     int
	PageSize int
}
