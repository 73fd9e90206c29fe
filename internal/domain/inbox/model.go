package inbox

import (
	"time"

	"github.com/google/uuid"
)

// Message is a contact message sent by an authenticated user to the
// operations team. Sender identity is resolved server-side from the
// authenticated account, never taken from the request body.
type Message struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	SenderName  string     `db:"sender_name" json:"senderName"`
	SenderEmail string     `db:"sender_email" json:"senderEmail"`
	Content     string     `db:"content" json:"content"`
	Response    *string    `db:"response" json:"response,omitempty"`
	RespondedAt *time.Time `db:"responded_at" json:"respondedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// Answered reports whether an admin has already responded.
func (m *Message) Answered() bool {
	return m.Response != nil
}
