package model

import (
	"time"

	"gorm.io/gorm"
)

// Interaction represents one completed chat turn. Records are append-only;
// they are never mutated after insert and are removed only by external
// data-retention processes.
type Interaction struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"user_id" gorm:"size:64;not null;index:idx_user_created,priority:1"`
	Question  string    `json:"question" gorm:"type:text;not null"`
	Answer    string    `json:"answer" gorm:"type:text;not null"`
	Context   *string   `json:"context" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_user_created,priority:2"`
}

// InteractionList contains a page of interactions and the total count for the
// scope queried.
type InteractionList struct {
	TotalCount int64          `json:"totalCount"`
	Items      []*Interaction `json:"items"`
}

// InteractionStats carries aggregate statistics over interactions.
type InteractionStats struct {
	// TotalChats is the number of interactions in scope.
	TotalChats int64 `json:"total_chats"`

	// TotalUsers is the number of distinct users in scope.
	TotalUsers int64 `json:"total_users"`

	// ChatsToday counts interactions since 00:00 UTC of the current date.
	ChatsToday int64 `json:"recent_chats_24h"`

	// AvgAnswerLength is the mean answer length in characters; 0 when
	// TotalChats is 0.
	AvgAnswerLength float64 `json:"average_response_length"`
}

// TableName returns the table name for GORM.
func (i *Interaction) TableName() string {
	return "chat_history"
}

// BeforeCreate assigns the server-side UTC timestamp.
func (i *Interaction) BeforeCreate(tx *gorm.DB) (err error) {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	return
}
