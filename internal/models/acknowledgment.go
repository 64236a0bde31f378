package models

import "time"

// Acknowledgment records that a user has reviewed a document. At most one
// exists per (user, document) pair, enforced by a check before insert rather
// than a storage constraint. Rows are never updated; they are removed only
// when their user is deleted.
type Acknowledgment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	DocumentID uint      `gorm:"index;not null" json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
}
