package models

import "time"

// Document is an uploaded file awaiting acknowledgment. Filename is the
// sanitized name shown to users; Filepath is the storage key of the file on
// disk, which always points at a PDF once office formats are converted.
// Documents are soft-deleted: IsDeleted hides them from listings and detail
// lookups while the row and backing file persist.
type Document struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Filename            string    `gorm:"size:255;not null" json:"filename"`
	Filepath            string    `gorm:"size:255;not null" json:"filepath"`
	UploaderID          uint      `gorm:"index;not null" json:"uploader_id"`
	Uploader            User      `gorm:"foreignKey:UploaderID" json:"-"`
	IsDeleted           bool      `gorm:"not null;default:false" json:"-"`
	SpecialRequirements string    `gorm:"type:text" json:"special_requirements,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// GetUserID reports the owning user for ownership policies.
func (d *Document) GetUserID() uint { return d.UploaderID }
