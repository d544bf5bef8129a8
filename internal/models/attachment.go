package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment 帖子或评论的媒体附件，文件本体在对象存储中
type Attachment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	FileKey   string    `gorm:"not null;uniqueIndex" json:"file_key"`
	MimeType  string    `gorm:"size:100;not null" json:"mime_type"`
	FileSize  int64     `gorm:"not null" json:"file_size"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	PostID    *string   `gorm:"size:36;index" json:"post_id"`
	CommentID *string   `gorm:"size:36;index" json:"comment_id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	URL string `gorm:"-" json:"url"`
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

func (a Attachment) IsVideo() bool {
	return strings.HasPrefix(a.MimeType, "video/")
}
