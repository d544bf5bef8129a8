package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID              string       `gorm:"primaryKey;size:36" json:"id"`
	PostID          string       `gorm:"size:36;not null;index" json:"post_id"`
	UserID          string       `gorm:"size:36;not null;index" json:"user_id"`
	User            User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ParentCommentID *string      `gorm:"size:36;index" json:"parent_comment_id"` // Nullable for top-level comments
	Content         string       `gorm:"type:text;not null" json:"content"`
	Attachments     []Attachment `gorm:"foreignKey:CommentID" json:"attachments"`
	CreatedAt       time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	ReplyCount int `gorm:"-" json:"reply_count"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsReply 是否为楼中楼回复
func (c Comment) IsReply() bool {
	return c.ParentCommentID != nil && *c.ParentCommentID != ""
}
