package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryGeneral      Category = "general"
	CategoryQuestion     Category = "question"
	CategoryDiscussion   Category = "discussion"
	CategoryAnnouncement Category = "announcement"
	CategoryFeedback     Category = "feedback"
	CategoryShowcase     Category = "showcase"
)

// CategoryInfo 分类的展示信息
type CategoryInfo struct {
	Value       Category `json:"value"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
}

// Categories 按展示顺序排列
var Categories = []CategoryInfo{
	{CategoryGeneral, "General", "General topics and conversations"},
	{CategoryQuestion, "Question", "Ask the community for help"},
	{CategoryDiscussion, "Discussion", "Start a discussion on a topic"},
	{CategoryAnnouncement, "Announcement", "Share important updates"},
	{CategoryFeedback, "Feedback", "Share feedback or suggestions"},
	{CategoryShowcase, "Showcase", "Show off your work"},
}

func (c Category) IsValid() bool {
	for _, info := range Categories {
		if info.Value == c {
			return true
		}
	}
	return false
}

func (c Category) Label() string {
	for _, info := range Categories {
		if info.Value == c {
			return info.Label
		}
	}
	return string(c)
}

func (c Category) Description() string {
	for _, info := range Categories {
		if info.Value == c {
			return info.Description
		}
	}
	return ""
}

type Post struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Title       string         `gorm:"size:200" json:"title"` // Optional
	Content     string         `gorm:"type:text;not null" json:"content"`
	Category    Category       `gorm:"size:20;not null;default:'general';index" json:"category"`
	UserID      string         `gorm:"size:36;not null;index" json:"user_id"`
	User        User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	IsPinned    bool           `gorm:"default:false;index" json:"is_pinned"`
	Attachments []Attachment   `gorm:"foreignKey:PostID" json:"attachments"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// 非数据库字段，用于查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Category == "" {
		p.Category = CategoryGeneral
	}
	return nil
}

// DisplayTitle 没有标题时取正文开头
func (p Post) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(p.Content), "\n", 2)[0])
	if r := []rune(line); len(r) > 60 {
		return string(r[:60]) + "..."
	}
	return line
}
