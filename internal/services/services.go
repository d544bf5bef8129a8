package services

import (
	"time"

	"agora/internal/storage"
	"agora/internal/utils"

	"gorm.io/gorm"
)

type Options struct {
	AdminEmails []string
	PresignTTL  time.Duration
}

// Services 把各个业务服务组装在一起，供 handlers 使用
type Services struct {
	Users         *UserService
	Posts         *PostService
	Comments      *CommentService
	Attachments   *AttachmentService
	Notifications *NotificationService
	Janitor       *Janitor
}

// New wires the services. store may be nil when uploads are not configured.
func New(db *gorm.DB, cache *utils.QueryCache, store storage.ObjectStore, opts Options) *Services {
	janitor := NewJanitor(store)
	users := NewUserService(db, cache, opts.AdminEmails)
	notifications := NewNotificationService(db)
	return &Services{
		Users:         users,
		Posts:         NewPostService(db, cache, store, users),
		Comments:      NewCommentService(db, cache, store, janitor, notifications),
		Attachments:   NewAttachmentService(db, cache, store, janitor, opts.PresignTTL),
		Notifications: notifications,
		Janitor:       janitor,
	}
}
