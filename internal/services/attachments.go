package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"agora/internal/models"
	"agora/internal/storage"
	"agora/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MaxAttachmentsPerTarget = 10
	MaxImageSize            = 10 << 20  // 10MB
	MaxVideoSize            = 100 << 20 // 100MB
)

// allowedMimeTypes 允许上传的类型及其大小上限
var allowedMimeTypes = map[string]int64{
	"image/jpeg":      MaxImageSize,
	"image/png":       MaxImageSize,
	"image/webp":      MaxImageSize,
	"image/gif":       MaxImageSize,
	"image/heic":      MaxImageSize,
	"video/mp4":       MaxVideoSize,
	"video/quicktime": MaxVideoSize,
	"video/webm":      MaxVideoSize,
}

type UploadRequest struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
	FileSize    int64  `json:"file_size" validate:"required,gt=0"`
}

type UploadTicket struct {
	UploadURL string `json:"upload_url"`
	FileKey   string `json:"file_key"`
	PublicURL string `json:"public_url"`
	ExpiresIn int    `json:"expires_in"`
}

type AttachmentInput struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
	FileKey   string `json:"file_key" validate:"required"`
	MimeType  string `json:"mime_type" validate:"required"`
	FileSize  int64  `json:"file_size" validate:"required,gt=0"`
	Position  *int   `json:"position" validate:"omitempty,min=0"`
}

// Target 附件挂载的对象，PostID 与 CommentID 二选一
type Target struct {
	PostID    string
	CommentID string
}

func (t Target) column() (string, string) {
	if t.PostID != "" {
		return "post_id", t.PostID
	}
	return "comment_id", t.CommentID
}

type AttachmentService struct {
	db         *gorm.DB
	cache      *utils.QueryCache
	store      storage.ObjectStore
	janitor    *Janitor
	presignTTL time.Duration
	now        func() time.Time
}

func NewAttachmentService(db *gorm.DB, cache *utils.QueryCache, store storage.ObjectStore, janitor *Janitor, presignTTL time.Duration) *AttachmentService {
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &AttachmentService{
		db:         db,
		cache:      cache,
		store:      store,
		janitor:    janitor,
		presignTTL: presignTTL,
		now:        time.Now,
	}
}

func uploadPrefix(userID string) string {
	return "uploads/" + userID + "/"
}

func objectURL(store storage.ObjectStore, key string) string {
	if store != nil {
		return store.URL(key)
	}
	return storage.PublicURL("", key)
}

func withURLs(store storage.ObjectStore, atts []models.Attachment) {
	for i := range atts {
		atts[i].URL = objectURL(store, atts[i].FileKey)
	}
}

func checkMedia(mimeType string, size int64) error {
	limit, ok := allowedMimeTypes[strings.ToLower(mimeType)]
	if !ok {
		return invalid("mime_type", "Unsupported file type")
	}
	if size > limit {
		return invalid("file_size", "File size exceeds limit")
	}
	return nil
}

// RequestUpload returns a presigned URL the client uploads the file to.
func (s *AttachmentService) RequestUpload(ctx context.Context, userID string, in UploadRequest) (UploadTicket, error) {
	if s.store == nil {
		return UploadTicket{}, unavailable("File uploads are not configured")
	}
	in.FileName = strings.TrimSpace(in.FileName)
	in.ContentType = strings.ToLower(strings.TrimSpace(in.ContentType))
	if err := validateInput(&in); err != nil {
		return UploadTicket{}, err
	}
	if err := checkMedia(in.ContentType, in.FileSize); err != nil {
		return UploadTicket{}, err
	}

	ext := strings.ToLower(filepath.Ext(in.FileName))
	key := fmt.Sprintf("%s%d_%s%s", uploadPrefix(userID), s.now().Unix(), uuid.NewString(), ext)

	url, err := s.store.PresignPut(ctx, key, in.ContentType, s.presignTTL)
	if err != nil {
		return UploadTicket{}, err
	}
	return UploadTicket{
		UploadURL: url,
		FileKey:   key,
		PublicURL: s.store.URL(key),
		ExpiresIn: int(s.presignTTL.Seconds()),
	}, nil
}

// Register records an uploaded file against a post or comment owned by userID.
func (s *AttachmentService) Register(ctx context.Context, userID string, in AttachmentInput) (models.Attachment, error) {
	in.PostID = strings.TrimSpace(in.PostID)
	in.CommentID = strings.TrimSpace(in.CommentID)
	in.FileKey = strings.TrimSpace(in.FileKey)
	in.MimeType = strings.ToLower(strings.TrimSpace(in.MimeType))
	if err := validateInput(&in); err != nil {
		return models.Attachment{}, err
	}
	if (in.PostID == "") == (in.CommentID == "") {
		return models.Attachment{}, invalid("post_id", "Attach to exactly one post or comment")
	}
	if err := checkMedia(in.MimeType, in.FileSize); err != nil {
		return models.Attachment{}, err
	}
	if !strings.HasPrefix(in.FileKey, uploadPrefix(userID)) {
		return models.Attachment{}, forbidden("Unauthorized: You can only attach your own uploads")
	}

	target := Target{PostID: in.PostID, CommentID: in.CommentID}
	if err := s.checkTarget(ctx, userID, target); err != nil {
		return models.Attachment{}, err
	}

	if s.store != nil {
		info, err := s.store.Head(ctx, in.FileKey)
		if errors.Is(err, storage.ErrNotFound) {
			return models.Attachment{}, invalid("file_key", "Uploaded file not found")
		}
		if err != nil {
			return models.Attachment{}, err
		}
		if info.Size > 0 && info.Size != in.FileSize {
			return models.Attachment{}, invalid("file_size", "File size does not match the upload")
		}
	}

	att := models.Attachment{
		FileKey:  in.FileKey,
		MimeType: in.MimeType,
		FileSize: in.FileSize,
		UserID:   userID,
	}
	if in.PostID != "" {
		att.PostID = &in.PostID
	} else {
		att.CommentID = &in.CommentID
	}

	col, id := target.column()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dup int64
		if err := tx.Model(&models.Attachment{}).Where("file_key = ?", in.FileKey).Count(&dup).Error; err != nil {
			return fmt.Errorf("check file key: %w", err)
		}
		if dup > 0 {
			return conflict("File is already attached")
		}

		var count int64
		if err := tx.Model(&models.Attachment{}).Where(col+" = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("count attachments: %w", err)
		}
		if count >= MaxAttachmentsPerTarget {
			return invalid("file_key", fmt.Sprintf("A post or comment can have at most %d attachments", MaxAttachmentsPerTarget))
		}

		if in.Position != nil {
			att.Position = *in.Position
		} else {
			var last struct{ Max *int }
			if err := tx.Model(&models.Attachment{}).Select("MAX(position) AS max").Where(col+" = ?", id).Scan(&last).Error; err != nil {
				return fmt.Errorf("last position: %w", err)
			}
			if last.Max != nil {
				att.Position = *last.Max + 1
			}
		}

		if err := tx.Create(&att).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("File is already attached")
			}
			return fmt.Errorf("create attachment: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Attachment{}, err
	}

	s.invalidate(target)
	att.URL = objectURL(s.store, att.FileKey)
	return att, nil
}

func (s *AttachmentService) ForPost(ctx context.Context, postID string) ([]models.Attachment, error) {
	if err := requirePost(ctx, s.db, postID); err != nil {
		return nil, err
	}
	return s.list(ctx, Target{PostID: postID})
}

func (s *AttachmentService) ForComment(ctx context.Context, commentID string) ([]models.Attachment, error) {
	if _, err := visibleComment(ctx, s.db, commentID); err != nil {
		return nil, err
	}
	return s.list(ctx, Target{CommentID: commentID})
}

func (s *AttachmentService) list(ctx context.Context, t Target) ([]models.Attachment, error) {
	col, id := t.column()
	var atts []models.Attachment
	if err := orderedAttachments(s.db.WithContext(ctx)).Where(col+" = ?", id).Find(&atts).Error; err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	withURLs(s.store, atts)
	return atts, nil
}

// Reorder rewrites positions so attachments appear in the order of ids.
func (s *AttachmentService) Reorder(ctx context.Context, userID string, t Target, ids []string) ([]models.Attachment, error) {
	if err := s.checkTarget(ctx, userID, t); err != nil {
		return nil, err
	}
	current, err := s.list(ctx, t)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(current))
	for _, a := range current {
		known[a.ID] = true
	}
	if len(ids) != len(current) {
		return nil, invalid("ids", "Order must list every attachment exactly once")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] || seen[id] {
			return nil, invalid("ids", "Order must list every attachment exactly once")
		}
		seen[id] = true
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for pos, id := range ids {
			if err := tx.Model(&models.Attachment{}).Where("id = ?", id).Update("position", pos).Error; err != nil {
				return fmt.Errorf("update position: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(t)
	return s.list(ctx, t)
}

// Delete removes an attachment uploaded by userID and queues its file for deletion.
func (s *AttachmentService) Delete(ctx context.Context, userID, id string) error {
	var att models.Attachment
	if err := s.db.WithContext(ctx).First(&att, "id = ?", id).Error; err != nil {
		return lookupErr(err, "Attachment not found")
	}
	if att.UserID != userID {
		return forbidden("Unauthorized: You can only delete your own attachments")
	}
	if err := s.db.WithContext(ctx).Delete(&att).Error; err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}

	s.janitor.Schedule(att.FileKey)
	t := Target{}
	if att.PostID != nil {
		t.PostID = *att.PostID
	} else if att.CommentID != nil {
		t.CommentID = *att.CommentID
	}
	s.invalidate(t)
	return nil
}

// checkTarget 确认目标存在且属于当前用户
func (s *AttachmentService) checkTarget(ctx context.Context, userID string, t Target) error {
	switch {
	case t.PostID != "":
		var post models.Post
		if err := s.db.WithContext(ctx).First(&post, "id = ?", t.PostID).Error; err != nil {
			return lookupErr(err, "Post not found")
		}
		if post.UserID != userID {
			return forbidden("Unauthorized: You can only attach files to your own posts")
		}
	case t.CommentID != "":
		c, err := visibleComment(ctx, s.db, t.CommentID)
		if err != nil {
			return err
		}
		if c.UserID != userID {
			return forbidden("Unauthorized: You can only attach files to your own comments")
		}
	default:
		return invalid("post_id", "Attach to exactly one post or comment")
	}
	return nil
}

func (s *AttachmentService) invalidate(t Target) {
	if t.PostID != "" {
		s.cache.InvalidatePrefix(keyCommunityPosts, cacheKey(keyCommunityPost, t.PostID), keyUserPosts)
		return
	}
	s.cache.InvalidatePrefix(keyPostComments, keyCommentReplies)
}
