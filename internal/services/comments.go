package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agora/internal/models"
	"agora/internal/storage"
	"agora/internal/utils"

	"gorm.io/gorm"
)

type CommentInput struct {
	PostID          string `json:"post_id" form:"post_id"`
	Content         string `json:"content" form:"content" validate:"required,max=5000"`
	ParentCommentID string `json:"parent_comment_id" form:"parent_comment_id"`
}

type CommentService struct {
	db            *gorm.DB
	cache         *utils.QueryCache
	store         storage.ObjectStore
	janitor       *Janitor
	notifications *NotificationService
}

func NewCommentService(db *gorm.DB, cache *utils.QueryCache, store storage.ObjectStore, janitor *Janitor, notifications *NotificationService) *CommentService {
	return &CommentService{db: db, cache: cache, store: store, janitor: janitor, notifications: notifications}
}

// Create adds a comment, or a reply when ParentCommentID is set.
// Replies nest one level: the parent must be a top-level comment on the same post.
func (s *CommentService) Create(ctx context.Context, userID string, in CommentInput) (models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	in.ParentCommentID = strings.TrimSpace(in.ParentCommentID)
	if err := validateInput(&in); err != nil {
		return models.Comment{}, err
	}

	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", in.PostID).Error; err != nil {
		return models.Comment{}, lookupErr(err, "Post not found")
	}

	var parent *models.Comment
	if in.ParentCommentID != "" {
		var p models.Comment
		if err := s.db.WithContext(ctx).First(&p, "id = ?", in.ParentCommentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Comment{}, invalid("parent_comment_id", "Parent comment not found")
			}
			return models.Comment{}, fmt.Errorf("load parent comment: %w", err)
		}
		if p.PostID != post.ID {
			return models.Comment{}, invalid("parent_comment_id", "Parent comment belongs to a different post")
		}
		if p.IsReply() {
			return models.Comment{}, invalid("parent_comment_id", "Replies can only be one level deep")
		}
		parent = &p
	}

	comment := models.Comment{
		PostID:  post.ID,
		UserID:  userID,
		Content: in.Content,
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return s.notifications.notifyComment(tx, post, parent, comment)
	})
	if err != nil {
		return models.Comment{}, err
	}

	keys := []string{
		keyCommunityPosts,
		cacheKey(keyCommunityPost, post.ID),
		cacheKey(keyPostComments, post.ID),
		cacheKey(keyPostCommentCount, post.ID),
		cacheKey(keyUserPosts, post.UserID),
	}
	if parent != nil {
		keys = append(keys, cacheKey(keyCommentReplies, parent.ID))
	}
	s.cache.InvalidatePrefix(keys...)

	return s.load(ctx, comment.ID)
}

func (s *CommentService) load(ctx context.Context, id string) (models.Comment, error) {
	var c models.Comment
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Attachments", orderedAttachments).
		First(&c, "id = ?", id).Error
	if err != nil {
		return models.Comment{}, lookupErr(err, "Comment not found")
	}
	withURLs(s.store, c.Attachments)
	return c, nil
}

// ForPost lists top-level comments of a visible post, oldest first.
func (s *CommentService) ForPost(ctx context.Context, postID string) ([]models.Comment, error) {
	if err := requirePost(ctx, s.db, postID); err != nil {
		return nil, err
	}

	return utils.Cached(s.cache, cacheKey(keyPostComments, postID), func() ([]models.Comment, error) {
		var comments []models.Comment
		err := s.db.WithContext(ctx).
			Preload("User").
			Preload("Attachments", orderedAttachments).
			Where("post_id = ? AND parent_comment_id IS NULL", postID).
			Order("created_at ASC").
			Find(&comments).Error
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
		if err := s.fillReplyCounts(ctx, comments); err != nil {
			return nil, err
		}
		for i := range comments {
			withURLs(s.store, comments[i].Attachments)
		}
		return comments, nil
	})
}

// Replies lists the replies to a comment, oldest first.
func (s *CommentService) Replies(ctx context.Context, commentID string) ([]models.Comment, error) {
	if _, err := visibleComment(ctx, s.db, commentID); err != nil {
		return nil, err
	}

	return utils.Cached(s.cache, cacheKey(keyCommentReplies, commentID), func() ([]models.Comment, error) {
		var replies []models.Comment
		err := s.db.WithContext(ctx).
			Preload("User").
			Preload("Attachments", orderedAttachments).
			Where("parent_comment_id = ?", commentID).
			Order("created_at ASC").
			Find(&replies).Error
		if err != nil {
			return nil, fmt.Errorf("list replies: %w", err)
		}
		for i := range replies {
			withURLs(s.store, replies[i].Attachments)
		}
		return replies, nil
	})
}

// Count returns the number of comments on a post, replies included.
func (s *CommentService) Count(ctx context.Context, postID string) (int64, error) {
	if err := requirePost(ctx, s.db, postID); err != nil {
		return 0, err
	}
	return utils.Cached(s.cache, cacheKey(keyPostCommentCount, postID), func() (int64, error) {
		var count int64
		err := s.db.WithContext(ctx).Model(&models.Comment{}).
			Where("post_id = ?", postID).
			Count(&count).Error
		if err != nil {
			return 0, fmt.Errorf("count comments: %w", err)
		}
		return count, nil
	})
}

// Update edits a comment owned by userID.
func (s *CommentService) Update(ctx context.Context, userID, id, content string) (models.Comment, error) {
	in := CommentInput{Content: strings.TrimSpace(content)}
	if err := validateInput(&in); err != nil {
		return models.Comment{}, err
	}

	comment, err := s.owned(ctx, userID, id, "edit")
	if err != nil {
		return models.Comment{}, err
	}
	if err := s.db.WithContext(ctx).Model(&comment).Update("content", in.Content).Error; err != nil {
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}

	s.cache.InvalidatePrefix(keyPostComments, keyCommentReplies)
	return s.load(ctx, id)
}

// Delete removes a comment owned by userID together with its replies and
// their attachments. Attachment files are handed to the janitor.
func (s *CommentService) Delete(ctx context.Context, userID, id string) error {
	comment, err := s.owned(ctx, userID, id, "delete")
	if err != nil {
		return err
	}

	var fileKeys []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []string{comment.ID}
		var replyIDs []string
		if err := tx.Model(&models.Comment{}).Where("parent_comment_id = ?", comment.ID).Pluck("id", &replyIDs).Error; err != nil {
			return fmt.Errorf("list replies: %w", err)
		}
		ids = append(ids, replyIDs...)

		if err := tx.Model(&models.Attachment{}).Where("comment_id IN ?", ids).Pluck("file_key", &fileKeys).Error; err != nil {
			return fmt.Errorf("list attachments: %w", err)
		}
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.Attachment{}).Error; err != nil {
			return fmt.Errorf("delete attachments: %w", err)
		}
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.Notification{}).Error; err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.janitor.Schedule(fileKeys...)
	s.cache.InvalidatePrefix(
		keyPostComments,
		keyCommentReplies,
		keyPostCommentCount,
		keyCommunityPosts,
		cacheKey(keyCommunityPost, comment.PostID),
		keyUserPosts,
	)
	return nil
}

func (s *CommentService) owned(ctx context.Context, userID, id, action string) (models.Comment, error) {
	c, err := visibleComment(ctx, s.db, id)
	if err != nil {
		return models.Comment{}, err
	}
	if c.UserID != userID {
		return models.Comment{}, forbidden("Unauthorized: You can only " + action + " your own comments")
	}
	return c, nil
}

func (s *CommentService) fillReplyCounts(ctx context.Context, comments []models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	type countResult struct {
		ParentCommentID string
		Count           int
	}
	var results []countResult
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("parent_comment_id, COUNT(*) as count").
		Where("parent_comment_id IN ?", ids).
		Group("parent_comment_id").
		Scan(&results).Error
	if err != nil {
		return fmt.Errorf("count replies: %w", err)
	}

	counts := make(map[string]int, len(results))
	for _, r := range results {
		counts[r.ParentCommentID] = r.Count
	}
	for i := range comments {
		comments[i].ReplyCount = counts[comments[i].ID]
	}
	return nil
}

// requirePost 确认帖子存在且未被软删除
func requirePost(ctx context.Context, db *gorm.DB, postID string) error {
	var post models.Post
	if err := db.WithContext(ctx).Select("id").First(&post, "id = ?", postID).Error; err != nil {
		return lookupErr(err, "Post not found")
	}
	return nil
}

// visibleComment loads a comment whose post is still visible.
func visibleComment(ctx context.Context, db *gorm.DB, id string) (models.Comment, error) {
	var c models.Comment
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return models.Comment{}, lookupErr(err, "Comment not found")
	}
	if err := requirePost(ctx, db, c.PostID); err != nil {
		return models.Comment{}, err
	}
	return c, nil
}
