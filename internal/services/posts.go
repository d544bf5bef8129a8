package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"agora/internal/models"
	"agora/internal/storage"
	"agora/internal/utils"

	"gorm.io/gorm"
)

// 查询缓存键前缀
const (
	keyCommunityPosts   = "community-posts"
	keyCommunityPost    = "community-post"
	keyUserPosts        = "user-posts"
	keyPostComments     = "post-comments"
	keyCommentReplies   = "comment-replies"
	keyPostCommentCount = "post-comment-count"
)

func cacheKey(parts ...any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}

const RecentPageSize = 20

type PostInput struct {
	Title    string          `json:"title" form:"title" validate:"max=200"`
	Content  string          `json:"content" form:"content" validate:"required,max=10000"`
	Category models.Category `json:"category" form:"category" validate:"omitempty,category"`
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = models.Category(strings.ToLower(strings.TrimSpace(string(in.Category))))
}

type RecentQuery struct {
	Category models.Category
	Page     int
}

type PostPage struct {
	Posts      []models.Post `json:"posts"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Total      int64         `json:"total"`
}

type PostService struct {
	db    *gorm.DB
	cache *utils.QueryCache
	store storage.ObjectStore
	users *UserService
}

func NewPostService(db *gorm.DB, cache *utils.QueryCache, store storage.ObjectStore, users *UserService) *PostService {
	return &PostService{db: db, cache: cache, store: store, users: users}
}

func orderedAttachments(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

// Create validates input and stores a new post owned by userID.
func (s *PostService) Create(ctx context.Context, userID string, in PostInput) (models.Post, error) {
	in.normalize()
	if in.Category == "" {
		in.Category = models.CategoryGeneral
	}
	if err := validateInput(&in); err != nil {
		return models.Post{}, err
	}

	post := models.Post{
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		UserID:   userID,
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(&post).Error; err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}

	s.cache.InvalidatePrefix(keyCommunityPosts, cacheKey(keyUserPosts, userID))
	return s.load(ctx, post.ID)
}

// Get returns a visible post with author, attachments and comment count.
func (s *PostService) Get(ctx context.Context, id string) (models.Post, error) {
	return utils.Cached(s.cache, cacheKey(keyCommunityPost, id), func() (models.Post, error) {
		return s.load(ctx, id)
	})
}

func (s *PostService) load(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Attachments", orderedAttachments).
		First(&post, "id = ?", id).Error
	if err != nil {
		return models.Post{}, lookupErr(err, "Post not found")
	}
	posts := []models.Post{post}
	if err := fillCommentCounts(ctx, s.db, posts); err != nil {
		return models.Post{}, err
	}
	withURLs(s.store, posts[0].Attachments)
	return posts[0], nil
}

// Recent lists the newest posts, pinned ones first, RecentPageSize per page.
func (s *PostService) Recent(ctx context.Context, q RecentQuery) (PostPage, error) {
	q.Category = models.Category(strings.ToLower(string(q.Category)))
	if q.Category != "" && !q.Category.IsValid() {
		return PostPage{}, invalid("category", "Invalid category")
	}
	if q.Page < 1 {
		q.Page = 1
	}

	scope := "all"
	if q.Category != "" {
		scope = string(q.Category)
	}
	key := cacheKey(keyCommunityPosts, scope, q.Page)
	return utils.Cached(s.cache, key, func() (PostPage, error) {
		scoped := func() *gorm.DB {
			tx := s.db.WithContext(ctx).Model(&models.Post{})
			if q.Category != "" {
				tx = tx.Where("category = ?", q.Category)
			}
			return tx
		}

		var total int64
		if err := scoped().Count(&total).Error; err != nil {
			return PostPage{}, fmt.Errorf("count posts: %w", err)
		}

		var posts []models.Post
		err := scoped().
			Preload("User").
			Preload("Attachments", orderedAttachments).
			Order("is_pinned DESC, created_at DESC").
			Limit(RecentPageSize).
			Offset((q.Page - 1) * RecentPageSize).
			Find(&posts).Error
		if err != nil {
			return PostPage{}, fmt.Errorf("list posts: %w", err)
		}
		if err := fillCommentCounts(ctx, s.db, posts); err != nil {
			return PostPage{}, err
		}
		for i := range posts {
			withURLs(s.store, posts[i].Attachments)
		}

		totalPages := int(math.Ceil(float64(total) / float64(RecentPageSize)))
		if totalPages == 0 {
			totalPages = 1
		}
		return PostPage{Posts: posts, Page: q.Page, TotalPages: totalPages, Total: total}, nil
	})
}

// ByUser lists a user's posts, newest first.
func (s *PostService) ByUser(ctx context.Context, userID string, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	key := cacheKey(keyUserPosts, userID, limit)
	return utils.Cached(s.cache, key, func() ([]models.Post, error) {
		var posts []models.Post
		err := s.db.WithContext(ctx).
			Preload("User").
			Preload("Attachments", orderedAttachments).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Find(&posts).Error
		if err != nil {
			return nil, fmt.Errorf("list user posts: %w", err)
		}
		if err := fillCommentCounts(ctx, s.db, posts); err != nil {
			return nil, err
		}
		for i := range posts {
			withURLs(s.store, posts[i].Attachments)
		}
		return posts, nil
	})
}

// Update edits a post owned by userID. An empty category keeps the current one.
func (s *PostService) Update(ctx context.Context, userID, id string, in PostInput) (models.Post, error) {
	in.normalize()
	if err := validateInput(&in); err != nil {
		return models.Post{}, err
	}

	post, err := s.owned(ctx, userID, id, "edit")
	if err != nil {
		return models.Post{}, err
	}

	updates := map[string]any{
		"title":   in.Title,
		"content": in.Content,
	}
	if in.Category != "" {
		updates["category"] = in.Category
	}
	if err := s.db.WithContext(ctx).Model(&post).Updates(updates).Error; err != nil {
		return models.Post{}, fmt.Errorf("update post: %w", err)
	}

	s.invalidatePost(userID, id)
	return s.load(ctx, id)
}

// Delete soft deletes a post owned by userID.
func (s *PostService) Delete(ctx context.Context, userID, id string) error {
	post, err := s.owned(ctx, userID, id, "delete")
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&post).Error; err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	s.invalidatePost(userID, id)
	s.cache.InvalidatePrefix(cacheKey(keyPostComments, id), cacheKey(keyPostCommentCount, id))
	return nil
}

// SetPinned 置顶/取消置顶，仅管理员可操作
func (s *PostService) SetPinned(ctx context.Context, actorID, id string, pinned bool) (models.Post, error) {
	admin, err := s.users.IsAdmin(ctx, actorID)
	if err != nil {
		return models.Post{}, err
	}
	if !admin {
		return models.Post{}, forbidden("Unauthorized: Only administrators can pin posts")
	}

	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return models.Post{}, lookupErr(err, "Post not found")
	}
	if err := s.db.WithContext(ctx).Model(&post).UpdateColumn("is_pinned", pinned).Error; err != nil {
		return models.Post{}, fmt.Errorf("pin post: %w", err)
	}

	s.invalidatePost(post.UserID, id)
	return s.load(ctx, id)
}

// owned loads a visible post and checks that userID wrote it.
func (s *PostService) owned(ctx context.Context, userID, id, action string) (models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return models.Post{}, lookupErr(err, "Post not found")
	}
	if post.UserID != userID {
		return models.Post{}, forbidden("Unauthorized: You can only " + action + " your own posts")
	}
	return post, nil
}

func (s *PostService) invalidatePost(userID, id string) {
	s.cache.InvalidatePrefix(
		keyCommunityPosts,
		cacheKey(keyCommunityPost, id),
		cacheKey(keyUserPosts, userID),
	)
}

// fillCommentCounts 批量填充帖子的评论数量
func fillCommentCounts(ctx context.Context, db *gorm.DB, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countResult struct {
		PostID string
		Count  int
	}
	var results []countResult
	err := db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results).Error
	if err != nil {
		return fmt.Errorf("count comments: %w", err)
	}

	countMap := make(map[string]int, len(results))
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}
	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]
	}
	return nil
}
