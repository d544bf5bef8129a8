package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agora/internal/models"
	"agora/internal/utils"

	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string `json:"name" form:"name" validate:"required,max=50"`
	Email    string `json:"email" form:"email" validate:"required,email,max=255"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=72"`
}

type ProfileInput struct {
	Name  string `json:"name" form:"name" validate:"required,max=50"`
	Image string `json:"image" form:"image" validate:"omitempty,url,max=500"`
}

// PlanInfo 用户当前套餐状态
type PlanInfo struct {
	Plan      models.Plan `json:"plan"`
	IsActive  bool        `json:"is_active"`
	ExpiresAt *time.Time  `json:"expires_at"`
}

// Profile 公开主页信息，不含邮箱等私有字段
type Profile struct {
	User         models.User   `json:"user"`
	DaysSince    int           `json:"days_since_joined"`
	PostCount    int64         `json:"post_count"`
	CommentCount int64         `json:"comment_count"`
	Posts        []models.Post `json:"posts"`
}

type UserService struct {
	db          *gorm.DB
	cache       *utils.QueryCache
	adminEmails map[string]bool
	now         func() time.Time
}

func NewUserService(db *gorm.DB, cache *utils.QueryCache, adminEmails []string) *UserService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = true
		}
	}
	return &UserService{db: db, cache: cache, adminEmails: admins, now: time.Now}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(&in); err != nil {
		return models.User{}, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}
	if existing > 0 {
		return models.User{}, conflict("Email already registered")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Plan:     models.PlanFree,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, conflict("Email already registered")
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks an email/password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, unauthorized("Invalid email or password")
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return models.User{}, unauthorized("Invalid email or password")
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return models.User{}, lookupErr(err, "User not found")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Image = strings.TrimSpace(in.Image)
	if err := validateInput(&in); err != nil {
		return models.User{}, err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"name":  in.Name,
		"image": in.Image,
	}).Error
	if err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}

	// 缓存的帖子和评论里带着作者信息
	s.cache.InvalidatePrefix(
		keyCommunityPosts,
		keyCommunityPost,
		keyUserPosts,
		keyPostComments,
		keyCommentReplies,
	)
	return s.Get(ctx, id)
}

// Profile returns the public view of a user with their recent posts.
func (s *UserService) Profile(ctx context.Context, id string, recent int) (Profile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{User: user, DaysSince: utils.GetDaysSinceJoined(user.CreatedAt)}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Post{}).Where("user_id = ?", id).Count(&p.PostCount).Error; err != nil {
		return Profile{}, fmt.Errorf("count posts: %w", err)
	}
	if err := db.Model(&models.Comment{}).Where("user_id = ?", id).Count(&p.CommentCount).Error; err != nil {
		return Profile{}, fmt.Errorf("count comments: %w", err)
	}
	if recent <= 0 {
		recent = 10
	}
	err = db.Preload("User").
		Where("user_id = ?", id).
		Order("created_at DESC").
		Limit(recent).
		Find(&p.Posts).Error
	if err != nil {
		return Profile{}, fmt.Errorf("list posts: %w", err)
	}
	if err := fillCommentCounts(ctx, s.db, p.Posts); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Plan reports the user's plan. Unknown users are treated as inactive free users.
func (s *UserService) Plan(ctx context.Context, id string) (PlanInfo, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PlanInfo{Plan: models.PlanFree}, nil
		}
		return PlanInfo{}, err
	}
	return s.planOf(user), nil
}

func (s *UserService) planOf(user models.User) PlanInfo {
	plan := user.Plan
	if plan == "" {
		plan = models.PlanFree
	}
	active := plan == models.PlanFree ||
		(user.SubscriptionStatus == models.SubscriptionActive &&
			(user.SubscriptionExpiresAt == nil || user.SubscriptionExpiresAt.After(s.now())))
	return PlanInfo{Plan: plan, IsActive: active, ExpiresAt: user.SubscriptionExpiresAt}
}

// HasValidPlan reports whether the user's active plan is at least required.
func (s *UserService) HasValidPlan(ctx context.Context, id string, required models.Plan) (bool, error) {
	info, err := s.Plan(ctx, id)
	if err != nil {
		return false, err
	}
	if !info.IsActive {
		return false, nil
	}
	return info.Plan.Rank() >= required.Rank(), nil
}

func (s *UserService) IsAdminEmail(email string) bool {
	return s.adminEmails[strings.ToLower(strings.TrimSpace(email))]
}

func (s *UserService) IsAdmin(ctx context.Context, id string) (bool, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.IsAdminEmail(user.Email), nil
}
