package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Plan string

const (
	PlanFree  Plan = "free"
	PlanBasic Plan = "basic"
	PlanPro   Plan = "pro"
)

// Rank 套餐等级，用于比较 free < basic < pro
func (p Plan) Rank() int {
	switch p {
	case PlanBasic:
		return 1
	case PlanPro:
		return 2
	default:
		return 0
	}
}

const SubscriptionActive = "active"

type User struct {
	ID                    string     `gorm:"primaryKey;size:36" json:"id"`
	Name                  string     `gorm:"size:50;not null" json:"name"`
	Email                 string     `gorm:"uniqueIndex;not null" json:"-"`
	Password              string     `gorm:"not null" json:"-"` // bcrypt hash
	Image                 string     `json:"image"`
	Plan                  Plan       `gorm:"size:20;default:'free';not null" json:"-"`
	SubscriptionStatus    string     `gorm:"size:20" json:"-"`
	SubscriptionExpiresAt *time.Time `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Plan == "" {
		u.Plan = PlanFree
	}
	return nil
}
