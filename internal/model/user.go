package model

import (
	"strings"
	"time"
)

// User 用户模型
type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email" gorm:"unique;not null"`
	Username     string    `json:"username" db:"username" gorm:"unique;not null"`
	Name         string    `json:"name" db:"name"`
	ShortHand    string    `json:"short_hand" db:"short_hand"`
	Avatar       string    `json:"avatar" db:"avatar"`
	Bio          string    `json:"bio" db:"bio"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DisplayName 展示用名称：name -> username -> "User"
func (u *User) DisplayName() string {
	if u == nil {
		return "User"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Username != "" {
		return u.Username
	}
	return "User"
}

// SessionUser 专门用于 Session 存储的用户信息结构
type SessionUser struct {
	ID       int
	Email    string
	Username string
	Name     string
}

// NormalizeEmail 邮箱统一按小写存储和查找
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
