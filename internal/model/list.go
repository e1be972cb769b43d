package model

import "time"

// List 观影清单
type List struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title" gorm:"not null"`
	Description string    `json:"description" db:"description"`
	OwnerID     int       `json:"owner_id" db:"owner_id" gorm:"index;not null"`
	Owner       *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	IsPrivate   bool      `json:"is_private" db:"is_private" gorm:"index"`
	IsDeleted   bool      `json:"is_deleted" db:"is_deleted" gorm:"index"`
	// DefaultOwnerID 仅在自动创建的默认清单上设置，唯一索引保证每个用户只有一个
	DefaultOwnerID *int      `json:"-" db:"default_owner_id" gorm:"uniqueIndex"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ListMembership 清单成员（邀请）
type ListMembership struct {
	ID            int       `json:"id" db:"id"`
	ListID        int       `json:"list_id" db:"list_id" gorm:"uniqueIndex:idx_list_member;not null"`
	List          *List     `json:"list,omitempty" gorm:"foreignKey:ListID"`
	InvitedUserID int       `json:"invited_user_id" db:"invited_user_id" gorm:"uniqueIndex:idx_list_member;not null"`
	InvitedUser   *User     `json:"invited_user,omitempty" gorm:"foreignKey:InvitedUserID"`
	Permission    string    `json:"permission" db:"permission" gorm:"default:view"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// TableName 与原有集合名保持一致
func (ListMembership) TableName() string {
	return "list_users"
}

const (
	PermissionView   = "view"
	PermissionEdit   = "edit"
	PermissionRemove = "remove" // 仅用于请求，表示移除成员，不会落库
)
