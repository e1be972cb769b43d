package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/cinelog/internal/model"
	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Find 查找 (清单, 用户) 对应的成员记录
func (r *MembershipRepository) Find(ctx context.Context, listID, userID int) (*model.ListMembership, error) {
	var m model.ListMembership
	err := r.db.WithContext(ctx).
		Where("list_id = ? AND invited_user_id = ?", listID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create 创建成员记录，重复时返回 gorm.ErrDuplicatedKey
func (r *MembershipRepository) Create(ctx context.Context, m *model.ListMembership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// UpdatePermission 更新权限
func (r *MembershipRepository) UpdatePermission(ctx context.Context, id int, permission string) error {
	return r.db.WithContext(ctx).Model(&model.ListMembership{}).
		Where("id = ?", id).
		Update("permission", permission).Error
}

// Delete 删除成员记录
func (r *MembershipRepository) Delete(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Delete(&model.ListMembership{}, id).Error
}

// ListByList 获取清单的全部成员（预加载被邀请用户）
func (r *MembershipRepository) ListByList(ctx context.Context, listID int) ([]*model.ListMembership, error) {
	var members []*model.ListMembership
	err := r.db.WithContext(ctx).
		Preload("InvitedUser").
		Where("list_id = ?", listID).
		Order("created_at DESC").
		Find(&members).Error
	return members, err
}

// ListByUser 获取用户被邀请的清单（预加载清单）
func (r *MembershipRepository) ListByUser(ctx context.Context, userID int) ([]*model.ListMembership, error) {
	var members []*model.ListMembership
	err := r.db.WithContext(ctx).
		Preload("List").
		Where("invited_user_id = ?", userID).
		Order("created_at DESC").
		Find(&members).Error
	return members, err
}
