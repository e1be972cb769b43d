package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/cinelog/internal/model"
	"gorm.io/gorm"
)

type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

// FindActive 查找未删除的清单，不存在返回 nil
func (r *ListRepository) FindActive(ctx context.Context, id int) (*model.List, error) {
	var list model.List
	err := r.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// FindByOwnerAndTitle 按所有者和标题查找未删除的清单
func (r *ListRepository) FindByOwnerAndTitle(ctx context.Context, ownerID int, title string) (*model.List, error) {
	var list model.List
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND title = ? AND is_deleted = ?", ownerID, title, false).
		Order("id ASC").
		First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// FindDefault 查找用户的默认清单（包含已删除的）
func (r *ListRepository) FindDefault(ctx context.Context, ownerID int) (*model.List, error) {
	var list model.List
	err := r.db.WithContext(ctx).Where("default_owner_id = ?", ownerID).First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// ReleaseDefault 取消清单的默认标记，以便重新创建默认清单
func (r *ListRepository) ReleaseDefault(ctx context.Context, listID int) error {
	return r.db.WithContext(ctx).Model(&model.List{}).
		Where("id = ?", listID).
		Update("default_owner_id", nil).Error
}

// Create 创建清单
func (r *ListRepository) Create(ctx context.Context, list *model.List) error {
	now := time.Now()
	if list.CreatedAt.IsZero() {
		list.CreatedAt = now
	}
	list.UpdatedAt = now
	return r.db.WithContext(ctx).Create(list).Error
}

// Update 保存标题、描述、隐私与删除标记
func (r *ListRepository) Update(ctx context.Context, list *model.List) error {
	list.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Model(list).
		Select("title", "description", "is_private", "is_deleted", "updated_at").
		Updates(list).Error
}

// ListOwned 获取用户拥有的未删除清单
func (r *ListRepository) ListOwned(ctx context.Context, ownerID int) ([]*model.List, error) {
	var lists []*model.List
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Order("created_at DESC").
		Find(&lists).Error
	return lists, err
}
