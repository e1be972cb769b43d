package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/cinelog/internal/model"
	"gorm.io/gorm"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// FindByID 根据 ID 查找观影记录
func (r *HistoryRepository) FindByID(ctx context.Context, id int) (*model.WatchedHistoryItem, error) {
	var item model.WatchedHistoryItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByListAndMovie 查找清单中的某部电影
func (r *HistoryRepository) FindByListAndMovie(ctx context.Context, listID, movieID int) (*model.WatchedHistoryItem, error) {
	var item model.WatchedHistoryItem
	err := r.db.WithContext(ctx).
		Where("list_id = ? AND movie_id = ?", listID, movieID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create 创建观影记录，(list, movie) 重复时返回 gorm.ErrDuplicatedKey
func (r *HistoryRepository) Create(ctx context.Context, item *model.WatchedHistoryItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Update 更新观看日期与评分
func (r *HistoryRepository) Update(ctx context.Context, item *model.WatchedHistoryItem) error {
	return r.db.WithContext(ctx).Model(item).
		Select("watched_at", "tmdb_score", "imdb_score", "rt_score").
		Updates(item).Error
}

// Delete 删除观影记录及其个人评分
func (r *HistoryRepository) Delete(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("watched_history_id = ?", id).Delete(&model.Attendance{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.WatchedHistoryItem{}, id).Error
	})
}

// ListByList 分页获取清单中的电影（按加入时间倒序）
func (r *HistoryRepository) ListByList(ctx context.Context, listID, limit, offset int) ([]*model.WatchedHistoryItem, error) {
	var items []*model.WatchedHistoryItem
	err := r.db.WithContext(ctx).
		Preload("Movie").
		Where("list_id = ?", listID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	return items, err
}
