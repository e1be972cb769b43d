package repository

import (
	"context"

	"github.com/user/cinelog/internal/model"
	"gorm.io/gorm"
)

// FeedRepository 首页聚合查询（只读）
type FeedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// RecentlyWatched 最近观看的记录（所有清单）
func (r *FeedRepository) RecentlyWatched(ctx context.Context, limit int) ([]*model.WatchedHistoryItem, error) {
	var items []*model.WatchedHistoryItem
	err := r.db.WithContext(ctx).
		Preload("Movie").
		Order("watched_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// RecentlyWatchedInList 某个清单最近观看的记录
func (r *FeedRepository) RecentlyWatchedInList(ctx context.Context, listID, limit int) ([]*model.WatchedHistoryItem, error) {
	var items []*model.WatchedHistoryItem
	err := r.db.WithContext(ctx).
		Preload("Movie").
		Where("list_id = ?", listID).
		Order("watched_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// TopListCounts 公开清单按电影数量排序
func (r *FeedRepository) TopListCounts(ctx context.Context, limit int) ([]model.ListCount, error) {
	var rows []model.ListCount
	err := r.db.WithContext(ctx).
		Table("watched_history AS wh").
		Select("wh.list_id AS list_id, COUNT(*) AS count").
		Joins("JOIN lists l ON l.id = wh.list_id").
		Where("l.is_deleted = ? AND l.is_private = ?", false, false).
		Group("wh.list_id").
		Order("count DESC").
		Order("wh.list_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// RecentPublicAdds 最近加入公开清单的电影
func (r *FeedRepository) RecentPublicAdds(ctx context.Context, limit int) ([]*model.WatchedHistoryItem, error) {
	var items []*model.WatchedHistoryItem
	err := r.db.WithContext(ctx).
		Joins("JOIN lists l ON l.id = watched_history.list_id").
		Where("l.is_deleted = ? AND l.is_private = ?", false, false).
		Preload("Movie").
		Preload("List").
		Order("watched_history.created_at DESC").
		Order("watched_history.id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// RecentPublicReviews 最近的评分/短评（仅公开清单）
func (r *FeedRepository) RecentPublicReviews(ctx context.Context, limit int) ([]*model.Attendance, error) {
	var rows []*model.Attendance
	err := r.db.WithContext(ctx).
		Joins("JOIN watched_history wh ON wh.id = watch_history_users.watched_history_id").
		Joins("JOIN lists l ON l.id = wh.list_id").
		Where("l.is_deleted = ? AND l.is_private = ?", false, false).
		Where("(watch_history_users.review <> '' OR watch_history_users.rating > 0)").
		Preload("User").
		Preload("WatchedHistory.Movie").
		Order("watch_history_users.created_at DESC").
		Order("watch_history_users.id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
