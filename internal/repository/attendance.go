package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/cinelog/internal/model"
	"gorm.io/gorm"
)

type AttendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Find 查找用户对某条观影记录的评分
func (r *AttendanceRepository) Find(ctx context.Context, historyID, userID int) (*model.Attendance, error) {
	var a model.Attendance
	err := r.db.WithContext(ctx).
		Where("watched_history_id = ? AND user_id = ?", historyID, userID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create 创建评分，重复时返回 gorm.ErrDuplicatedKey
func (r *AttendanceRepository) Create(ctx context.Context, a *model.Attendance) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	return r.db.WithContext(ctx).Create(a).Error
}

// Update 更新评分、短评与弃剧标记
func (r *AttendanceRepository) Update(ctx context.Context, a *model.Attendance) error {
	a.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Model(a).
		Select("rating", "review", "failed", "updated_at").
		Updates(a).Error
}

// Delete 删除评分
func (r *AttendanceRepository) Delete(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Delete(&model.Attendance{}, id).Error
}

// ListByHistoryIDs 批量获取多条观影记录的评分
func (r *AttendanceRepository) ListByHistoryIDs(ctx context.Context, historyIDs []int) ([]*model.Attendance, error) {
	if len(historyIDs) == 0 {
		return nil, nil
	}
	var rows []*model.Attendance
	err := r.db.WithContext(ctx).
		Where("watched_history_id IN ?", historyIDs).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
