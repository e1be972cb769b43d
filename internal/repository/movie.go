package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/cinelog/internal/model"
	"gorm.io/gorm"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByTMDBID 根据 TMDB ID 查找电影
func (r *MovieRepository) FindByTMDBID(ctx context.Context, tmdbID string) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).Where("tmdb_id = ?", tmdbID).First(&movie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// FindByID 根据 ID 查找电影
func (r *MovieRepository) FindByID(ctx context.Context, id int) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).First(&movie, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Create 创建电影，tmdb_id 重复时返回 gorm.ErrDuplicatedKey
func (r *MovieRepository) Create(ctx context.Context, movie *model.Movie) error {
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(movie).Error
}
