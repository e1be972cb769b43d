package model

import (
	"time"
)

// Movie 电影模型（TMDB 信息，所有清单共享）
type Movie struct {
	ID               int       `json:"id" db:"id"`
	TMDBID           string    `json:"tmdb_id" db:"tmdb_id" gorm:"column:tmdb_id;uniqueIndex;not null"`
	Title            string    `json:"title" db:"title"`
	OriginalTitle    string    `json:"original_title" db:"original_title"`
	OriginalLanguage string    `json:"original_language" db:"original_language"`
	ReleaseDate      string    `json:"release_date" db:"release_date"`
	Runtime          int       `json:"runtime" db:"runtime"`
	PosterPath       string    `json:"poster_path" db:"poster_path"`
	BackdropPath     string    `json:"backdrop_path" db:"backdrop_path"`
	Overview         string    `json:"overview" db:"overview"`
	Tagline          string    `json:"tagline" db:"tagline"`
	IMDbID           string    `json:"imdb_id" db:"imdb_id" gorm:"column:imdb_id"`
	Homepage         string    `json:"homepage" db:"homepage"`
	Status           string    `json:"status" db:"status"`
	Adult            bool      `json:"adult" db:"adult"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// WatchedHistoryItem 清单中的一部电影（观看日期 + 评分）
type WatchedHistoryItem struct {
	ID        int       `json:"id" db:"id"`
	ListID    int       `json:"list_id" db:"list_id" gorm:"uniqueIndex:idx_list_movie;not null"`
	List      *List     `json:"list,omitempty" gorm:"foreignKey:ListID"`
	MovieID   int       `json:"movie_id" db:"movie_id" gorm:"uniqueIndex:idx_list_movie;not null"`
	Movie     *Movie    `json:"movie,omitempty" gorm:"foreignKey:MovieID"`
	WatchedAt time.Time `json:"watched_at" db:"watched_at" gorm:"index"`
	TMDBScore *float64  `json:"tmdb_score" db:"tmdb_score" gorm:"column:tmdb_score"`
	IMDbScore *float64  `json:"imdb_score" db:"imdb_score" gorm:"column:imdb_score"`
	RTScore   *int      `json:"rt_score" db:"rt_score" gorm:"column:rt_score"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"index"`
}

// TableName 观影历史表
func (WatchedHistoryItem) TableName() string {
	return "watched_history"
}

// Attendance 用户对某条观影记录的个人评分/短评
type Attendance struct {
	ID               int                 `json:"id" db:"id"`
	WatchedHistoryID int                 `json:"watch_history" db:"watched_history_id" gorm:"uniqueIndex:idx_history_user;not null"`
	WatchedHistory   *WatchedHistoryItem `json:"-" gorm:"foreignKey:WatchedHistoryID"`
	UserID           int                 `json:"user" db:"user_id" gorm:"uniqueIndex:idx_history_user;not null"`
	User             *User               `json:"-" gorm:"foreignKey:UserID"`
	Rating           float64             `json:"rating" db:"rating"`
	Review           string              `json:"review" db:"review"`
	Failed           bool                `json:"failed" db:"failed"`
	CreatedAt        time.Time           `json:"created" db:"created_at" gorm:"index"`
	UpdatedAt        time.Time           `json:"updated" db:"updated_at"`
}

// TableName 个人评分表
func (Attendance) TableName() string {
	return "watch_history_users"
}
