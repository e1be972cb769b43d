package model

import (
	"time"
)

// MovieEntry 清单详情页 / 分页接口中的一行（电影 + 观影记录）
type MovieEntry struct {
	ID             int                       `json:"id"`
	TMDBID         string                    `json:"tmdb_id"`
	Title          string                    `json:"title"`
	ReleaseDate    string                    `json:"release_date"`
	Runtime        int                       `json:"runtime"`
	PosterPath     string                    `json:"poster_path"`
	BackdropPath   string                    `json:"backdrop_path"`
	Overview       string                    `json:"overview"`
	Tagline        string                    `json:"tagline"`
	IMDbID         string                    `json:"imdb_id"`
	Status         string                    `json:"status"`
	HistoryID      int                       `json:"history_id"`
	HistoryCreated time.Time                 `json:"history_created"`
	WatchedAt      time.Time                 `json:"watched_at"`
	TMDBScore      float64                   `json:"tmdb_score"`
	IMDbScore      float64                   `json:"imdb_score"`
	RTScore        int                       `json:"rt_score"`
	Attendance     map[int]AttendanceSummary `json:"attendance,omitempty"`
}

// NewMovieEntry 由观影记录（需预加载 Movie）生成视图行
func NewMovieEntry(h *WatchedHistoryItem) *MovieEntry {
	if h == nil || h.Movie == nil {
		return nil
	}
	m := h.Movie
	e := &MovieEntry{
		ID:             m.ID,
		TMDBID:         m.TMDBID,
		Title:          m.Title,
		ReleaseDate:    m.ReleaseDate,
		Runtime:        m.Runtime,
		PosterPath:     m.PosterPath,
		BackdropPath:   m.BackdropPath,
		Overview:       m.Overview,
		Tagline:        m.Tagline,
		IMDbID:         m.IMDbID,
		Status:         m.Status,
		HistoryID:      h.ID,
		HistoryCreated: h.CreatedAt,
		WatchedAt:      h.WatchedAt,
	}
	if h.TMDBScore != nil {
		e.TMDBScore = *h.TMDBScore
	}
	if h.IMDbScore != nil {
		e.IMDbScore = *h.IMDbScore
	}
	if h.RTScore != nil {
		e.RTScore = *h.RTScore
	}
	return e
}

// AttendanceSummary 单个用户对一条记录的评分摘要
type AttendanceSummary struct {
	ID      int       `json:"id"`
	Rating  float64   `json:"rating"`
	Review  string    `json:"review"`
	Failed  bool      `json:"failed"`
	Created time.Time `json:"created"`
}

// ListMember 清单成员展示
type ListMember struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	IsOwner bool   `json:"is_owner"`
}

// InviteCandidate 可邀请用户
type InviteCandidate struct {
	ID                int    `json:"id"`
	Email             string `json:"email"`
	IsInvited         bool   `json:"is_invited"`
	CurrentPermission string `json:"current_permission"`
}

// ListCount 清单电影数量统计（分组查询结果）
type ListCount struct {
	ListID int   `json:"list_id"`
	Count  int64 `json:"count"`
}

// RecentMovie 首页最近观看
type RecentMovie struct {
	ID         int       `json:"id"`
	TMDBID     string    `json:"tmdb_id"`
	Title      string    `json:"title"`
	PosterPath string    `json:"poster_path"`
	WatchedAt  time.Time `json:"watched_at"`
}

// TopList 首页热门清单
type TopList struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Count       int64    `json:"count"`
	Posters     []string `json:"posters"`
}

const (
	ActivityAdd    = "add"
	ActivityRating = "rating"
	ActivityReview = "review"
)

// ActivityItem 首页动态
type ActivityItem struct {
	Type         string    `json:"type"`
	Created      time.Time `json:"created"`
	MovieTitle   string    `json:"movie_title"`
	MovieID      string    `json:"movie_id"`
	ListTitle    string    `json:"list_title,omitempty"`
	ListID       int       `json:"list_id,omitempty"`
	UserName     string    `json:"user_name,omitempty"`
	UserInitials string    `json:"user_initials,omitempty"`
	Rating       float64   `json:"rating,omitempty"` // 0-5 展示刻度
	Review       string    `json:"review,omitempty"`
}

// HomeFeed 首页聚合数据
type HomeFeed struct {
	RecentMovies   []RecentMovie  `json:"recent_movies"`
	TopLists       []TopList      `json:"top_lists"`
	RecentActivity []ActivityItem `json:"recent_activity"`
}
