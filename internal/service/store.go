package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/user/cinelog/internal/model"
)

// 以下接口由 repository 包实现，测试中使用 testutil 的内存实现。
// FindXxx 约定：记录不存在时返回 (nil, nil)。

type UserStore interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ListExcept(ctx context.Context, excludeID, limit int) ([]*model.User, error)
	UpdateProfile(ctx context.Context, userID int, name, bio, shortHand, avatar string) error
}

type ListStore interface {
	// FindActive 只返回未删除的清单
	FindActive(ctx context.Context, id int) (*model.List, error)
	FindByOwnerAndTitle(ctx context.Context, ownerID int, title string) (*model.List, error)
	// FindDefault 按 default_owner_id 查找，包括已删除的
	FindDefault(ctx context.Context, ownerID int) (*model.List, error)
	ReleaseDefault(ctx context.Context, listID int) error
	Create(ctx context.Context, list *model.List) error
	Update(ctx context.Context, list *model.List) error
	ListOwned(ctx context.Context, ownerID int) ([]*model.List, error)
}

type MembershipStore interface {
	Find(ctx context.Context, listID, userID int) (*model.ListMembership, error)
	Create(ctx context.Context, m *model.ListMembership) error
	UpdatePermission(ctx context.Context, id int, permission string) error
	Delete(ctx context.Context, id int) error
	ListByList(ctx context.Context, listID int) ([]*model.ListMembership, error)
	// ListByUser 需要预加载 List
	ListByUser(ctx context.Context, userID int) ([]*model.ListMembership, error)
}

type MovieStore interface {
	FindByTMDBID(ctx context.Context, tmdbID string) (*model.Movie, error)
	Create(ctx context.Context, movie *model.Movie) error
}

type HistoryStore interface {
	FindByID(ctx context.Context, id int) (*model.WatchedHistoryItem, error)
	FindByListAndMovie(ctx context.Context, listID, movieID int) (*model.WatchedHistoryItem, error)
	Create(ctx context.Context, item *model.WatchedHistoryItem) error
	Update(ctx context.Context, item *model.WatchedHistoryItem) error
	Delete(ctx context.Context, id int) error
	// ListByList 需要预加载 Movie，按创建时间倒序
	ListByList(ctx context.Context, listID, limit, offset int) ([]*model.WatchedHistoryItem, error)
}

type AttendanceStore interface {
	Find(ctx context.Context, historyID, userID int) (*model.Attendance, error)
	Create(ctx context.Context, a *model.Attendance) error
	Update(ctx context.Context, a *model.Attendance) error
	Delete(ctx context.Context, id int) error
	ListByHistoryIDs(ctx context.Context, historyIDs []int) ([]*model.Attendance, error)
}

type FeedStore interface {
	RecentlyWatched(ctx context.Context, limit int) ([]*model.WatchedHistoryItem, error)
	RecentlyWatchedInList(ctx context.Context, listID, limit int) ([]*model.WatchedHistoryItem, error)
	TopListCounts(ctx context.Context, limit int) ([]model.ListCount, error)
	RecentPublicAdds(ctx context.Context, limit int) ([]*model.WatchedHistoryItem, error)
	RecentPublicReviews(ctx context.Context, limit int) ([]*model.Attendance, error)
}

// Stores 服务层依赖的全部存储
type Stores struct {
	Users       UserStore
	Lists       ListStore
	Memberships MembershipStore
	Movies      MovieStore
	History     HistoryStore
	Attendance  AttendanceStore
	Feed        FeedStore
}

// MetadataClient 电影元数据来源（TMDB）
type MetadataClient interface {
	SearchMovies(ctx context.Context, query string, page int) (*model.SearchPage, error)
	GetMovie(ctx context.Context, tmdbID string) (*model.MovieMetadata, error)
}

// Notifier 实时消息发布
type Notifier interface {
	Publish(topic string, payload interface{}) error
}

// Caller 当前请求的调用者
type Caller struct {
	ID              int
	IsAuthenticated bool
}

// Anonymous 未登录调用者
var Anonymous = Caller{}

// Authenticated 已登录调用者
func Authenticated(id int) Caller {
	return Caller{ID: id, IsAuthenticated: id > 0}
}

// Params 表单参数，区分"未提供"和"空字符串"
type Params map[string]string

// Lookup 返回参数值以及是否提供
func (p Params) Lookup(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Get 去掉首尾空白后的参数值
func (p Params) Get(key string) string {
	return strings.TrimSpace(p[key])
}

// Bool 复选框语义："on"/"true"/"1" 视为真
func (p Params) Bool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// ParseID 解析正整数 ID，失败返回 0
func ParseID(raw string) int {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
