package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/utils"
)

const homeCacheKey = "home:feed"

// 首页各模块条数
const (
	HomeRecentMovies   = 8
	HomeTopLists       = 6
	HomeRecentActivity = 10
)

// InvalidateHome 清单内容变化后清除首页缓存
func InvalidateHome() {
	utils.CacheDelete(homeCacheKey)
}

// FeedService 首页聚合查询（只读）
type FeedService struct {
	feed   FeedStore
	lists  ListStore
	ttl    time.Duration
	logger *log.Logger
}

func NewFeedService(feed FeedStore, lists ListStore, ttl time.Duration) *FeedService {
	return &FeedService{
		feed:   feed,
		lists:  lists,
		ttl:    ttl,
		logger: utils.NewLogger("Feed"),
	}
}

// Home 首页数据，按 ttl 缓存
func (s *FeedService) Home(ctx context.Context) (*model.HomeFeed, error) {
	if s.ttl > 0 {
		if cached, ok := utils.CacheGet(homeCacheKey); ok {
			if feed, ok := cached.(*model.HomeFeed); ok {
				return feed, nil
			}
		}
	}

	recent, err := s.RecentMovies(ctx, HomeRecentMovies)
	if err != nil {
		return nil, err
	}
	top, err := s.TopLists(ctx, HomeTopLists)
	if err != nil {
		return nil, err
	}
	activity, err := s.RecentActivity(ctx, HomeRecentActivity)
	if err != nil {
		return nil, err
	}

	feed := &model.HomeFeed{
		RecentMovies:   recent,
		TopLists:       top,
		RecentActivity: activity,
	}
	if s.ttl > 0 {
		utils.CacheSet(homeCacheKey, feed, s.ttl)
	}
	return feed, nil
}

// RecentMovies 最近观看的 n 部电影（按电影去重）
func (s *FeedService) RecentMovies(ctx context.Context, n int) ([]model.RecentMovie, error) {
	if n <= 0 {
		return []model.RecentMovie{}, nil
	}
	// 多取一些，去重后仍能凑够 n 条
	items, err := s.feed.RecentlyWatched(ctx, n*4)
	if err != nil {
		return nil, fmt.Errorf("recently watched: %w", err)
	}

	seen := make(map[int]bool, len(items))
	out := make([]model.RecentMovie, 0, n)
	for _, h := range items {
		if h.Movie == nil || seen[h.MovieID] {
			continue
		}
		seen[h.MovieID] = true
		out = append(out, model.RecentMovie{
			ID:         h.Movie.ID,
			TMDBID:     h.Movie.TMDBID,
			Title:      h.Movie.Title,
			PosterPath: h.Movie.PosterPath,
			WatchedAt:  h.WatchedAt,
		})
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// TopLists 电影最多的公开清单，每个附带最多 3 张海报
func (s *FeedService) TopLists(ctx context.Context, n int) ([]model.TopList, error) {
	if n <= 0 {
		return []model.TopList{}, nil
	}
	counts, err := s.feed.TopListCounts(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top list counts: %w", err)
	}

	out := make([]model.TopList, 0, len(counts))
	for _, c := range counts {
		list, err := s.lists.FindActive(ctx, c.ListID)
		if err != nil {
			return nil, fmt.Errorf("find list %d: %w", c.ListID, err)
		}
		if list == nil || list.IsPrivate {
			continue
		}

		posters := []string{}
		recent, err := s.feed.RecentlyWatchedInList(ctx, list.ID, 3)
		if err != nil {
			s.logger.Warn("获取清单海报失败", "list", list.ID, "err", err)
		}
		seen := map[string]bool{}
		for _, h := range recent {
			if h.Movie == nil || h.Movie.PosterPath == "" || seen[h.Movie.PosterPath] {
				continue
			}
			seen[h.Movie.PosterPath] = true
			posters = append(posters, h.Movie.PosterPath)
		}

		out = append(out, model.TopList{
			ID:          list.ID,
			Title:       list.Title,
			Description: list.Description,
			Count:       c.Count,
			Posters:     posters,
		})
	}
	return out, nil
}

// RecentActivity 公开清单上的加入与评分动态，按时间倒序合并
func (s *FeedService) RecentActivity(ctx context.Context, n int) ([]model.ActivityItem, error) {
	if n <= 0 {
		return []model.ActivityItem{}, nil
	}
	adds, err := s.feed.RecentPublicAdds(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("recent adds: %w", err)
	}
	reviews, err := s.feed.RecentPublicReviews(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("recent reviews: %w", err)
	}

	out := make([]model.ActivityItem, 0, len(adds)+len(reviews))
	for _, h := range adds {
		if h.Movie == nil {
			continue
		}
		item := model.ActivityItem{
			Type:       model.ActivityAdd,
			Created:    h.CreatedAt,
			MovieTitle: h.Movie.Title,
			MovieID:    h.Movie.TMDBID,
			ListID:     h.ListID,
		}
		if h.List != nil {
			item.ListTitle = h.List.Title
		}
		out = append(out, item)
	}

	for _, a := range reviews {
		if a.WatchedHistory == nil || a.WatchedHistory.Movie == nil {
			continue
		}
		kind := model.ActivityRating
		if a.Review != "" {
			kind = model.ActivityReview
		}
		out = append(out, model.ActivityItem{
			Type:         kind,
			Created:      a.CreatedAt,
			MovieTitle:   a.WatchedHistory.Movie.Title,
			MovieID:      a.WatchedHistory.Movie.TMDBID,
			ListID:       a.WatchedHistory.ListID,
			UserName:     a.User.DisplayName(),
			UserInitials: Initials(a.User),
			Rating:       DisplayRating(a.Rating),
			Review:       a.Review,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// DisplayRating 存储为 0-10，动态中按 0-5 展示
func DisplayRating(r float64) float64 {
	return math.Round(r) / 2
}

// Initials 头像占位字母：short_hand -> name -> "U"
func Initials(u *model.User) string {
	src := ""
	if u != nil {
		src = strings.TrimSpace(u.ShortHand)
		if src == "" {
			src = strings.TrimSpace(u.Name)
		}
	}
	if src == "" {
		return "U"
	}
	runes := []rune(src)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}
