package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/utils"
)

// DefaultListTitle 未指定清单时使用的默认清单标题
const DefaultListTitle = "Watchlist"

const (
	msgListDenied = "List not found or access denied"
	msgAddFailed  = "Failed to add to watchlist."
)

// Ingestor 将 TMDB 电影加入清单
type Ingestor struct {
	stores         Stores
	metadata       MetadataClient
	defaultPrivate bool
	logger         *log.Logger
}

func NewIngestor(stores Stores, metadata MetadataClient, defaultPrivate bool) *Ingestor {
	return &Ingestor{
		stores:         stores,
		metadata:       metadata,
		defaultPrivate: defaultPrivate,
		logger:         utils.NewLogger("Ingest"),
	}
}

// AddMovieToWatchlist targetListID 为空时加入调用者的默认清单（不存在则创建）。
// 同一部电影在同一清单中只会出现一次，重复添加返回提示而不是错误。
func (s *Ingestor) AddMovieToWatchlist(ctx context.Context, caller Caller, tmdbID, targetListID string) (string, error) {
	if !caller.IsAuthenticated {
		return "", AuthRequired("You must be logged in.")
	}
	tmdbID = strings.TrimSpace(tmdbID)
	if tmdbID == "" {
		return "", Validation("Movie ID is missing.")
	}

	meta, err := s.metadata.GetMovie(ctx, tmdbID)
	if err != nil || meta == nil {
		s.logger.Warn("获取 TMDB 电影详情失败", "tmdb_id", tmdbID, "err", err)
		return "", Upstream("Failed to fetch movie details from TMDB.")
	}

	list, err := s.resolveList(ctx, caller, strings.TrimSpace(targetListID))
	if err != nil {
		return "", s.internal(err, "resolve list", tmdbID)
	}

	movie, err := s.findOrCreateMovie(ctx, tmdbID, meta)
	if err != nil {
		return "", s.internal(err, "find or create movie", tmdbID)
	}

	existing, err := s.stores.History.FindByListAndMovie(ctx, list.ID, movie.ID)
	if err != nil {
		return "", s.internal(err, "find history item", tmdbID)
	}
	if existing != nil {
		return alreadyInList(movie.Title), nil
	}

	item := &model.WatchedHistoryItem{
		ListID:    list.ID,
		MovieID:   movie.ID,
		WatchedAt: time.Now(),
	}
	if meta.VoteAverage > 0 {
		score := meta.VoteAverage
		item.TMDBScore = &score
	}
	if err := s.stores.History.Create(ctx, item); err != nil {
		if isDuplicate(err) {
			return alreadyInList(movie.Title), nil
		}
		return "", s.internal(err, "create history item", tmdbID)
	}

	InvalidateHome()
	return fmt.Sprintf(`"%s" added to watchlist!`, movie.Title), nil
}

func alreadyInList(title string) string {
	return fmt.Sprintf(`"%s" is already in that watchlist.`, title)
}

// internal 业务错误原样返回，其余记录日志后转换为统一提示
func (s *Ingestor) internal(err error, op, tmdbID string) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	s.logger.Error("加入清单失败", "op", op, "tmdb_id", tmdbID, "err", err)
	return Internal(msgAddFailed)
}

func (s *Ingestor) resolveList(ctx context.Context, caller Caller, targetListID string) (*model.List, error) {
	if targetListID == "" {
		return s.defaultList(ctx, caller.ID)
	}

	id := ParseID(targetListID)
	if id == 0 {
		return nil, AccessDenied(msgListDenied)
	}
	list, err := s.stores.Lists.FindActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, AccessDenied(msgListDenied)
	}
	if list.OwnerID == caller.ID {
		return list, nil
	}

	m, err := s.stores.Memberships.Find(ctx, list.ID, caller.ID)
	if err != nil {
		s.logger.Warn("查询成员关系失败，按无权限处理", "list", list.ID, "user", caller.ID, "err", err)
		return nil, AccessDenied(msgListDenied)
	}
	if m == nil {
		return nil, AccessDenied(msgListDenied)
	}
	return list, nil
}

// defaultList 默认清单由 default_owner_id 唯一索引保证每个用户只有一个
func (s *Ingestor) defaultList(ctx context.Context, ownerID int) (*model.List, error) {
	list, err := s.stores.Lists.FindByOwnerAndTitle(ctx, ownerID, DefaultListTitle)
	if err != nil || list != nil {
		return list, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		owner := ownerID
		list = &model.List{
			Title:          DefaultListTitle,
			OwnerID:        ownerID,
			IsPrivate:      s.defaultPrivate,
			DefaultOwnerID: &owner,
		}
		err = s.stores.Lists.Create(ctx, list)
		if err == nil {
			return list, nil
		}
		if !isDuplicate(err) {
			return nil, err
		}

		// 已存在默认清单：并发创建，或者原默认清单已删除/改名
		current, err := s.stores.Lists.FindDefault(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			continue
		}
		if !current.IsDeleted && current.Title == DefaultListTitle {
			return current, nil
		}
		// 已删除或已改名的清单不再作为默认清单
		if err := s.stores.Lists.ReleaseDefault(ctx, current.ID); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("create default list for user %d: retries exhausted", ownerID)
}

// findOrCreateMovie 电影按 tmdb_id 全局唯一
func (s *Ingestor) findOrCreateMovie(ctx context.Context, tmdbID string, meta *model.MovieMetadata) (*model.Movie, error) {
	movie, err := s.stores.Movies.FindByTMDBID(ctx, tmdbID)
	if err != nil || movie != nil {
		return movie, err
	}

	movie = MovieFromMetadata(tmdbID, meta)
	err = s.stores.Movies.Create(ctx, movie)
	if err == nil {
		return movie, nil
	}
	if !isDuplicate(err) {
		return nil, err
	}

	movie, err = s.stores.Movies.FindByTMDBID(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %s conflicted but not found", tmdbID)
	}
	return movie, nil
}

// MovieFromMetadata 缺失字段使用默认值
func MovieFromMetadata(tmdbID string, meta *model.MovieMetadata) *model.Movie {
	m := &model.Movie{
		TMDBID:           tmdbID,
		Title:            meta.Title,
		OriginalTitle:    meta.OriginalTitle,
		OriginalLanguage: meta.OriginalLanguage,
		ReleaseDate:      meta.ReleaseDate,
		Runtime:          meta.Runtime,
		PosterPath:       meta.PosterPath,
		BackdropPath:     meta.BackdropPath,
		Overview:         meta.Overview,
		Tagline:          meta.Tagline,
		IMDbID:           meta.IMDbID,
		Homepage:         meta.Homepage,
		Status:           meta.Status,
		Adult:            meta.Adult,
	}
	if m.Title == "" {
		m.Title = "Unknown"
	}
	if m.OriginalLanguage == "" {
		m.OriginalLanguage = "en"
	}
	if m.Status == "" {
		m.Status = "Released"
	}
	if m.Runtime < 0 {
		m.Runtime = 0
	}
	return m
}
