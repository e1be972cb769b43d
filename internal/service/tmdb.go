package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/user/cinelog/internal/config"
	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/utils"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ErrMissingAPIKey 未配置 TMDB_API_KEY
var ErrMissingAPIKey = errors.New("TMDB_API_KEY is not set")

const (
	tmdbTimeout  = 10 * time.Second
	tmdbCacheTTL = 30 * time.Minute
)

// TMDBClient TMDB v3 API 客户端
type TMDBClient struct {
	apiKey  string
	baseURL string
	http    *utils.HTTPClient
	limiter *rate.Limiter
	group   singleflight.Group

	searchCache  *utils.TTLCache[*model.SearchPage]
	movieCache   *utils.TTLCache[*model.MovieMetadata]
	creditsCache *utils.TTLCache[*model.Credits]
	logger       *log.Logger
}

func NewTMDBClient(cfg *config.Config) *TMDBClient {
	rps := cfg.TMDBRateLimit
	if rps <= 0 {
		rps = 20
	}
	return &TMDBClient{
		apiKey:       cfg.TMDBAPIKey,
		baseURL:      strings.TrimRight(cfg.TMDBBaseURL, "/"),
		http:         utils.NewHTTPClient(tmdbTimeout),
		limiter:      rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		searchCache:  utils.NewTTLCache[*model.SearchPage](256, tmdbCacheTTL),
		movieCache:   utils.NewTTLCache[*model.MovieMetadata](512, tmdbCacheTTL),
		creditsCache: utils.NewTTLCache[*model.Credits](256, tmdbCacheTTL),
		logger:       utils.NewLogger("TMDB"),
	}
}

// SearchMovies 按关键字搜索电影，空关键字返回空结果
func (c *TMDBClient) SearchMovies(ctx context.Context, query string, page int) (*model.SearchPage, error) {
	query = strings.TrimSpace(query)
	if page < 1 {
		page = 1
	}
	if query == "" {
		return &model.SearchPage{Page: page, Results: []model.SearchMovie{}}, nil
	}

	key := fmt.Sprintf("%s|%d", strings.ToLower(query), page)
	if cached, ok := c.searchCache.Get(key); ok {
		return cached, nil
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("include_adult", "false")

	var res model.SearchPage
	if err := c.get(ctx, "/search/movie", q, &res); err != nil {
		return nil, err
	}
	if res.Results == nil {
		res.Results = []model.SearchMovie{}
	}
	c.searchCache.Set(key, &res)
	return &res, nil
}

// GetMovie 电影详情，同一 ID 的并发请求只会访问一次 TMDB
func (c *TMDBClient) GetMovie(ctx context.Context, tmdbID string) (*model.MovieMetadata, error) {
	tmdbID = strings.TrimSpace(tmdbID)
	if tmdbID == "" {
		return nil, Validation("Movie ID is missing.")
	}
	if cached, ok := c.movieCache.Get(tmdbID); ok {
		return cached, nil
	}

	val, err, _ := c.group.Do("movie:"+tmdbID, func() (interface{}, error) {
		var m model.MovieMetadata
		if err := c.get(ctx, "/movie/"+url.PathEscape(tmdbID), nil, &m); err != nil {
			return nil, err
		}
		c.movieCache.Set(tmdbID, &m)
		return &m, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.MovieMetadata), nil
}

// GetCredits 演职员表
func (c *TMDBClient) GetCredits(ctx context.Context, tmdbID string) (*model.Credits, error) {
	tmdbID = strings.TrimSpace(tmdbID)
	if tmdbID == "" {
		return nil, Validation("Movie ID is missing.")
	}
	if cached, ok := c.creditsCache.Get(tmdbID); ok {
		return cached, nil
	}

	var credits model.Credits
	if err := c.get(ctx, "/movie/"+url.PathEscape(tmdbID)+"/credits", nil, &credits); err != nil {
		return nil, err
	}
	c.creditsCache.Set(tmdbID, &credits)
	return &credits, nil
}

func (c *TMDBClient) get(ctx context.Context, path string, q url.Values, target interface{}) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("TMDB 限流等待失败: %w", err)
	}

	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	endpoint := c.baseURL + path + "?" + q.Encode()

	start := time.Now()
	err := c.http.GetJSON(ctx, endpoint, target)
	if err == nil {
		c.logger.Debug("请求完成", "path", path, "cost", time.Since(start))
		return nil
	}

	var se *utils.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusNotFound {
			return NotFound("Movie not found.")
		}
		c.logger.Warn("TMDB 返回错误", "path", path, "status", se.StatusCode)
		return fmt.Errorf("TMDB %s: status %d", path, se.StatusCode)
	}
	c.logger.Warn("TMDB 请求失败", "path", path, "err", err)
	return fmt.Errorf("TMDB %s: %w", path, err)
}
