package handler

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/cinelog/internal/config"
	"github.com/user/cinelog/internal/middleware"
	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/repository"
	"github.com/user/cinelog/internal/service"
	"github.com/user/cinelog/internal/utils"
)

func init() {
	// 注册 Session 模型
	gob.Register(model.SessionUser{})
}

// MovieSource 电影元数据（搜索、详情、演职员）
type MovieSource interface {
	service.MetadataClient
	GetCredits(ctx context.Context, tmdbID string) (*model.Credits, error)
}

// Handler HTTP 处理器
type Handler struct {
	Repos      *repository.Repositories
	Config     *config.Config
	Metadata   MovieSource
	Hub        *service.Hub
	Resolver   *service.AccessResolver
	Gate       *service.RealtimeGate
	Dispatcher *service.Dispatcher
	Ingestor   *service.Ingestor
	Feed       *service.FeedService
	Watchlists *service.WatchlistService
	Profile    *service.ProfileService

	logger *log.Logger
}

// NewHandler 创建处理器。notifier 为空时实时消息直接发到本地 Hub。
func NewHandler(repos *repository.Repositories, cfg *config.Config, metadata MovieSource, hub *service.Hub, notifier service.Notifier) *Handler {
	stores := NewStores(repos)
	if notifier == nil {
		notifier = hub
	}

	resolver := service.NewAccessResolver(stores.Lists, stores.Memberships)

	return &Handler{
		Repos:      repos,
		Config:     cfg,
		Metadata:   metadata,
		Hub:        hub,
		Resolver:   resolver,
		Gate:       service.NewRealtimeGate(stores.History, resolver),
		Dispatcher: service.NewDispatcher(stores, notifier),
		Ingestor:   service.NewIngestor(stores, metadata, cfg.DefaultListPrivate),
		Feed:       service.NewFeedService(stores.Feed, stores.Lists, cfg.HomeCacheTTL),
		Watchlists: service.NewWatchlistService(stores),
		Profile:    service.NewProfileService(stores.Users),
		logger:     utils.NewLogger("Handler"),
	}
}

// NewStores 将仓库集合适配为服务层存储
func NewStores(repos *repository.Repositories) service.Stores {
	return service.Stores{
		Users:       repos.User,
		Lists:       repos.List,
		Memberships: repos.Membership,
		Movies:      repos.Movie,
		History:     repos.History,
		Attendance:  repos.Attendance,
		Feed:        repos.Feed,
	}
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	res := gin.H{
		"SiteName": h.Config.SiteName,
		"SiteUrl":  h.Config.SiteUrl,
		"Path":     c.Request.URL.Path,
	}

	// 注入用户信息（仅在 Token 有效时）
	if middleware.GetUserID(c) > 0 {
		session := sessions.Default(c)
		if su, ok := session.Get("userinfo").(model.SessionUser); ok && su.ID == middleware.GetUserID(c) {
			res["UserInfo"] = su
		}
	}

	res["ActiveMenu"] = activeMenu(c.Request.URL.Path)

	for k, v := range data {
		res[k] = v
	}
	return res
}

// activeMenu 根据路径判断当前高亮菜单
func activeMenu(path string) string {
	switch {
	case path == "/":
		return "home"
	case strings.HasPrefix(path, "/watchlists"):
		return "watchlists"
	case strings.HasPrefix(path, "/movies"):
		return "movies"
	case strings.HasPrefix(path, "/profile"):
		return "profile"
	default:
		return ""
	}
}

func (h *Handler) title(parts ...string) string {
	return strings.Join(append(parts, h.Config.SiteName), " - ")
}

// Home 首页
func (h *Handler) Home(c *gin.Context) {
	feed, err := h.Feed.Home(c.Request.Context())
	if err != nil {
		h.logger.Error("加载首页数据失败", "err", err)
		feed = &model.HomeFeed{}
	}

	c.HTML(http.StatusOK, "home.html", h.RenderData(c, gin.H{
		"Title": h.title("Home"),
		"Feed":  feed,
	}))
}

// NotFound 404 页面
func (h *Handler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		utils.NotFound(c, "")
		return
	}
	c.HTML(http.StatusNotFound, "404.html", h.RenderData(c, gin.H{
		"Title": h.title("Not Found"),
	}))
}

// formParams 合并表单与 JSON 请求体，取每个字段的第一个值
func (h *Handler) formParams(c *gin.Context) service.Params {
	p := service.Params{}

	if strings.HasPrefix(c.ContentType(), "application/json") {
		var body map[string]interface{}
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			h.logger.Debug("请求体解析失败", "path", c.Request.URL.Path, "err", err)
			return p
		}
		for k, v := range body {
			if v == nil {
				continue
			}
			p[k] = fmt.Sprint(v)
		}
		return p
	}

	// ParseMultipartForm 会先解析普通表单，非 multipart 请求返回 ErrNotMultipart
	if err := c.Request.ParseMultipartForm(8 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Debug("表单解析失败", "path", c.Request.URL.Path, "err", err)
	}
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			p[k] = vs[0]
		}
	}
	return p
}
