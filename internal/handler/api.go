package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/cinelog/internal/middleware"
	"github.com/user/cinelog/internal/service"
	"github.com/user/cinelog/internal/utils"
)

// realtimeTopicPrefix 允许订阅的主题前缀
const realtimeTopicPrefix = "watch_history_user/"

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	if h.Repos != nil && h.Repos.DB != nil {
		if sqlDB, err := h.Repos.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			utils.Error(c, http.StatusServiceUnavailable, "degraded")
			return
		}
	}
	utils.Success(c, gin.H{"status": "ok"})
}

// AddToWatchlist POST /api/watchlists/add，参数 tmdb_id、watchlist_id（可选）
func (h *Handler) AddToWatchlist(c *gin.Context) {
	caller := middleware.GetCaller(c)
	if !caller.IsAuthenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
		return
	}

	p := h.formParams(c)
	tmdbID := p.Get("tmdb_id")
	if tmdbID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Movie ID is required"})
		return
	}

	msg, err := h.Ingestor.AddMovieToWatchlist(c.Request.Context(), caller, tmdbID, p.Get("watchlist_id"))
	if err != nil {
		c.JSON(service.StatusCode(err), gin.H{"success": false, "error": service.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// WatchlistMovies GET/POST /api/watchlists/movies?listId=&page=&limit=
// POST 先执行 action，再返回当前页数据
func (h *Handler) WatchlistMovies(c *gin.Context) {
	ctx := c.Request.Context()
	caller := middleware.GetCaller(c)

	listID := c.Query("listId")
	var p service.Params
	if c.Request.Method == http.MethodPost {
		p = h.formParams(c)
		if listID == "" {
			listID = p.Get("list_id")
		}
	}
	if strings.TrimSpace(listID) == "" {
		moviesError(c, http.StatusBadRequest, "List ID is required.")
		return
	}

	access, err := h.Resolver.Resolve(ctx, listID, caller)
	if err == nil {
		err = access.Err()
	}
	if err != nil {
		moviesError(c, service.StatusCode(err), service.Message(err))
		return
	}

	body := gin.H{}
	if p != nil && caller.IsAuthenticated {
		res := h.Dispatcher.Dispatch(ctx, p.Get("action"), access.List, access.IsOwner, caller, p)
		if res.Error != "" {
			moviesError(c, http.StatusBadRequest, res.Error)
			return
		}
		if res.Redirect != "" {
			c.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message, "redirect": res.Redirect})
			return
		}
		body["message"] = res.Message
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageLimit)))

	result, err := h.Watchlists.Movies(ctx, access.List.ID, page, limit)
	if err == nil {
		err = h.Watchlists.AttachAttendance(ctx, result.Items)
	}
	if err != nil {
		h.logger.Error("加载清单电影失败", "list", access.List.ID, "err", err)
		moviesError(c, http.StatusInternalServerError, "Failed to load movies.")
		return
	}

	body["success"] = true
	body["movies"] = result.Items
	body["page"] = result.Page
	body["limit"] = result.Limit
	body["hasMore"] = result.HasMore
	body["totalLoaded"] = (result.Page-1)*result.Limit + len(result.Items)
	c.JSON(http.StatusOK, body)
}

func moviesError(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   msg,
		"movies":  []interface{}{},
		"hasMore": false,
	})
}

// Realtime SSE 推送个人评分变化，topic 可重复。只推送调用者能查看的清单上的消息。
func (h *Handler) Realtime(c *gin.Context) {
	caller := middleware.GetCaller(c)
	topics := c.QueryArray("topic")
	if len(topics) == 0 {
		utils.BadRequest(c, "Topic is required.")
		return
	}
	for _, t := range topics {
		if !strings.HasPrefix(t, realtimeTopicPrefix) {
			utils.BadRequest(c, "Unknown topic.")
			return
		}
	}

	sub := h.Hub.Subscribe(topics...)
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"topics": topics})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-sub.C:
			if !ok {
				return false
			}
			if !h.Gate.Allow(ctx, msg, caller) {
				return true
			}
			c.SSEvent("message", msg.Data)
			return true
		}
	})
}
