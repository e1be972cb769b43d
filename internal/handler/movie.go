package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/cinelog/internal/middleware"
	"github.com/user/cinelog/internal/model"
	"github.com/user/cinelog/internal/service"
)

// MovieSearch TMDB 搜索，登录用户同时返回可添加的清单
func (h *Handler) MovieSearch(c *gin.Context) {
	ctx := c.Request.Context()
	query := strings.TrimSpace(c.Query("q"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	data := gin.H{
		"Title": h.title("Search"),
		"Query": query,
		"Page":  page,
	}
	if query != "" {
		data["Title"] = h.title(query, "Search")
	}

	results := &model.SearchPage{Page: page, Results: []model.SearchMovie{}}
	if query != "" {
		res, err := h.Metadata.SearchMovies(ctx, query, page)
		if err != nil {
			h.logger.Error("TMDB 搜索失败", "q", query, "err", err)
			data["Error"] = "Movie search is unavailable right now."
		} else {
			results = res
		}
	}
	data["Results"] = results
	data["HasPrev"] = page > 1
	data["HasNext"] = page < results.TotalPages

	caller := middleware.GetCaller(c)
	if caller.IsAuthenticated {
		lists, err := h.Watchlists.ListForUser(ctx, caller)
		if err != nil {
			h.logger.Warn("加载清单失败", "user", caller.ID, "err", err)
		}
		data["Lists"] = lists
	}

	c.HTML(http.StatusOK, "search.html", h.RenderData(c, data))
}

// Movie 电影详情（TMDB 详情 + 演职员）
func (h *Handler) Movie(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if service.ParseID(id) == 0 {
		h.NotFound(c)
		return
	}

	movie, err := h.Metadata.GetMovie(ctx, id)
	if errors.Is(err, service.ErrNotFound) {
		h.NotFound(c)
		return
	}
	if err != nil {
		h.logger.Error("获取电影详情失败", "tmdb", id, "err", err)
		c.HTML(http.StatusBadGateway, "movie.html", h.RenderData(c, gin.H{
			"Title": h.title("Movie"),
			"Error": "Failed to load movie details.",
		}))
		return
	}

	credits, err := h.Metadata.GetCredits(ctx, id)
	if err != nil {
		h.logger.Warn("获取演职员失败", "tmdb", id, "err", err)
		credits = &model.Credits{}
	}

	data := gin.H{
		"Title":   h.title(movie.Title),
		"Movie":   movie,
		"Credits": credits,
	}

	caller := middleware.GetCaller(c)
	if caller.IsAuthenticated {
		lists, err := h.Watchlists.ListForUser(ctx, caller)
		if err != nil {
			h.logger.Warn("加载清单失败", "user", caller.ID, "err", err)
		}
		data["Lists"] = lists
	}

	c.HTML(http.StatusOK, "movie.html", h.RenderData(c, data))
}
