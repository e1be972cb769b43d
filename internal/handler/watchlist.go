package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/cinelog/internal/middleware"
	"github.com/user/cinelog/internal/service"
)

// WatchlistsPage 我的清单（GET 列表，POST action=create 新建）
func (h *Handler) WatchlistsPage(c *gin.Context) {
	caller := middleware.GetCaller(c)
	data := gin.H{"Title": h.title("Watchlists")}
	status := http.StatusOK

	if c.Request.Method == http.MethodPost {
		p := h.formParams(c)
		if p.Get("action") == "create" {
			list, err := h.Watchlists.Create(c.Request.Context(), caller, p.Get("list_title"), p.Get("description"), p.Bool("is_public"))
			if err == nil {
				c.Redirect(http.StatusSeeOther, "/watchlists/"+strconv.Itoa(list.ID))
				return
			}
			if service.StatusCode(err) >= http.StatusInternalServerError {
				h.logger.Error("创建清单失败", "user", caller.ID, "err", err)
			}
			data["Error"] = service.Message(err)
			data["Form"] = p
			status = service.StatusCode(err)
		}
	}

	lists, err := h.Watchlists.ListForUser(c.Request.Context(), caller)
	if err != nil {
		h.logger.Error("加载清单失败", "user", caller.ID, "err", err)
		data["Error"] = service.GenericFailureMessage
	}
	data["Lists"] = lists
	data["UserID"] = caller.ID

	c.HTML(status, "watchlists.html", h.RenderData(c, data))
}

// WatchlistPage 清单详情。POST 仅对已登录用户执行 action，成功后重定向或带提示重新渲染。
func (h *Handler) WatchlistPage(c *gin.Context) {
	ctx := c.Request.Context()
	caller := middleware.GetCaller(c)

	access, err := h.Resolver.Resolve(ctx, c.Param("id"), caller)
	if err == nil {
		err = access.Err()
	}
	if err != nil {
		c.HTML(service.StatusCode(err), "watchlist.html", h.RenderData(c, gin.H{
			"Title": h.title("Watchlist"),
			"Error": service.Message(err),
		}))
		return
	}

	data := gin.H{}
	if c.Request.Method == http.MethodPost && caller.IsAuthenticated {
		p := h.formParams(c)
		res := h.Dispatcher.Dispatch(ctx, p.Get("action"), access.List, access.IsOwner, caller, p)
		if res.Redirect != "" {
			c.Redirect(http.StatusSeeOther, res.Redirect)
			return
		}
		data["Message"] = res.Message
		data["Error"] = res.Error
	}

	list := access.List
	data["Title"] = h.title(list.Title)
	data["List"] = list
	data["IsOwner"] = access.IsOwner
	data["UserID"] = caller.ID

	page, err := h.Watchlists.Movies(ctx, list.ID, 1, service.DefaultPageLimit)
	if err == nil {
		err = h.Watchlists.AttachAttendance(ctx, page.Items)
	}
	if err != nil {
		h.logger.Error("加载清单电影失败", "list", list.ID, "err", err)
		data["Error"] = "Failed to load movies for this list."
		page = &service.MoviePage{Page: 1, Limit: service.DefaultPageLimit}
	}
	data["Movies"] = page

	members, err := h.Watchlists.Members(ctx, list)
	if err != nil {
		h.logger.Warn("加载清单成员失败", "list", list.ID, "err", err)
	}
	data["Members"] = members

	candidates, err := h.Watchlists.InviteCandidates(ctx, list, caller, access.IsOwner)
	if err != nil {
		h.logger.Warn("加载可邀请用户失败", "list", list.ID, "err", err)
	}
	data["Users"] = candidates

	c.HTML(http.StatusOK, "watchlist.html", h.RenderData(c, data))
}
