package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/cinelog/internal/middleware"
	"github.com/user/cinelog/internal/service"
)

// ProfilePage 个人资料
func (h *Handler) ProfilePage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.Profile.Get(c.Request.Context(), userID)
	if err != nil {
		// Token 有效但用户已不存在
		c.Redirect(http.StatusFound, "/auth/login")
		return
	}

	c.HTML(http.StatusOK, "profile.html", h.RenderData(c, gin.H{
		"Title":   h.title("Profile"),
		"User":    user,
		"Success": c.Query("success") != "",
	}))
}

// ProfileEditPage 编辑资料页面
func (h *Handler) ProfileEditPage(c *gin.Context) {
	user, err := h.Profile.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.Redirect(http.StatusFound, "/auth/login")
		return
	}

	c.HTML(http.StatusOK, "profile_edit.html", h.RenderData(c, gin.H{
		"Title": h.title("Edit profile"),
		"User":  user,
	}))
}

// ProfileUpdate 保存资料
func (h *Handler) ProfileUpdate(c *gin.Context) {
	caller := middleware.GetCaller(c)

	var in service.ProfileInput
	_ = c.ShouldBind(&in)

	user, err := h.Profile.Update(c.Request.Context(), caller, in)
	if err != nil {
		if service.StatusCode(err) >= http.StatusInternalServerError {
			h.logger.Error("更新资料失败", "user", caller.ID, "err", err)
		}
		current, _ := h.Profile.Get(c.Request.Context(), caller.ID)
		c.HTML(service.StatusCode(err), "profile_edit.html", h.RenderData(c, gin.H{
			"Title": h.title("Edit profile"),
			"User":  current,
			"Form":  in,
			"Error": service.Message(err),
		}))
		return
	}

	// 同步 Session 中的展示名
	if err := h.saveSessionUser(c, user); err != nil {
		h.logger.Warn("更新 Session 失败", "user", user.ID, "err", err)
	}
	c.Redirect(http.StatusSeeOther, "/profile?success=1")
}
