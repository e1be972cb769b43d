package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/user/cinelog/internal/middleware"
	"github.com/user/cinelog/internal/model"
	"gorm.io/gorm"
)

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
	Redirect string `form:"redirect"`
}

type registerForm struct {
	Email           string `form:"email" binding:"required,email"`
	Username        string `form:"username" binding:"omitempty,min=2,max=30"`
	Password        string `form:"password" binding:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}

// registerError 将校验错误转换为页面提示
func registerError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Please fill in all required fields."
	}
	switch verrs[0].Field() {
	case "Email":
		return "Please enter a valid email address."
	case "Username":
		return "Username must be 2-30 characters."
	case "Password":
		return "Password must be at least 8 characters."
	case "ConfirmPassword":
		return "Passwords do not match."
	}
	return "Please fill in all required fields."
}

// safeRedirect 只允许站内跳转
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

// LoginPage 登录页面
func (h *Handler) LoginPage(c *gin.Context) {
	if middleware.GetUserID(c) > 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", h.RenderData(c, gin.H{
		"Title":    h.title("Log in"),
		"Redirect": c.Query("redirect"),
	}))
}

// Login 登录处理
func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderLoginError(c, form, "Email and password are required.")
		return
	}

	user, err := h.Repos.User.FindByEmail(c.Request.Context(), form.Email)
	if err != nil {
		h.logger.Error("查询用户失败", "err", err)
	}
	if user == nil || !h.Repos.User.CheckPassword(user, form.Password) {
		h.renderLoginError(c, form, "Invalid email or password.")
		return
	}

	if err := h.signIn(c, user); err != nil {
		h.logger.Error("登录失败", "user", user.ID, "err", err)
		h.renderLoginError(c, form, "Login failed, please try again.")
		return
	}
	c.Redirect(http.StatusFound, safeRedirect(form.Redirect))
}

func (h *Handler) renderLoginError(c *gin.Context, form loginForm, msg string) {
	c.HTML(http.StatusOK, "login.html", h.RenderData(c, gin.H{
		"Title":    h.title("Log in"),
		"Error":    msg,
		"Email":    form.Email,
		"Redirect": form.Redirect,
	}))
}

// RegisterPage 注册页面
func (h *Handler) RegisterPage(c *gin.Context) {
	if middleware.GetUserID(c) > 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "register.html", h.RenderData(c, gin.H{
		"Title": h.title("Sign up"),
	}))
}

// Register 注册处理
func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderRegisterError(c, form, registerError(err))
		return
	}

	email := model.NormalizeEmail(form.Email)
	username := strings.TrimSpace(form.Username)
	if username == "" {
		// 默认截取邮箱 @ 符号前的内容作为用户名
		username = strings.SplitN(email, "@", 2)[0]
	}

	ctx := c.Request.Context()
	if existing, _ := h.Repos.User.FindByEmail(ctx, email); existing != nil {
		h.renderRegisterError(c, form, "This email is already registered.")
		return
	}

	user, err := h.Repos.User.Create(ctx, email, username, form.Password)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		h.renderRegisterError(c, form, "This email or username is already taken.")
		return
	}
	if err != nil {
		h.logger.Error("注册失败", "email", email, "err", err)
		h.renderRegisterError(c, form, "Registration failed, please try again.")
		return
	}

	if err := h.signIn(c, user); err != nil {
		h.logger.Error("注册后登录失败", "user", user.ID, "err", err)
		c.Redirect(http.StatusFound, "/auth/login")
		return
	}
	h.logger.Info("新用户注册", "user", user.ID)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) renderRegisterError(c *gin.Context, form registerForm, msg string) {
	c.HTML(http.StatusOK, "register.html", h.RenderData(c, gin.H{
		"Title":    h.title("Sign up"),
		"Error":    msg,
		"Email":    form.Email,
		"Username": form.Username,
	}))
}

// Logout 登出
func (h *Handler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)

	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()

	c.Redirect(http.StatusFound, "/")
}

// signIn 签发 Token 并写入 Session
func (h *Handler) signIn(c *gin.Context, user *model.User) error {
	token, err := middleware.GenerateToken(user.ID, user.Email, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		return err
	}
	middleware.SetTokenCookie(c, token, h.Config.JWTExpiry)
	return h.saveSessionUser(c, user)
}

func (h *Handler) saveSessionUser(c *gin.Context, user *model.User) error {
	session := sessions.Default(c)
	session.Set("userinfo", model.SessionUser{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Name:     user.DisplayName(),
	})
	return session.Save()
}
