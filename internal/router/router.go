package router

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/user/cinelog/internal/handler"
	"github.com/user/cinelog/internal/middleware"
	"github.com/user/cinelog/internal/service"
)

// New 创建 Gin 引擎：gzip、Session、模板、中间件与路由
func New(h *handler.Handler, templatesDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// SSE 不能被 gzip 缓冲
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/realtime"})))

	store := cookie.NewStore([]byte(h.Config.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 天
		HttpOnly: true,
		Secure:   h.Config.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("cinelog_session", store))

	r.HTMLRender = LoadTemplates(templatesDir)

	r.Use(middleware.Logger())
	r.Use(middleware.Security())

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	secret := h.Config.AppSecret

	r.GET("/health", h.Health)

	// ==================== 公开页面 ====================
	public := r.Group("/")
	public.Use(middleware.OptionalAuth(secret))
	{
		public.GET("/", h.Home)
		public.GET("/movies/search", h.MovieSearch)
		public.GET("/movies/:id", h.Movie)
		public.GET("/watchlists/:id", h.WatchlistPage)
		public.POST("/watchlists/:id", h.WatchlistPage)
	}

	// ==================== 认证页面 ====================
	auth := r.Group("/auth")
	auth.Use(middleware.OptionalAuth(secret))
	{
		auth.GET("/login", h.LoginPage)
		auth.POST("/login", h.Login)
		auth.GET("/register", h.RegisterPage)
		auth.POST("/register", h.Register)
		auth.POST("/logout", h.Logout)
	}

	// ==================== 需要登录 ====================
	user := r.Group("/")
	user.Use(middleware.RequireAuth(secret))
	{
		user.GET("/watchlists", h.WatchlistsPage)
		user.POST("/watchlists", h.WatchlistsPage)
		user.GET("/profile", h.ProfilePage)
		user.GET("/profile/edit", h.ProfileEditPage)
		user.POST("/profile/edit", h.ProfileUpdate)
	}

	// ==================== JSON API ====================
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(secret))
	{
		api.POST("/watchlists/add", h.AddToWatchlist)
		api.GET("/watchlists/movies", h.WatchlistMovies)
		api.POST("/watchlists/movies", h.WatchlistMovies)
	}
	r.GET("/api/realtime", middleware.RequireAuth(secret), h.Realtime)

	r.NoRoute(middleware.OptionalAuth(secret), h.NotFound)
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
func LoadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	partials, err := filepath.Glob(templatesDir + "/partials/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(partials)+1)
		files = append(files, layouts...)
		files = append(files, partials...)
		files = append(files, view)
		return files
	}

	for _, page := range pages {
		viewPath := templatesDir + "/pages/" + page + ".html"
		r.AddFromFilesFuncs(page+".html", funcMap, assemble(viewPath)...)
	}

	return r
}

// 注册的页面模板
var pages = []string{
	"home", "404",
	"login", "register",
	"watchlists", "watchlist",
	"search", "movie",
	"profile", "profile_edit",
}

// 模板函数
var funcMap = template.FuncMap{
	"dict": func(values ...interface{}) (map[string]interface{}, error) {
		if len(values)%2 != 0 {
			return nil, fmt.Errorf("invalid dict call")
		}
		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings")
			}
			dict[key] = values[i+1]
		}
		return dict, nil
	},
	"default": func(defaultValue, value interface{}) interface{} {
		switch v := value.(type) {
		case string:
			if v == "" {
				return defaultValue
			}
		case int:
			if v == 0 {
				return defaultValue
			}
		case nil:
			return defaultValue
		}
		return value
	},
	// 评分存储为 0-10，页面按 5 星展示
	"stars": service.DisplayRating,
	"initials": func(name string) string {
		name = strings.TrimSpace(name)
		if name == "" {
			return "?"
		}
		return strings.ToUpper(string([]rune(name)[:1]))
	},
	"poster": func(path string) string {
		if path == "" {
			return ""
		}
		if strings.HasPrefix(path, "http") {
			return path
		}
		return "https://image.tmdb.org/t/p/w342" + path
	},
	"year": func(date string) string {
		if len(date) >= 4 {
			return date[:4]
		}
		return ""
	},
	"add": func(a, b int) int { return a + b },
}
