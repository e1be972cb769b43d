package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newAuthRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/me", func(c *gin.Context) {
		caller := GetCaller(c)
		c.JSON(http.StatusOK, gin.H{"id": caller.ID, "auth": caller.IsAuthenticated})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := newAuthRouter(RequireAuth(testSecret))

	t.Run("NoTokenAPI", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("NoTokenPage", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Accept", "text/html")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/auth/login?redirect=%2Fme" {
			t.Errorf("expected redirect to login, got %d %q", w.Code, w.Header().Get("Location"))
		}
	})

	t.Run("ValidCookie", func(t *testing.T) {
		token, err := GenerateToken(7, "a@example.com", testSecret, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != `{"auth":true,"id":7}` {
			t.Errorf("unexpected response %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, _ := GenerateToken(7, "a@example.com", "other", time.Hour)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func TestOptionalAuth(t *testing.T) {
	r := newAuthRouter(OptionalAuth(testSecret))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"auth":false,"id":0}` {
		t.Errorf("anonymous request should pass through, got %d %s", w.Code, w.Body.String())
	}
}

func TestSlidingRefresh(t *testing.T) {
	issued := time.Now().Add(-45 * time.Minute)
	claims := &Claims{
		UserID: 3,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}
	if !shouldRefresh(claims) {
		t.Error("token past half its lifetime should refresh")
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))

	r := newAuthRouter(OptionalAuth(testSecret))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	r.ServeHTTP(w, req)

	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == TokenCookie && c.Value != "" && c.Value != token {
			found = true
		}
	}
	if !found {
		t.Error("expected a refreshed token cookie")
	}
}
