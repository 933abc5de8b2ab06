package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/middleware"
)

// CookiePolicy sets the session cookies. Production cookies are Secure and
// usable cross-site; elsewhere they are SameSite=Lax over plain HTTP.
type CookiePolicy struct {
	Production bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (p CookiePolicy) setAccess(c *gin.Context, token string) {
	p.set(c, middleware.AccessCookieName, token, p.AccessTTL)
}

func (p CookiePolicy) setRefresh(c *gin.Context, token string) {
	p.set(c, middleware.RefreshCookieName, token, p.RefreshTTL)
}

func (p CookiePolicy) clear(c *gin.Context) {
	for _, name := range []string{middleware.AccessCookieName, middleware.RefreshCookieName} {
		http.SetCookie(c.Writer, p.cookie(name, "", -1))
	}
}

func (p CookiePolicy) set(c *gin.Context, name, value string, ttl time.Duration) {
	http.SetCookie(c.Writer, p.cookie(name, value, int(ttl/time.Second)))
}

func (p CookiePolicy) cookie(name, value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if p.Production {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}
