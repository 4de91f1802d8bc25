package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoka/minhas-obras-sub000/internal/access"
)

const (
	sessionCookieName = "mo_session_id"
	userIDSessionKey  = "user_id"
)

// ensureTrackingSessionID 读取或签发匿名会话 Cookie。
// 不设置 MaxAge，使其生命周期与一次浏览会话一致。
func ensureTrackingSessionID(c *gin.Context) string {
	if id, err := c.Cookie(sessionCookieName); err == nil && strings.TrimSpace(id) != "" {
		return id
	}

	sessionID := uuid.NewString()
	secure := c.Request.TLS != nil

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	return sessionID
}

// currentUserID 返回当前登录用户 ID，未登录时第二个返回值为 false。
func currentUserID(c *gin.Context) (uint, bool) {
	session := sessions.Default(c)
	raw := session.Get(userIDSessionKey)
	if raw == nil {
		return 0, false
	}

	id, ok := raw.(uint)
	if !ok {
		return 0, false
	}
	return id, true
}

// RequireUser 要求请求携带已登录的身份，否则跳转到认证页。
func (a *API) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUserID(c); !ok {
			c.Redirect(http.StatusFound, "/auth")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireApproved 在 RequireUser 之后使用，拦截待审核账号。
// 审核标记读取失败时视为不放行并跳转认证页（失败关闭）。
func (a *API) RequireApproved() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.Redirect(http.StatusFound, "/auth")
			c.Abort()
			return
		}

		blocked, err := a.users.IsBlocked(userID)
		if err != nil {
			a.logger.Warn("approval check failed", "user", userID, "error", err)
			c.Redirect(http.StatusFound, "/auth")
			c.Abort()
			return
		}

		if blocked {
			redirectToHolding(c)
			return
		}

		c.Next()
	}
}

// gateExempt 判断请求是否属于导航之外的端点。
// 信标、认证与静态资源对待审核账号保持可用，不经过门禁。
func gateExempt(path string) bool {
	return path == "/ping" ||
		strings.HasPrefix(path, "/api/") ||
		strings.HasPrefix(path, "/auth/") ||
		strings.HasPrefix(path, "/static/")
}

// GateBlockedNavigation 是全局检查：已登录但待审核的账号
// 只能导航到白名单路由，其余导航一律跳转到等待页。
// 挂在引擎上，先于各分组的局部守卫执行，拦住绕过它们的客户端跳转。
func (a *API) GateBlockedNavigation() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if gateExempt(path) {
			c.Next()
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			c.Next()
			return
		}
		if access.IsRouteAllowed(path) {
			c.Next()
			return
		}

		blocked, err := a.users.IsBlocked(userID)
		if err != nil {
			a.logger.Warn("approval check failed", "user", userID, "error", err)
			c.Redirect(http.StatusFound, "/auth")
			c.Abort()
			return
		}

		if blocked {
			redirectToHolding(c)
			return
		}

		c.Next()
	}
}

func redirectToHolding(c *gin.Context) {
	message := access.BlockedMessage(c.Request.URL.Path)
	c.Redirect(http.StatusFound, "/welcome?reason="+url.QueryEscape(message))
	c.Abort()
}

// ShowWelcome 是待审核账号的等待页，回显拦截原因。
func (a *API) ShowWelcome(c *gin.Context) {
	reason := strings.TrimSpace(c.Query("reason"))
	if reason == "" {
		reason = access.FallbackBlockedMessage
	}

	c.JSON(http.StatusOK, gin.H{
		"message": reason,
		"status":  "pending_approval",
		"year":    time.Now().Year(),
	})
}
