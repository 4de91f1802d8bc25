package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoka/minhas-obras-sub000/internal/service"
)

// RequireAdmin 在 RequireUser 之后使用，只放行管理员账号。
func (a *API) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.Redirect(http.StatusFound, "/auth")
			c.Abort()
			return
		}

		user, err := a.users.Get(userID)
		if err != nil || !user.IsAdmin {
			respondError(c, http.StatusForbidden, "Acesso restrito a administradores")
			c.Abort()
			return
		}

		c.Next()
	}
}

// ListUsers 返回全部账号，待审核的排在前面。
func (a *API) ListUsers(c *gin.Context) {
	users, err := a.users.ListUsers()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao listar usuários")
		return
	}

	items := make([]gin.H, 0, len(users))
	for i := range users {
		view := userView(&users[i])
		view["created_at"] = users[i].CreatedAt
		items = append(items, view)
	}

	c.JSON(http.StatusOK, gin.H{"users": items})
}

type moderationPayload struct {
	Blocked bool `json:"blocked"`
}

// SetUserBlocked 由管理员审核账号：blocked=false 表示批准。
func (a *API) SetUserBlocked(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID de usuário inválido")
		return
	}

	var payload moderationPayload
	if !bindJSON(c, &payload, "Dados de moderação inválidos") {
		return
	}

	user, err := a.users.SetBlocked(id, payload.Blocked)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "Usuário não encontrado")
			return
		}
		respondError(c, http.StatusInternalServerError, "Falha ao atualizar usuário")
		return
	}

	message := "Usuário aprovado"
	if user.Blocked {
		message = "Usuário bloqueado"
	}

	c.JSON(http.StatusOK, gin.H{"message": message, "user": userView(user)})
}

// DeleteUser 删除账号及其作品。
func (a *API) DeleteUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID de usuário inválido")
		return
	}

	if current, ok := currentUserID(c); ok && current == id {
		respondError(c, http.StatusBadRequest, "Não é possível remover a própria conta")
		return
	}

	if err := a.users.DeleteUser(id); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "Usuário não encontrado")
			return
		}
		respondError(c, http.StatusInternalServerError, "Falha ao remover usuário")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Usuário removido"})
}

// ShowAnalytics 返回站点访问与作品浏览的汇总报表。
func (a *API) ShowAnalytics(c *gin.Context) {
	limit := parsePositiveInt(c.DefaultQuery("top", "5"), 5)

	overview, err := a.analytics.Overview(limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao carregar estatísticas")
		return
	}

	topObras := make([]gin.H, 0, len(overview.TopObras))
	for _, stat := range overview.TopObras {
		topObras = append(topObras, gin.H{
			"obra_id":    stat.ObraID,
			"title":      stat.Title,
			"view_count": stat.ViewCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_visits":          overview.TotalVisits,
		"total_obra_views":      overview.TotalObraViews,
		"average_dwell_seconds": overview.AverageDwellSeconds,
		"obra_count":            overview.ObraCount,
		"top_obras":             topObras,
	})
}

type settingsPayload struct {
	SiteName         string `json:"site_name"`
	SiteLogoURL      string `json:"site_logo_url"`
	GeoLookupBaseURL string `json:"geo_lookup_base_url"`
}

// ShowSettings 返回系统设置。
func (a *API) ShowSettings(c *gin.Context) {
	settings, err := a.settings.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao carregar configurações")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"site_name":           settings.SiteName,
		"site_logo_url":       settings.SiteLogoURL,
		"geo_lookup_base_url": settings.GeoLookupBaseURL,
	})
}

// UpdateSettings 写入系统设置。
func (a *API) UpdateSettings(c *gin.Context) {
	var payload settingsPayload
	if !bindJSON(c, &payload, "Configurações inválidas") {
		return
	}

	err := a.settings.UpdateSettings(service.SystemSettingsInput{
		SiteName:         payload.SiteName,
		SiteLogoURL:      payload.SiteLogoURL,
		GeoLookupBaseURL: payload.GeoLookupBaseURL,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao salvar configurações")
		return
	}

	// 地址覆盖立即生效，不需要重启
	a.geo.SetBaseURL(payload.GeoLookupBaseURL)

	c.JSON(http.StatusOK, gin.H{"message": "Configurações salvas"})
}
