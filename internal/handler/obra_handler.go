package handler

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"github.com/jmoka/minhas-obras-sub000/internal/service"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	safe := sanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}

type obraPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
	Status      string `json:"status"`
	SortOrder   int    `json:"sort_order"`
}

func (p obraPayload) toInput() service.ObraInput {
	return service.ObraInput{
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		ImageWidth:  p.ImageWidth,
		ImageHeight: p.ImageHeight,
		Status:      p.Status,
		SortOrder:   p.SortOrder,
	}
}

func obraView(item *db.Obra) gin.H {
	return gin.H{
		"id":           item.ID,
		"user_id":      item.UserID,
		"title":        item.Title,
		"description":  item.Description,
		"image_url":    item.ImageURL,
		"image_width":  item.ImageWidth,
		"image_height": item.ImageHeight,
		"status":       item.Status,
		"sort_order":   item.SortOrder,
		"created_at":   item.CreatedAt,
	}
}

// obraListViews 把作品列表转成响应视图并附上各自的浏览量。
// 浏览量查询失败只影响数字展示，列表照常返回。
func (a *API) obraListViews(c *gin.Context, obras []db.Obra) []gin.H {
	ids := make([]uint, 0, len(obras))
	for i := range obras {
		ids = append(ids, obras[i].ID)
	}

	counts, err := a.analytics.ViewCountMap(ids)
	if err != nil {
		c.Error(err)
		counts = map[uint]int64{}
	}

	items := make([]gin.H, 0, len(obras))
	for i := range obras {
		view := obraView(&obras[i])
		view["view_count"] = counts[obras[i].ID]
		items = append(items, view)
	}
	return items
}

// ShowHome 返回首页数据：最新发布的作品与站点信息。
func (a *API) ShowHome(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	page := parsePositiveInt(c.DefaultQuery("page", "1"), 1)

	result, err := a.obras.List(service.ObraFilter{
		Search:  search,
		Status:  service.ObraStatusPublished,
		Page:    page,
		PerPage: 12,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao carregar obras")
		return
	}

	settings, err := a.settings.GetSettings()
	if err != nil {
		c.Error(err)
	}

	items := a.obraListViews(c, result.Items)

	c.JSON(http.StatusOK, gin.H{
		"site_name":   settings.SiteName,
		"obras":       items,
		"page":        result.Page,
		"total_pages": result.TotalPages,
		"has_more":    result.Page < result.TotalPages,
	})
}

// ShowObraDetail 返回公开的作品详情，描述渲染为净化后的 HTML。
// 浏览记录由客户端挂载时调用 TrackObraView 创建，这里只读。
func (a *API) ShowObraDetail(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID de obra inválido")
		return
	}

	obra, err := a.obras.Get(id)
	if err != nil || obra.Status != service.ObraStatusPublished {
		respondError(c, http.StatusNotFound, "Obra não encontrada")
		return
	}

	descriptionHTML, err := renderMarkdown(obra.Description)
	if err != nil {
		c.Error(err)
		descriptionHTML = ""
	}

	viewCount, err := a.visits.ObraViewCount(obra.ID)
	if err != nil {
		c.Error(err)
	}

	artist, err := a.users.Get(obra.UserID)
	artistName := ""
	if err == nil {
		artistName = artist.DisplayName
	}

	payload := obraView(obra)
	payload["description_html"] = descriptionHTML
	payload["view_count"] = viewCount
	payload["artist_name"] = artistName

	c.JSON(http.StatusOK, gin.H{"obra": payload})
}

// ShowArtist 返回艺术家公开主页：资料与已发布作品。
func (a *API) ShowArtist(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID de artista inválido")
		return
	}

	artist, err := a.users.Get(id)
	if err != nil {
		respondError(c, http.StatusNotFound, "Artista não encontrado")
		return
	}

	page := parsePositiveInt(c.DefaultQuery("page", "1"), 1)
	result, err := a.obras.ListPublishedByArtist(artist.ID, page, 12)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao carregar obras")
		return
	}

	bioHTML, err := renderMarkdown(artist.Bio)
	if err != nil {
		c.Error(err)
		bioHTML = ""
	}

	items := a.obraListViews(c, result.Items)

	c.JSON(http.StatusOK, gin.H{
		"artist": gin.H{
			"id":           artist.ID,
			"display_name": artist.DisplayName,
			"avatar_url":   artist.AvatarURL,
			"bio_html":     bioHTML,
		},
		"obras":       items,
		"page":        result.Page,
		"total_pages": result.TotalPages,
	})
}

// ListMyObras 返回当前用户的全部作品（含草稿）。
func (a *API) ListMyObras(c *gin.Context) {
	userID, _ := currentUserID(c)

	result, err := a.obras.List(service.ObraFilter{
		UserID:  userID,
		Search:  strings.TrimSpace(c.Query("search")),
		Status:  strings.TrimSpace(c.Query("status")),
		Page:    parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		PerPage: parsePositiveInt(c.DefaultQuery("per_page", "12"), 12),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao carregar sua galeria")
		return
	}

	items := a.obraListViews(c, result.Items)

	c.JSON(http.StatusOK, gin.H{
		"obras":       items,
		"total":       result.Total,
		"page":        result.Page,
		"total_pages": result.TotalPages,
	})
}

// CreateObra 为当前用户创建作品。
func (a *API) CreateObra(c *gin.Context) {
	userID, _ := currentUserID(c)

	var payload obraPayload
	if !bindJSON(c, &payload, "Dados da obra inválidos") {
		return
	}

	item, err := a.obras.Create(userID, payload.toInput())
	if err != nil {
		respondObraError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Obra criada", "obra": obraView(item)})
}

// UpdateObra 更新当前用户的作品。
func (a *API) UpdateObra(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID de obra inválido")
		return
	}

	var payload obraPayload
	if !bindJSON(c, &payload, "Dados da obra inválidos") {
		return
	}

	item, err := a.obras.Update(id, userID, payload.toInput())
	if err != nil {
		respondObraError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Obra atualizada", "obra": obraView(item)})
}

// DeleteObra 删除当前用户的作品。
func (a *API) DeleteObra(c *gin.Context) {
	userID, _ := currentUserID(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID de obra inválido")
		return
	}

	user, userErr := a.users.Get(userID)
	isAdmin := userErr == nil && user.IsAdmin

	if err := a.obras.Delete(id, userID, isAdmin); err != nil {
		respondObraError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Obra removida"})
}

func respondObraError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrObraNotFound):
		respondError(c, http.StatusNotFound, "Obra não encontrada")
	case errors.Is(err, service.ErrObraNotOwned):
		respondError(c, http.StatusForbidden, "Obra pertence a outro usuário")
	case errors.Is(err, service.ErrObraTitleMissing):
		respondError(c, http.StatusBadRequest, "Informe o título da obra")
	case errors.Is(err, service.ErrObraImageMissing):
		respondError(c, http.StatusBadRequest, "Envie a imagem da obra")
	case errors.Is(err, service.ErrObraStatusInvalid):
		respondError(c, http.StatusBadRequest, "Status da obra inválido")
	default:
		respondError(c, http.StatusInternalServerError, "Falha ao processar obra")
	}
}
