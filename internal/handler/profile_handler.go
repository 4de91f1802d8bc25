package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoka/minhas-obras-sub000/internal/service"
)

type profilePayload struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
}

// ShowMyProfile 返回当前用户的资料。
func (a *API) ShowMyProfile(c *gin.Context) {
	userID, _ := currentUserID(c)

	user, err := a.users.Get(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao carregar perfil")
		return
	}

	payload := userView(user)
	payload["bio"] = user.Bio

	c.JSON(http.StatusOK, gin.H{"user": payload})
}

// UpdateMyProfile 更新当前用户的展示资料。
func (a *API) UpdateMyProfile(c *gin.Context) {
	userID, _ := currentUserID(c)

	var payload profilePayload
	if !bindJSON(c, &payload, "Dados de perfil inválidos") {
		return
	}

	user, err := a.users.UpdateProfile(userID, service.ProfileInput{
		DisplayName: payload.DisplayName,
		Bio:         payload.Bio,
		AvatarURL:   payload.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserInputInvalid) {
			respondError(c, http.StatusBadRequest, "Informe o nome de exibição")
			return
		}
		respondError(c, http.StatusInternalServerError, "Falha ao atualizar perfil")
		return
	}

	view := userView(user)
	view["bio"] = user.Bio

	c.JSON(http.StatusOK, gin.H{"message": "Perfil atualizado", "user": view})
}
