package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"github.com/jmoka/minhas-obras-sub000/internal/service"
)

type registerPayload struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func userView(user *db.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"display_name": user.DisplayName,
		"avatar_url":   user.AvatarURL,
		"is_admin":     user.IsAdmin,
		"blocked":      user.Blocked,
	}
}

// Register 创建新账号。新账号处于待审核状态，仅能访问白名单路由。
func (a *API) Register(c *gin.Context) {
	var payload registerPayload
	if !bindJSON(c, &payload, "Dados de cadastro inválidos") {
		return
	}

	user, err := a.users.Register(payload.Username, payload.Password, payload.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			respondError(c, http.StatusConflict, "Nome de usuário já em uso")
		case errors.Is(err, service.ErrUserInputInvalid):
			respondError(c, http.StatusBadRequest, "Informe usuário e senha")
		default:
			respondError(c, http.StatusInternalServerError, "Falha ao criar conta")
		}
		return
	}

	session := sessions.Default(c)
	session.Set(userIDSessionKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao salvar sessão")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Conta criada e aguardando aprovação",
		"user":    userView(user),
	})
}

// Login 处理登录请求。
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload, "Dados de login inválidos") {
		return
	}

	user, err := a.users.Authenticate(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "Usuário ou senha incorretos")
			return
		}
		respondError(c, http.StatusInternalServerError, "Falha ao autenticar")
		return
	}

	session := sessions.Default(c)
	session.Set(userIDSessionKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao salvar sessão")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userView(user)})
}

// Logout 处理登出请求。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/auth")
}

// ShowAuth 是未认证跳转的落点，提示客户端呈现登录界面。
func (a *API) ShowAuth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Autentique-se para continuar"})
}
