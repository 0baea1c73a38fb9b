package handlers

import (
	"github.com/gin-gonic/gin"

	"mingshilin.com/app/internal/http/middleware"
	"mingshilin.com/app/internal/shared/apperr"
	"mingshilin.com/app/internal/wechatpay"
)

type AuthHandler struct {
	Login *wechatpay.LoginClient
}

func NewAuthHandler(login *wechatpay.LoginClient) *AuthHandler {
	return &AuthHandler{Login: login}
}

type loginInput struct {
	Code string `json:"code" binding:"required"`
}

// POST /api/auth/login: exchange the mini-program login code for openid.
func (h *AuthHandler) LoginPost(c *gin.Context) {
	var in loginInput
	if !bindJSON(c, &in) {
		return
	}

	session, err := h.Login.Login(c.Request.Context(), in.Code)
	if err != nil {
		middleware.Fail(c, apperr.GatewayErr("Login failed.", err))
		return
	}

	OK(c, gin.H{
		"openid":     session.OpenID,
		"sessionKey": session.SessionKey,
	}, "登录成功")
}
