package wechatpay

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// LoginClient exchanges a mini-program login code for the payer openid
// via the jscode2session endpoint.
type LoginClient struct {
	appID   string
	secret  string
	baseURL string
	client  *resty.Client
}

type LoginSession struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

func NewLoginClient(appID string) *LoginClient {
	return &LoginClient{
		appID:   appID,
		secret:  os.Getenv("WECHAT_SECRET"),
		baseURL: envOr("WECHAT_LOGIN_URL", "https://api.weixin.qq.com/sns/jscode2session"),
		client:  resty.New().SetTimeout(10 * time.Second),
	}
}

func (l *LoginClient) Login(ctx context.Context, code string) (LoginSession, error) {
	var session LoginSession
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"appid":      l.appID,
			"secret":     l.secret,
			"js_code":    code,
			"grant_type": "authorization_code",
		}).
		SetResult(&session).
		ForceContentType("application/json"). // endpoint answers text/plain
		Get(l.baseURL)
	if err != nil {
		return LoginSession{}, &GatewayError{Op: "jscode2session", Msg: "login service unreachable", Err: err}
	}
	if resp.IsError() {
		return LoginSession{}, &GatewayError{Op: "jscode2session", Msg: fmt.Sprintf("login service returned HTTP %d", resp.StatusCode())}
	}
	if session.ErrCode != 0 {
		return LoginSession{}, &GatewayError{Op: "jscode2session", Msg: session.ErrMsg}
	}
	return session, nil
}
