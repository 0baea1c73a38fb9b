package wechatpay

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// UnifiedOrderRequest carries everything the intent-creation call needs.
type UnifiedOrderRequest struct {
	OrderID     string
	Amount      int // minor units
	Description string
	OpenID      string // payer identity
	ClientIP    string
}

// ClientParams are the values the mini-program hands to the pay SDK.
// PaySign is a second signature over exactly these five fields; it is not
// the request signature.
type ClientParams struct {
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"` // "prepay_id=..."
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

type UnifiedOrderResult struct {
	PrepayID string
	Params   ClientParams
	MockMode bool
	Raw      map[string]string
}

type QueryResult struct {
	Success       bool
	TradeState    string // SUCCESS, NOTPAY, CLOSED, ...
	TransactionID string
	TotalFee      int // minor units
	TimeEnd       string
}

// Gateway is the capability boundary to the payment provider. The live
// implementation talks XML over HTTPS; the sandbox one synthesizes
// successful handshakes for test identities.
type Gateway interface {
	UnifiedOrder(ctx context.Context, req UnifiedOrderRequest) (UnifiedOrderResult, error)
	QueryOrder(ctx context.Context, orderID string) (QueryResult, error)
}

// GatewayError covers unreachable provider, timeouts, malformed replies
// and provider-side failure codes. Callers decide whether to retry, fall
// back to the sandbox path, or surface the failure.
type GatewayError struct {
	Op  string // "unifiedorder" | "orderquery"
	Msg string // provider message, if any
	Err error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wechatpay %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("wechatpay %s: %s", e.Op, e.Msg)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// MiniProgramParams derives the client-side pay parameters for a prepay
// id, signed over {appId, timeStamp, nonceStr, package, signType}.
func MiniProgramParams(cfg Config, prepayID string) ClientParams {
	p := ClientParams{
		TimeStamp: strconv.FormatInt(time.Now().Unix(), 10),
		NonceStr:  NonceStr(32),
		Package:   "prepay_id=" + prepayID,
		SignType:  "MD5",
	}
	p.PaySign = Sign(map[string]string{
		"appId":     cfg.AppID,
		"timeStamp": p.TimeStamp,
		"nonceStr":  p.NonceStr,
		"package":   p.Package,
		"signType":  p.SignType,
	}, cfg.APIKey)
	return p
}
