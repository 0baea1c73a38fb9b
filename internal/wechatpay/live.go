package wechatpay

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const gatewayTimeout = 10 * time.Second

// LiveGateway talks to the real provider endpoints. It holds no state
// beyond the resty client; every call is independent and bounded by the
// 10s timeout.
type LiveGateway struct {
	cfg    Config
	client *resty.Client
}

func NewLiveGateway(cfg Config) *LiveGateway {
	return &LiveGateway{
		cfg: cfg,
		client: resty.New().
			SetTimeout(gatewayTimeout).
			SetHeader("Content-Type", "application/xml"),
	}
}

func (g *LiveGateway) UnifiedOrder(ctx context.Context, req UnifiedOrderRequest) (UnifiedOrderResult, error) {
	clientIP := req.ClientIP
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}

	params := map[string]string{
		"appid":            g.cfg.AppID,
		"mch_id":           g.cfg.MchID,
		"nonce_str":        NonceStr(32),
		"body":             req.Description,
		"out_trade_no":     req.OrderID,
		"total_fee":        strconv.Itoa(req.Amount),
		"spbill_create_ip": clientIP,
		"notify_url":       g.cfg.NotifyURL,
		"trade_type":       "JSAPI",
		"openid":           req.OpenID,
	}
	params["sign"] = Sign(params, g.cfg.APIKey)

	result, err := g.post(ctx, "unifiedorder", g.cfg.UnifiedOrderURL, params)
	if err != nil {
		return UnifiedOrderResult{}, err
	}

	if result["return_code"] != "SUCCESS" || result["result_code"] != "SUCCESS" {
		return UnifiedOrderResult{}, &GatewayError{Op: "unifiedorder", Msg: providerMessage(result)}
	}

	prepayID := result["prepay_id"]
	if prepayID == "" {
		return UnifiedOrderResult{}, &GatewayError{Op: "unifiedorder", Msg: "reply missing prepay_id"}
	}

	return UnifiedOrderResult{
		PrepayID: prepayID,
		Params:   MiniProgramParams(g.cfg, prepayID),
		Raw:      result,
	}, nil
}

func (g *LiveGateway) QueryOrder(ctx context.Context, orderID string) (QueryResult, error) {
	params := map[string]string{
		"appid":        g.cfg.AppID,
		"mch_id":       g.cfg.MchID,
		"out_trade_no": orderID,
		"nonce_str":    NonceStr(32),
	}
	params["sign"] = Sign(params, g.cfg.APIKey)

	result, err := g.post(ctx, "orderquery", g.cfg.OrderQueryURL, params)
	if err != nil {
		return QueryResult{}, err
	}

	if result["return_code"] != "SUCCESS" {
		return QueryResult{}, &GatewayError{Op: "orderquery", Msg: providerMessage(result)}
	}

	totalFee, _ := strconv.Atoi(result["total_fee"])
	return QueryResult{
		Success:       true,
		TradeState:    result["trade_state"],
		TransactionID: result["transaction_id"],
		TotalFee:      totalFee,
		TimeEnd:       result["time_end"],
	}, nil
}

func (g *LiveGateway) post(ctx context.Context, op, url string, params map[string]string) (map[string]string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(EncodeXML(params)).
		Post(url)
	if err != nil {
		return nil, &GatewayError{Op: op, Msg: "provider unreachable", Err: err}
	}
	if resp.IsError() {
		return nil, &GatewayError{Op: op, Msg: "provider returned HTTP " + strconv.Itoa(resp.StatusCode())}
	}

	result, err := DecodeXML(resp.String())
	if err != nil {
		return nil, &GatewayError{Op: op, Msg: "malformed provider reply", Err: err}
	}
	return result, nil
}

func providerMessage(result map[string]string) string {
	if m := result["err_code_des"]; m != "" {
		return m
	}
	if m := result["return_msg"]; m != "" {
		return m
	}
	return "provider rejected request"
}
