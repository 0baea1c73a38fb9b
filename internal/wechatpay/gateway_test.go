package wechatpay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		AppID:     "wxtest",
		MchID:     "10001",
		APIKey:    "secretkey",
		NotifyURL: "https://example.com/api/payment/notify",
		Env:       EnvSandbox,
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.APIKey = ""
	assert.Error(t, cfg.Validate(), "empty signing key must fail fast")

	live := testConfig()
	live.Env = EnvLive
	require.NoError(t, live.Validate())
	live.NotifyURL = ""
	assert.Error(t, live.Validate())
}

func TestMiniProgramParamsSignature(t *testing.T) {
	cfg := testConfig()
	p := MiniProgramParams(cfg, "wx20240828abc")

	assert.Equal(t, "prepay_id=wx20240828abc", p.Package)
	assert.Equal(t, "MD5", p.SignType)
	assert.NotEmpty(t, p.TimeStamp)
	assert.Len(t, p.NonceStr, 32)

	// the pay sign covers exactly these five fields
	recomputed := Sign(map[string]string{
		"appId":     cfg.AppID,
		"timeStamp": p.TimeStamp,
		"nonceStr":  p.NonceStr,
		"package":   p.Package,
		"signType":  p.SignType,
	}, cfg.APIKey)
	assert.Equal(t, recomputed, p.PaySign)
}

func TestLiveGatewayUnifiedOrder(t *testing.T) {
	cfg := testConfig()

	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody, err = DecodeXML(string(buf))
		require.NoError(t, err)

		reply := map[string]string{
			"return_code": "SUCCESS",
			"result_code": "SUCCESS",
			"prepay_id":   "wx20240828abc",
		}
		reply["sign"] = Sign(reply, cfg.APIKey)
		_, _ = w.Write([]byte(EncodeXML(reply)))
	}))
	defer srv.Close()

	cfg.UnifiedOrderURL = srv.URL
	g := NewLiveGateway(cfg)

	res, err := g.UnifiedOrder(context.Background(), UnifiedOrderRequest{
		OrderID:     "ORDER_1",
		Amount:      1999,
		Description: "tree donation",
		OpenID:      "openid-1",
		ClientIP:    "10.0.0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, "wx20240828abc", res.PrepayID)
	assert.False(t, res.MockMode)
	assert.Equal(t, "prepay_id=wx20240828abc", res.Params.Package)

	// request carried the canonical parameter set and a valid signature
	assert.Equal(t, "ORDER_1", gotBody["out_trade_no"])
	assert.Equal(t, "1999", gotBody["total_fee"])
	assert.Equal(t, "JSAPI", gotBody["trade_type"])
	assert.Equal(t, "openid-1", gotBody["openid"])
	assert.Equal(t, "10.0.0.1", gotBody["spbill_create_ip"])
	assert.True(t, Verify(gotBody, cfg.APIKey))
}

func TestLiveGatewayUnifiedOrderProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(EncodeXML(map[string]string{
			"return_code":  "SUCCESS",
			"result_code":  "FAIL",
			"err_code_des": "insufficient balance",
		})))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.UnifiedOrderURL = srv.URL
	g := NewLiveGateway(cfg)

	_, err := g.UnifiedOrder(context.Background(), UnifiedOrderRequest{OrderID: "ORDER_1", Amount: 1})
	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Msg, "insufficient balance")
}

func TestLiveGatewayUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.OrderQueryURL = "http://127.0.0.1:1/orderquery"
	g := NewLiveGateway(cfg)

	_, err := g.QueryOrder(context.Background(), "ORDER_1")
	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "orderquery", gerr.Op)
}

func TestLiveGatewayQueryOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(EncodeXML(map[string]string{
			"return_code":    "SUCCESS",
			"trade_state":    "SUCCESS",
			"transaction_id": "TXN_42",
			"total_fee":      "1999",
		})))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.OrderQueryURL = srv.URL
	g := NewLiveGateway(cfg)

	res, err := g.QueryOrder(context.Background(), "ORDER_1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "SUCCESS", res.TradeState)
	assert.Equal(t, "TXN_42", res.TransactionID)
	assert.Equal(t, 1999, res.TotalFee)
}

func TestSandboxGateway(t *testing.T) {
	g := NewSandboxGateway(testConfig())

	res, err := g.UnifiedOrder(context.Background(), UnifiedOrderRequest{OrderID: "ORDER_1", Amount: 500})
	require.NoError(t, err)
	assert.True(t, res.MockMode)
	assert.NotEmpty(t, res.PrepayID)
	assert.NotEmpty(t, res.Params.PaySign)

	qr, err := g.QueryOrder(context.Background(), "ORDER_1")
	require.NoError(t, err)
	assert.Equal(t, "NOTPAY", qr.TradeState)

	g.MarkPaid("ORDER_1", "TXN_1", 500)
	qr, err = g.QueryOrder(context.Background(), "ORDER_1")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", qr.TradeState)
	assert.Equal(t, "TXN_1", qr.TransactionID)
	assert.Equal(t, 500, qr.TotalFee)
}
