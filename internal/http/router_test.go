package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mingshilin.com/app/internal/http/handlers"
	"mingshilin.com/app/internal/modules/fulfillment"
	"mingshilin.com/app/internal/modules/orders"
	"mingshilin.com/app/internal/modules/payments"
	"mingshilin.com/app/internal/wechatpay"
)

type testApp struct {
	router *gin.Engine
	pay    *payments.Service
	cfg    wechatpay.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := wechatpay.Config{
		AppID:  "wxtest",
		MchID:  "10001",
		APIKey: "secretkey",
		Env:    wechatpay.EnvSandbox,
	}

	orderStore := orders.NewMemoryStore()
	paymentStore := payments.NewMemoryStore()
	gateway := wechatpay.NewSandboxGateway(cfg)
	dispatcher := fulfillment.NewDispatcher("https://storage.example.com", logger)

	orderSvc := orders.NewService(orderStore, logger)
	paySvc := payments.NewService(orderStore, paymentStore, gateway, cfg, dispatcher, logger)

	router := NewRouter(logger, Deps{
		Orders:   handlers.NewOrdersHandler(orderSvc),
		Payments: handlers.NewPaymentsHandler(paySvc),
		Forest:   handlers.NewForestHandler(),
		Images:   handlers.NewImagesHandler("https://storage.example.com"),
		Auth:     handlers.NewAuthHandler(wechatpay.NewLoginClient(cfg.AppID)),
	})

	return &testApp{router: router, pay: paySvc, cfg: cfg}
}

func (a *testApp) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Fields  map[string]any  `json:"fields"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestSandboxPaymentFlow(t *testing.T) {
	app := newTestApp(t)

	// create the order
	w := app.do(http.MethodPost, "/api/orders", gin.H{
		"orderType": "donation",
		"amount":    1999,
		"title":     "认养一棵梧桐树",
		"userId":    "openid-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, 0, env.Code)

	var created struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "pending", created.Status)

	// initiate payment
	w = app.do(http.MethodPost, "/api/payment/unifiedorder", gin.H{"orderId": created.OrderID})
	require.Equal(t, http.StatusOK, w.Code)
	env = decodeEnvelope(t, w)
	require.Equal(t, 0, env.Code)

	var intent struct {
		PaymentID string `json:"paymentId"`
		TimeStamp string `json:"timeStamp"`
		NonceStr  string `json:"nonceStr"`
		Package   string `json:"package"`
		SignType  string `json:"signType"`
		PaySign   string `json:"paySign"`
		MockMode  bool   `json:"mockMode"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &intent))
	assert.True(t, intent.MockMode)
	assert.True(t, wechatpay.Verify(map[string]string{
		"appId":     app.cfg.AppID,
		"timeStamp": intent.TimeStamp,
		"nonceStr":  intent.NonceStr,
		"package":   intent.Package,
		"signType":  intent.SignType,
		"sign":      intent.PaySign,
	}, app.cfg.APIKey))

	// provider callback arrives
	notify := map[string]string{
		"return_code":    "SUCCESS",
		"result_code":    "SUCCESS",
		"out_trade_no":   created.OrderID,
		"transaction_id": "TXN_flow",
		"total_fee":      strconv.Itoa(1999),
		"nonce_str":      wechatpay.NonceStr(32),
	}
	notify["sign"] = wechatpay.Sign(notify, app.cfg.APIKey)

	req := httptest.NewRequest(http.MethodPost, "/api/payment/notify",
		bytes.NewBufferString(wechatpay.EncodeXML(notify)))
	req.Header.Set("Content-Type", "application/xml")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	ack, err := wechatpay.DecodeXML(rec.Body.String())
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", ack["return_code"])

	app.pay.Wait()

	// poll reports the settled state
	w = app.do(http.MethodGet, "/api/payment/query/"+created.OrderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decodeEnvelope(t, w)
	require.Equal(t, 0, env.Code)

	var status struct {
		OrderStatus   string  `json:"orderStatus"`
		PaymentStatus string  `json:"paymentStatus"`
		TransactionID *string `json:"transactionId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "fulfilled", status.OrderStatus)
	assert.Equal(t, "success", status.PaymentStatus)
	require.NotNil(t, status.TransactionID)
	assert.Equal(t, "TXN_flow", *status.TransactionID)

	// the fulfilled order carries its certificate references
	w = app.do(http.MethodGet, "/api/orders/"+created.OrderID, nil)
	env = decodeEnvelope(t, w)
	var fetched struct {
		Fulfillment *struct {
			TreeID         string `json:"treeId"`
			CertificateURL string `json:"certificateUrl"`
		} `json:"fulfillment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	require.NotNil(t, fetched.Fulfillment)
	assert.NotEmpty(t, fetched.Fulfillment.TreeID)
	assert.Contains(t, fetched.Fulfillment.CertificateURL, created.OrderID)
}

func TestMockSuccessFlow(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/orders", gin.H{
		"orderType": "watering",
		"amount":    500,
		"title":     "浇水服务",
		"userId":    "test_user_1",
		"orderDetails": gin.H{
			"treeId": "TREE_42",
		},
	})
	env := decodeEnvelope(t, w)
	require.Equal(t, 0, env.Code)
	var created struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	w = app.do(http.MethodPost, "/api/payment/mock-success/"+created.OrderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decodeEnvelope(t, w)
	require.Equal(t, 0, env.Code)

	app.pay.Wait()

	w = app.do(http.MethodGet, "/api/orders/"+created.OrderID, nil)
	env = decodeEnvelope(t, w)
	var fetched struct {
		Status      string `json:"status"`
		Fulfillment *struct {
			TreeID string `json:"treeId"`
		} `json:"fulfillment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, "fulfilled", fetched.Status)
	require.NotNil(t, fetched.Fulfillment)
	assert.Equal(t, "TREE_42", fetched.Fulfillment.TreeID)
}

func TestCreateOrderValidationEnvelope(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/orders", gin.H{
		"orderType": "teleport",
		"amount":    0,
		"userId":    "u1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, -1, env.Code)
	assert.NotEmpty(t, env.Message)
	assert.NotEmpty(t, env.Fields, "validation failures name the offending fields")
}

func TestPaymentForUnknownOrder(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/payment/unifiedorder", gin.H{"orderId": "ORDER_missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, -1, env.Code)
}

func TestNotifyAlwaysAnswers200(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/payment/notify",
		bytes.NewBufferString("<xml><out_trade_no>ORDER_1</out_trade_no><sign>BOGUS</sign><return_code>SUCCESS</return_code></xml>"))
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "the callback endpoint never uses HTTP status for errors")
	ack, err := wechatpay.DecodeXML(rec.Body.String())
	require.NoError(t, err)
	assert.Equal(t, "FAIL", ack["return_code"])
}

func TestImagesRedirect(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/api/images/images/tree.png", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://storage.example.com/images/images/tree.png", w.Header().Get("Location"))

	w = app.do(http.MethodGet, "/api/images/certificates/ORDER_1.pdf", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://storage.example.com/certificates/ORDER_1.pdf", w.Header().Get("Location"))
}

func TestHealthAndUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, 0, env.Code)

	w = app.do(http.MethodGet, "/api/nonsense", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	env = decodeEnvelope(t, w)
	assert.Equal(t, -1, env.Code)
}

func TestTreePointsRegionFilter(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/api/tree-points?region=别处", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, 0, env.Code)

	var points []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &points))
	assert.Empty(t, points)
}

func TestRequestIDPropagated(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "rid-123")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, "rid-123", rec.Header().Get("X-Request-ID"))
}
