package wechatpay

import (
	"context"
	"strconv"
	"sync"
)

// SandboxGateway synthesizes provider behavior locally: unified orders
// always succeed with a fake prepay id, and queries report SUCCESS only
// for orders explicitly marked paid (by the mock-success path or tests).
type SandboxGateway struct {
	cfg Config

	mu   sync.Mutex
	paid map[string]sandboxPayment // orderID -> state
}

type sandboxPayment struct {
	transactionID string
	totalFee      int
}

func NewSandboxGateway(cfg Config) *SandboxGateway {
	return &SandboxGateway{cfg: cfg, paid: map[string]sandboxPayment{}}
}

func (g *SandboxGateway) UnifiedOrder(_ context.Context, req UnifiedOrderRequest) (UnifiedOrderResult, error) {
	prepayID := "mock_prepay_" + NonceStr(16)
	return UnifiedOrderResult{
		PrepayID: prepayID,
		Params:   MiniProgramParams(g.cfg, prepayID),
		MockMode: true,
		Raw: map[string]string{
			"return_code":  "SUCCESS",
			"result_code":  "SUCCESS",
			"prepay_id":    prepayID,
			"out_trade_no": req.OrderID,
			"total_fee":    strconv.Itoa(req.Amount),
		},
	}, nil
}

func (g *SandboxGateway) QueryOrder(_ context.Context, orderID string) (QueryResult, error) {
	g.mu.Lock()
	p, ok := g.paid[orderID]
	g.mu.Unlock()

	if !ok {
		return QueryResult{Success: true, TradeState: "NOTPAY"}, nil
	}
	return QueryResult{
		Success:       true,
		TradeState:    "SUCCESS",
		TransactionID: p.transactionID,
		TotalFee:      p.totalFee,
	}, nil
}

// MarkPaid flips an order to paid on the provider side, so a subsequent
// QueryOrder reconciles it. Used by the mock-success endpoint and tests.
func (g *SandboxGateway) MarkPaid(orderID, transactionID string, totalFee int) {
	g.mu.Lock()
	g.paid[orderID] = sandboxPayment{transactionID: transactionID, totalFee: totalFee}
	g.mu.Unlock()
}
