// mocknotify posts a correctly signed payment callback to a running
// server, the way the provider would deliver one. Useful for exercising
// the notify path end to end without a real merchant account.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"mingshilin.com/app/internal/wechatpay"
)

func main() {
	url := flag.String("url", "http://localhost:8080/api/payment/notify", "Notify URL")
	apiKey := flag.String("key", os.Getenv("WECHAT_API_KEY"), "Signing key")
	appID := flag.String("appid", os.Getenv("WECHAT_APPID"), "App id")
	mchID := flag.String("mchid", os.Getenv("WECHAT_MCHID"), "Merchant id")
	orderID := flag.String("order-id", "", "Order id (out_trade_no)")
	txnID := flag.String("transaction-id", fmt.Sprintf("TXN_%d", time.Now().UnixMilli()), "Provider transaction id")
	totalFee := flag.Int("total-fee", 1999, "Amount in minor units")
	resultCode := flag.String("result-code", "SUCCESS", "result_code (SUCCESS or FAIL)")
	corrupt := flag.Bool("corrupt-sign", false, "Send a deliberately broken signature")
	dryRun := flag.Bool("dry-run", false, "Only print the body, don't send")

	flag.Parse()

	if *orderID == "" {
		fmt.Fprintln(os.Stderr, "Error: -order-id is required")
		os.Exit(1)
	}
	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: signing key not provided and WECHAT_API_KEY not set")
		os.Exit(1)
	}

	params := map[string]string{
		"appid":          *appID,
		"mch_id":         *mchID,
		"nonce_str":      wechatpay.NonceStr(32),
		"out_trade_no":   *orderID,
		"transaction_id": *txnID,
		"total_fee":      strconv.Itoa(*totalFee),
		"return_code":    "SUCCESS",
		"result_code":    *resultCode,
		"time_end":       time.Now().Format("20060102150405"),
	}
	params["sign"] = wechatpay.Sign(params, *apiKey)
	if *corrupt {
		params["sign"] = "DEADBEEF" + params["sign"][8:]
	}

	body := wechatpay.EncodeXML(params)
	fmt.Printf("Body: %s\n", body)

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	resp, err := http.Post(*url, "application/xml", strings.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if !strings.Contains(string(respBody), "SUCCESS") {
		os.Exit(1)
	}
}
