package wechatpay

import (
	"fmt"
	"os"
)

const (
	EnvSandbox = "sandbox"
	EnvLive    = "live"
)

type Config struct {
	AppID     string
	MchID     string
	APIKey    string // shared signing secret
	NotifyURL string
	Env       string // sandbox|live

	UnifiedOrderURL string
	OrderQueryURL   string
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		AppID:           os.Getenv("WECHAT_APPID"),
		MchID:           os.Getenv("WECHAT_MCHID"),
		APIKey:          os.Getenv("WECHAT_API_KEY"),
		NotifyURL:       os.Getenv("PAYMENT_NOTIFY_URL"),
		Env:             envOr("PAYMENT_ENV", EnvSandbox),
		UnifiedOrderURL: envOr("WECHAT_UNIFIEDORDER_URL", "https://api.mch.weixin.qq.com/pay/unifiedorder"),
		OrderQueryURL:   envOr("WECHAT_ORDERQUERY_URL", "https://api.mch.weixin.qq.com/pay/orderquery"),
	}
	if cfg.Env == EnvSandbox && cfg.APIKey == "" {
		// sandbox still signs; give it a deterministic key
		cfg.APIKey = "sandbox-api-key"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails fast: a live merchant without a signing key is a
// configuration error, not something to discover on the first payment.
func (c Config) Validate() error {
	if c.Env != EnvSandbox && c.Env != EnvLive {
		return fmt.Errorf("wechatpay: unknown PAYMENT_ENV %q", c.Env)
	}
	if c.Env == EnvLive {
		if c.AppID == "" || c.MchID == "" {
			return fmt.Errorf("wechatpay: WECHAT_APPID and WECHAT_MCHID required in live mode")
		}
		if c.APIKey == "" {
			return fmt.Errorf("wechatpay: WECHAT_API_KEY required in live mode")
		}
		if c.NotifyURL == "" {
			return fmt.Errorf("wechatpay: PAYMENT_NOTIFY_URL required in live mode")
		}
	}
	if c.APIKey == "" {
		return fmt.Errorf("wechatpay: signing key must not be empty")
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
