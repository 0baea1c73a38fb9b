package wechatpay

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
)

// Sign computes the merchant signature over a flat parameter set:
// drop the sign field and empty values, sort keys bytewise, join k=v with
// '&', append '&key=<apiKey>', MD5 over the UTF-8 bytes, uppercase hex.
// MD5 is fixed by the provider protocol.
func Sign(params map[string]string, apiKey string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('&')
	}
	b.WriteString("key=")
	b.WriteString(apiKey)

	sum := md5.Sum([]byte(b.String()))
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}

// Verify recomputes the signature over everything except the received
// sign field and compares exactly. A missing sign never verifies.
func Verify(params map[string]string, apiKey string) bool {
	received, ok := params["sign"]
	if !ok || received == "" {
		return false
	}
	return received == Sign(params, apiKey)
}
