package wechatpay

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// EncodeXML renders a flat parameter set as the provider's tag-delimited
// wire body. Values are CDATA-wrapped so literal payloads survive; keys
// are emitted sorted so the output is deterministic. Nesting is never
// produced: the protocol only carries flat maps.
func EncodeXML(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<xml>")
	for _, k := range keys {
		fmt.Fprintf(&b, "<%s><![CDATA[%s]]></%s>", k, params[k], k)
	}
	b.WriteString("</xml>")
	return b.String()
}

// DecodeXML parses a wire body back into a flat parameter set. Provider
// responses are inconsistent about CDATA, so both CDATA and bare element
// bodies are accepted. Markup nested inside a field decodes to its
// literal wrapped text rather than being flattened away.
func DecodeXML(body string) (map[string]string, error) {
	dec := xml.NewDecoder(strings.NewReader(body))

	params := map[string]string{}
	depth := 0
	var field string
	var val strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("wechatpay: malformed wire body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				// root, usually <xml>
			case 2:
				field = t.Name.Local
				val.Reset()
			default:
				val.WriteString("<" + t.Name.Local + ">")
			}
		case xml.CharData:
			if depth >= 2 {
				val.Write(t)
			}
		case xml.EndElement:
			if depth == 2 && field != "" {
				params[field] = val.String()
				field = ""
			} else if depth > 2 {
				val.WriteString("</" + t.Name.Local + ">")
			}
			depth--
		}
	}

	if len(params) == 0 {
		return nil, fmt.Errorf("wechatpay: wire body contains no fields")
	}
	return params, nil
}
