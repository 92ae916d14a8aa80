package utils

import (
	"net/http"
	"net/url"
	"strings"
)

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}

// percentDecode resolves valid %XX escapes and leaves everything else
// untouched. Unlike url.QueryUnescape it keeps literal '+' characters,
// which band expressions depend on.
func percentDecode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 3
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// splitQueryFields splits on '&' while honouring backslash-escaped
// ampersands inside values.
func splitQueryFields(query string) []string {
	var fields []string
	start := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '&' && (i == 0 || query[i-1] != '\\') {
			fields = append(fields, query[start:i])
			start = i + 1
		}
	}
	return append(fields, query[start:])
}

// ParseQuery parses a raw query string into lowercase-keyed values.
// It exists instead of url.ParseQuery so MEASUREMENTS values can carry
// '&' and '+' operators in derived band expressions. The first decode
// error is reported after the remaining fields are consumed.
func ParseQuery(query string) (url.Values, error) {
	m := make(url.Values)
	var firstErr error

	for _, field := range splitQueryFields(query) {
		if field == "" {
			continue
		}
		key := field
		value := ""
		if i := strings.Index(field, "="); i >= 0 {
			key, value = field[:i], field[i+1:]
			value = strings.Replace(value, `\&`, "&", -1)
		}

		key, err := url.QueryUnescape(key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		key = strings.ToLower(key)

		if key == "measurements" {
			value = percentDecode(value)
		} else {
			value, err = url.QueryUnescape(value)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}

		m[key] = append(m[key], value)
	}
	return m, firstErr
}

// ParseRemoteAddr prefers the X-Forwarded-For header so requests
// arriving through a reverse proxy keep their origin address.
func ParseRemoteAddr(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if len(forwarded) > 0 {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return r.RemoteAddr
}
