package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
)

// readBody reads r.Body fully and restores it so downstream json
// decoding still works after the guard/fingerprint layer has inspected
// the raw bytes.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func decodeJSON(body []byte, v any) error {
	if len(body) == 0 {
		return io.ErrUnexpectedEOF
	}
	return json.Unmarshal(body, v)
}

// clientIP extracts the caller's address for rate limiting and
// fingerprinting, preferring a proxy-supplied X-Forwarded-For over the
// raw connection address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
