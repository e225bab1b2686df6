package guard

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAcrossWhitespace(t *testing.T) {
	a := Fingerprint("1.2.3.4", "POST", "/api/feedback", []byte(`{"a":1,"b":2}`), url.Values{})
	b := Fingerprint("1.2.3.4", "POST", "/api/feedback", []byte(`{ "a": 1, "b": 2 }`), url.Values{})
	require.Equal(t, a, b)
}

func TestFingerprintStableAcrossQueryOrder(t *testing.T) {
	a := Fingerprint("1.2.3.4", "GET", "/api/recommend/s1", nil, url.Values{"limit": {"5"}, "category": {"tops"}})
	b := Fingerprint("1.2.3.4", "GET", "/api/recommend/s1", nil, url.Values{"category": {"tops"}, "limit": {"5"}})
	require.Equal(t, a, b)
}

func TestFingerprintDiffersOnPayload(t *testing.T) {
	a := Fingerprint("1.2.3.4", "POST", "/api/feedback", []byte(`{"a":1}`), url.Values{})
	b := Fingerprint("1.2.3.4", "POST", "/api/feedback", []byte(`{"a":2}`), url.Values{})
	require.NotEqual(t, a, b)
}

func TestFingerprintPreservesStringWhitespace(t *testing.T) {
	a := Fingerprint("1.2.3.4", "POST", "/x", []byte(`{"name":"a b"}`), url.Values{})
	b := Fingerprint("1.2.3.4", "POST", "/x", []byte(`{"name":"ab"}`), url.Values{})
	require.NotEqual(t, a, b, "whitespace inside string literals is significant")
}
