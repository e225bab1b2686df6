package guard

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes (ip, method, path, canonical body, canonical query)
// into a single dedup key (spec.md §4.7). xxhash is a fast
// non-cryptographic hash; nothing here needs collision resistance
// against an adversary, only even distribution across legitimate retries.
func Fingerprint(ip, method, path string, body []byte, query url.Values) string {
	var b strings.Builder
	b.WriteString(ip)
	b.WriteByte('|')
	b.WriteString(method)
	b.WriteByte('|')
	b.WriteString(path)
	b.WriteByte('|')
	b.Write(canonicalBody(body))
	b.WriteByte('|')
	b.WriteString(canonicalQuery(query))

	h := xxhash.Sum64String(b.String())
	return strconv.FormatUint(h, 16)
}

// canonicalBody collapses insignificant whitespace so two logically
// identical JSON bodies hash the same even if re-serialized differently
// by a retrying client.
func canonicalBody(body []byte) []byte {
	out := make([]byte, 0, len(body))
	inString := false
	escaped := false
	for _, c := range body {
		if inString {
			out = append(out, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '"':
			inString = true
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// canonicalQuery sorts query parameters by key so equivalent query
// strings in any order hash the same.
func canonicalQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
			b.WriteByte('&')
		}
	}
	return b.String()
}
