package httpapi

import (
	"net/http"
	"strings"
)

// CurrentVersion and SupportedVersions are the protocol versions this
// build speaks (spec.md §6 "Versioning").
const CurrentVersion = "1"

var SupportedVersions = []string{"1"}

// resolveVersion applies §6's precedence: path prefix, then API-Version
// header, then the vnd Accept header, then the version query param,
// defaulting to CurrentVersion. It also returns the path with any
// /v{N} prefix stripped, so routing sees the canonical path.
func resolveVersion(r *http.Request) (version, path string) {
	path = r.URL.Path
	if rest, ok := stripVersionPrefix(path); ok {
		version, path = rest.version, rest.path
		return version, path
	}
	if v := r.Header.Get("API-Version"); v != "" {
		return v, path
	}
	if accept := r.Header.Get("Accept"); strings.Contains(accept, "vnd.fashion-api.v") {
		if v := parseVndVersion(accept); v != "" {
			return v, path
		}
	}
	if v := r.URL.Query().Get("version"); v != "" {
		return v, path
	}
	return CurrentVersion, path
}

type versionedPath struct {
	version string
	path    string
}

func stripVersionPrefix(path string) (versionedPath, bool) {
	if !strings.HasPrefix(path, "/api/v") {
		return versionedPath{}, false
	}
	rest := path[len("/api/v"):]
	slash := strings.IndexByte(rest, '/')
	if slash <= 0 {
		return versionedPath{}, false
	}
	return versionedPath{version: rest[:slash], path: "/api" + rest[slash:]}, true
}

func parseVndVersion(accept string) string {
	const marker = "vnd.fashion-api.v"
	i := strings.Index(accept, marker)
	if i < 0 {
		return ""
	}
	rest := accept[i+len(marker):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	return rest[:end]
}

func supported(version string) bool {
	for _, v := range SupportedVersions {
		if v == version {
			return true
		}
	}
	return false
}

// versioningMiddleware resolves the requested API version, rewrites the
// request path to drop any /v{N} prefix before mux dispatch, and always
// echoes the version headers §6 requires.
func versioningMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version, path := resolveVersion(r)
		w.Header().Set("API-Version", version)
		w.Header().Set("API-Current-Version", CurrentVersion)
		w.Header().Set("API-Supported-Versions", strings.Join(SupportedVersions, ","))

		if !supported(version) {
			writeAppError(w, newUnsupportedVersionError(version))
			return
		}

		r.URL.Path = path
		next.ServeHTTP(w, r)
	})
}
