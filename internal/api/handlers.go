package api

import (
	"net/http"
	"net/url"
	"strings"

	"manifestproxyd/internal/models"
)

const (
	paramPlaybackURL = "playbackUrl"
	paramToken       = "token"
)

func (a *API) handleManifest(w http.ResponseWriter, r *http.Request) {
	req := models.PlaybackRequest{
		PlaybackURL: queryParam(r.URL.RawQuery, paramPlaybackURL),
		RawToken:    queryParam(r.URL.RawQuery, paramToken),
	}

	res, err := a.service.FetchManifest(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	// The body carries the caller's token.
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.Body))
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: a.version})
}

// queryParam returns the value of name from rawQuery. An exact key match
// wins; otherwise the first key, in query order, that matches
// case-insensitively. Segments that fail to unescape are ignored.
func queryParam(rawQuery, name string) string {
	var fallback string
	found := false
	for _, segment := range strings.Split(rawQuery, "&") {
		rawKey, rawValue, _ := strings.Cut(segment, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil || !strings.EqualFold(key, name) {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			continue
		}
		if key == name {
			return value
		}
		if !found {
			fallback, found = value, true
		}
	}
	return fallback
}
