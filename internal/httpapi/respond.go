package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
)

// CacheStatusHeader reports whether a read was served from the cache.
const CacheStatusHeader = "X-Cache"

const (
	cacheHit  = "HIT"
	cacheMiss = "MISS"
)

var (
	errRouteNotFound = goerrors.New("route not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode("ROUTE_NOT_FOUND")
	errMethodNotAllowed = goerrors.New("method not allowed", goerrors.CategoryBadInput).
		WithCode(http.StatusMethodNotAllowed).
		WithTextCode("METHOD_NOT_ALLOWED")
)

func (rt *Router) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		rt.logger.Debug("write response", zap.Error(err))
	}
}

// writeRead writes a cacheable read. The body hash is the ETag and a
// matching If-None-Match yields 304 with no body.
func (rt *Router) writeRead(w http.ResponseWriter, r *http.Request, v any, hit bool) {
	body, err := json.Marshal(v)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	etag := `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
	h := w.Header()
	h.Set("ETag", etag)
	if hit {
		h.Set(CacheStatusHeader, cacheHit)
	} else {
		h.Set(CacheStatusHeader, cacheMiss)
	}

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		rt.logger.Debug("write response", zap.Error(err))
	}
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// writeError renders err as a go-errors response. Uncategorized errors
// become a 500 and server errors never expose their source.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := goerrors.MapToError(err, nil).Clone()
	status := statusOf(e)

	e = e.WithRequestID(chimiddleware.GetReqID(r.Context()))
	e.Location = nil
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("requestID", e.RequestID),
			zap.Error(err),
		)
		e.Source = nil
		e.Metadata = nil
	}

	rt.writeJSON(w, r, status, e.ToErrorResponse(false, nil))
}

func statusOf(e *goerrors.Error) int {
	if e.Code >= 400 && e.Code < 600 {
		return e.Code
	}
	switch e.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
