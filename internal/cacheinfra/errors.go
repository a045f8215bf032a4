package cacheinfra

import (
	goerrors "github.com/goliatone/go-errors"
)

// TextCodeCacheUnavailable marks backend failures. These errors stop at the
// cache-aside layer and are only ever logged.
const TextCodeCacheUnavailable = "CACHE_UNAVAILABLE"

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, "cache backend unavailable").
		WithTextCode(TextCodeCacheUnavailable).
		WithMetadata(map[string]any{"op": op})
}

// IsUnavailable reports whether err came from a failing cache backend.
func IsUnavailable(err error) bool {
	var e *goerrors.Error
	return goerrors.As(err, &e) && e.TextCode == TextCodeCacheUnavailable
}
