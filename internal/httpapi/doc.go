// Package httpapi serves the product inventory over HTTP with chi.
//
// Reads report how they were served in the X-Cache header (HIT or MISS) and
// carry an ETag derived from the response body. A request sent with
// Cache-Control: no-cache skips the cache lookup and refreshes the entry.
// Errors are rendered as go-errors responses:
//
//	{"error": {"category": "not_found", "code": 404, "text_code": "PRODUCT_NOT_FOUND", ...}}
package httpapi
