package inventory

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by errors returned from this package.
const (
	TextCodeNotFound         = "PRODUCT_NOT_FOUND"
	TextCodeConflict         = "SKU_CONFLICT"
	TextCodeValidation       = "VALIDATION_FAILED"
	TextCodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// NotFound reports a missing or soft deleted product.
func NotFound(id int64) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("product %d not found", id), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound).
		WithMetadata(map[string]any{"id": id})
}

// Conflict reports a SKU that is already taken.
func Conflict(sku string) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("product with SKU %q already exists", sku), goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeConflict).
		WithMetadata(map[string]any{"sku": sku})
}

// Invalid converts a validation failure into a categorized error.
func Invalid(err error, message string) *goerrors.Error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeValidation)
}

// InvalidField reports a single bad argument that is not part of an input struct.
func InvalidField(field, message string) *goerrors.Error {
	return goerrors.NewValidation("invalid "+field, goerrors.FieldError{Field: field, Message: message}).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeValidation)
}

// StoreUnavailable wraps a failure of the backing store. Errors that are
// already categorized keep their category.
func StoreUnavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	var existing *goerrors.Error
	if goerrors.As(err, &existing) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, "product store "+op+" failed").
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeStoreUnavailable).
		WithMetadata(map[string]any{"op": op})
}

// IsNotFound reports whether err marks a missing product.
func IsNotFound(err error) bool { return goerrors.IsNotFound(err) }

// IsConflict reports whether err marks a SKU conflict.
func IsConflict(err error) bool { return goerrors.IsCategory(err, goerrors.CategoryConflict) }

// IsValidation reports whether err marks rejected input.
func IsValidation(err error) bool { return goerrors.IsValidation(err) }
