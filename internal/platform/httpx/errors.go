// Package httpx provides HTTP response utilities.
package httpx

import (
	"net/http"

	"github.com/meridian-cms/meridian-cms/internal/shared"
)

// statusForCode maps failure classes to HTTP statuses.
func statusForCode(code shared.ErrorCode) int {
	switch code {
	case shared.CodeUnauthorized:
		return http.StatusUnauthorized
	case shared.CodeValidation:
		return http.StatusBadRequest
	case shared.CodeNotFound:
		return http.StatusNotFound
	case shared.CodeConflict:
		return http.StatusConflict
	case shared.CodeForbidden:
		return http.StatusForbidden
	case shared.CodeDependencyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps a coded error to an RFC7807 response. The access gate
// middleware denies through it; mutation handlers use Failure instead.
func RespondError(w http.ResponseWriter, err error) {
	coded := shared.AsCoded(err)
	status := statusForCode(coded.Code)
	detail := coded.Message
	if status == http.StatusInternalServerError {
		detail = ""
	}
	Problem(w, status, http.StatusText(status), detail)
}
