package httpx

import (
	"net/http"

	"github.com/aegis-admin/aegis/internal/shared"
)

// RespondError maps core errors to HTTP responses using RFC7807. Soft error
// kinds carry their message through; hard faults surface as a generic 500
// without leaking internals.
func RespondError(w http.ResponseWriter, err error) {
	kind, ok := shared.SoftKind(err)
	if !ok {
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	switch kind {
	case shared.KindCaptchaInvalid, shared.KindUserNameInvalid, shared.KindPasswordInvalid:
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case shared.KindConflict:
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case shared.KindNotAcceptable:
		Problem(w, http.StatusNotAcceptable, "Not Acceptable", err.Error())
	case shared.KindNotFound:
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
