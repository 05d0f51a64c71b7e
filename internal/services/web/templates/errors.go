package templates

import (
	"net/http"
	"strconv"

	"github.com/a-h/templ"
)

// ErrorTitle returns the page title for an error status.
func ErrorTitle(status int, loc Localizer) string {
	switch status {
	case http.StatusNotFound:
		return T(loc, "web.error.not_found_title")
	case http.StatusForbidden:
		return T(loc, "web.error.forbidden_title")
	default:
		if status >= http.StatusInternalServerError {
			return T(loc, "web.error.server_title")
		}
		return T(loc, "web.error.request_title")
	}
}

// ErrorState renders the error body with its status code and message.
func ErrorState(status int, message string, loc Localizer) templ.Component {
	return El("section", A("class", "error-state", "data-status", strconv.Itoa(status)),
		El("h1", nil, Text(ErrorTitle(status, loc))),
		El("p", nil, Text(message)),
		Link("/", T(loc, "web.error.back_home")),
	)
}
