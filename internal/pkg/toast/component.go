package toast

import (
	"net/url"

	"github.com/a-h/templ"
)

func alertClass(s Severity) string {
	return "alert-" + string(s)
}

func dismissURL(id string) templ.SafeURL {
	return templ.SafeURL("/toasts/" + url.PathEscape(id) + "/dismiss")
}
