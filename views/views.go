// Package views holds the page templates rendered by the fiber html engine.
package views

import (
	"embed"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/categories"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/utils"
)

//go:embed *.html layouts/*.html auth/*.html admin/*.html partials/*.html
var FS embed.FS

// Layout is the layout every page is rendered into.
const Layout = "layouts/main"

// NewEngine returns the html engine over the embedded templates. With
// reload set, templates are parsed on every render.
func NewEngine(reload bool) *html.Engine {
	engine := html.NewFileSystem(http.FS(FS), ".html")
	engine.Reload(reload)

	engine.AddFunc("categoryLabel", categories.Label)
	engine.AddFunc("docName", models.DocumentTypeName)
	engine.AddFunc("capitalize", capitalize)
	engine.AddFunc("date", formatDate)
	engine.AddFunc("dateTime", formatDateTime)
	engine.AddFunc("inputDate", func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	})
	engine.AddFunc("avatar", func(email string) string {
		return utils.GetGravatarURL(email, 64)
	})
	engine.AddFunc("daysLeft", func(d models.Document) int {
		return d.DaysUntilExpiry(time.Now())
	})
	return engine
}

func capitalize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.Format("Jan 2, 2006")
	case *time.Time:
		if t == nil {
			return "-"
		}
		return t.Format("Jan 2, 2006")
	}
	return "-"
}

func formatDateTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.Format("Jan 2, 2006 15:04")
	case *time.Time:
		if t == nil {
			return "-"
		}
		return t.Format("Jan 2, 2006 15:04")
	}
	return "-"
}
