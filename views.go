package garden

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
)

//go:embed views
var viewsFS embed.FS

//go:embed assets
var assetsFS embed.FS

// NewViewEngine returns the django engine over the embedded views with
// the template helpers registered. reload re-parses templates on every
// render.
func NewViewEngine(reload bool) *django.Engine {
	engine := django.NewPathForwardingFileSystem(http.FS(viewsFS), "/views", ".html")
	engine.Reload(reload)
	engine.AddFuncMap(TemplateHelpers())
	return engine
}

// AssetsFS is the static assets tree rooted at assets/
func AssetsFS() http.FileSystem {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
