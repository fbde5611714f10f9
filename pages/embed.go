// Package pages holds the HTML templates and static assets, embedded into
// the binary.
package pages

import (
	"embed"
	"io/fs"
)

//go:embed *.html partials/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Templates returns the page and partial templates.
func Templates() fs.FS { return templates }

// Static returns the static assets rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
