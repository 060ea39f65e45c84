package receipt

import "embed"

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/app.css
var appCSS []byte

//go:embed static/app.js
var appJS []byte
