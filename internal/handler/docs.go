package handler

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed swagger.json
var swaggerJSON []byte

const docsPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Mechanic Shop API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>window.ui = SwaggerUIBundle({url: "/swagger.json", dom_id: "#swagger-ui"});</script>
</body>
</html>`

// SwaggerJSON serves the embedded Swagger 2.0 document.
func SwaggerJSON(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, swaggerJSON)
}

// Docs serves the Swagger UI page.
func Docs(c echo.Context) error { return c.HTML(http.StatusOK, docsPage) }

// Index redirects to the docs.
func Index(c echo.Context) error { return c.Redirect(http.StatusFound, "/docs") }
