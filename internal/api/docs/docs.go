// Package docs registers the Guardian management API's swagger spec
// with swaggo, so gin-swagger can serve it at /swagger/*any. This
// file stands in for swag init's generated output: the doc comments
// on each handler in internal/api/handlers are the source of truth,
// this is just enough of a spec for the UI to render against.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Guardian",
            "url": "https://github.com/bigr-systems/guardian"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {},
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported swagger metadata, filled in by swag init
// when run; the defaults below match the @host/@BasePath comments on
// handlers.Handler.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Guardian Management API",
	Description:      "REST API for managing the Guardian DNS filtering, threat intelligence, firewall, and alerting subsystems.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
