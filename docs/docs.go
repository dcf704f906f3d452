// Package docs holds the OpenAPI document served under /swagger/.
// Regenerate with: swag init -g cmd/insights/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/analyze": {
            "post": {
                "tags": ["analysis"],
                "summary": "Analyze a dataset",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "spec", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "Aggregated output"},
                    "400": {"description": "Invalid run spec"},
                    "502": {"description": "Upstream failure"}
                }
            }
        },
        "/target-keys": {
            "post": {
                "tags": ["analysis"],
                "summary": "List target keys",
                "parameters": [{"in": "body", "name": "schema", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "Target keys"}, "400": {"description": "Invalid JSON payload"}}
            }
        },
        "/runs": {
            "get": {
                "tags": ["runs"],
                "summary": "List runs",
                "responses": {"200": {"description": "Runs"}}
            },
            "post": {
                "tags": ["runs"],
                "summary": "Create a new run",
                "parameters": [{"in": "body", "name": "spec", "required": true, "schema": {"type": "object"}}],
                "responses": {"202": {"description": "Run created"}, "400": {"description": "Invalid run spec"}}
            }
        },
        "/runs/{id}": {
            "get": {
                "tags": ["runs"],
                "summary": "Get run",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"200": {"description": "Run"}, "404": {"description": "Run not found"}}
            },
            "delete": {
                "tags": ["runs"],
                "summary": "Delete run",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"200": {"description": "Run deleted"}, "404": {"description": "Run not found"}, "409": {"description": "Run still in progress"}}
            }
        },
        "/runs/{id}/output": {
            "get": {
                "tags": ["runs"],
                "summary": "Get run output",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"200": {"description": "Output"}, "404": {"description": "Run or output not found"}}
            }
        },
        "/runs/{id}/logs": {
            "get": {
                "tags": ["runs"],
                "summary": "Get run logs",
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"type": "string", "in": "query", "name": "stage"}
                ],
                "responses": {"200": {"description": "Logs"}, "404": {"description": "Run not found"}}
            }
        },
        "/runs/{id}/errors": {
            "get": {
                "tags": ["runs"],
                "summary": "Get run errors",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"200": {"description": "Errors"}, "404": {"description": "Run not found"}}
            }
        },
        "/runs/{id}/retry": {
            "post": {
                "tags": ["runs"],
                "summary": "Retry run",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"202": {"description": "Retry initiated"}, "404": {"description": "Run not found"}, "409": {"description": "Run still in progress"}}
            }
        },
        "/download/{runID}/{filename}": {
            "get": {
                "tags": ["runs"],
                "summary": "Download export",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "runID", "required": true},
                    {"type": "string", "in": "path", "name": "filename", "required": true}
                ],
                "responses": {"200": {"description": "File download"}, "404": {"description": "File not found"}}
            }
        },
        "/models": {
            "get": {
                "tags": ["upstream"],
                "summary": "List available models",
                "parameters": [{"type": "string", "in": "query", "name": "capability"}],
                "responses": {"200": {"description": "Models"}, "502": {"description": "Failed to load models"}, "503": {"description": "No annotation API configured"}}
            }
        },
        "/annotations/{id}/retry": {
            "post": {
                "tags": ["upstream"],
                "summary": "Retry annotation",
                "parameters": [
                    {"type": "integer", "in": "path", "name": "id", "required": true},
                    {"in": "body", "name": "retry", "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "Updated annotation"}, "502": {"description": "Failed to retry annotation"}}
            }
        },
        "/fragments": {
            "post": {
                "tags": ["fragments"],
                "summary": "Curate fragment",
                "parameters": [{"in": "body", "name": "fragment", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Stored fragment"}, "400": {"description": "Invalid fragment"}, "502": {"description": "Failed to curate fragment"}}
            }
        },
        "/assets/{id}/fragments": {
            "get": {
                "tags": ["fragments"],
                "summary": "List fragments",
                "parameters": [{"type": "integer", "in": "path", "name": "id", "required": true}],
                "responses": {"200": {"description": "Fragments"}, "400": {"description": "Invalid asset ID"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Annotation Insights API",
	Description:      "Aggregates annotation results into timelines, monitoring views and grouped distributions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
