// Package docs holds the swagger document for the /api routes, kept in step
// with the swag annotations in internal/api by hand.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/jobs": {
            "get": {
                "description": "Get one page of job applications ordered by company",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List jobs",
                "parameters": [
                    {"type": "integer", "description": "Page size (default 100, max 1000)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Rows to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.JobListResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Missing remoteType and status default to on-site and applied",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Create a job",
                "parameters": [
                    {"description": "Job application", "name": "job", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.JobFields"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Job"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/jobs/search": {
            "get": {
                "description": "Case-insensitive search over title, company and notes, optionally filtered by status",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Search jobs",
                "parameters": [
                    {"type": "string", "description": "Search term", "name": "q", "in": "query"},
                    {"type": "string", "description": "Exact status", "name": "status", "in": "query"},
                    {"type": "integer", "description": "Page size (default 100, max 1000)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Rows to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.JobListResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/jobs/stats": {
            "get": {
                "description": "Counts per status and status group, plus applications gone stale",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Job statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Stats"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/jobs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get a job",
                "parameters": [
                    {"type": "integer", "description": "Job ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Job"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "put": {
                "description": "Replaces the job. A body with a status but neither jobTitle nor company only updates the fields it carries.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Update a job",
                "parameters": [
                    {"type": "integer", "description": "Job ID", "name": "id", "in": "path", "required": true},
                    {"description": "Job application", "name": "job", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.JobFields"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Job"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Delete a job",
                "parameters": [
                    {"type": "integer", "description": "Job ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.DeleteResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "description": "Uptime, environment, runtime and schema version",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Service status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "details": {},
                "error": {"type": "string"},
                "stack": {"type": "string"},
                "statusCode": {"type": "integer"},
                "timestamp": {"type": "string"}
            }
        },
        "api.JobListResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/models.Job"}},
                "filters": {"$ref": "#/definitions/api.SearchFilters"},
                "pagination": {"$ref": "#/definitions/api.Pagination"}
            }
        },
        "api.Pagination": {
            "type": "object",
            "properties": {
                "currentPageCount": {"type": "integer"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "api.RuntimeInfo": {
            "type": "object",
            "properties": {
                "arch": {"type": "string"},
                "platform": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "api.SearchFilters": {
            "type": "object",
            "properties": {
                "searchTerm": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "api.StatusResponse": {
            "type": "object",
            "properties": {
                "environment": {"type": "string"},
                "runtime": {"$ref": "#/definitions/api.RuntimeInfo"},
                "schemaVersion": {"type": "integer"},
                "status": {"type": "string"},
                "timestamp": {"type": "string"},
                "uptime": {"type": "number"},
                "version": {"type": "string"}
            }
        },
        "models.Job": {
            "type": "object",
            "properties": {
                "company": {"type": "string"},
                "id": {"type": "integer"},
                "jobTitle": {"type": "string"},
                "jobUrl": {"type": "string"},
                "lastUpdated": {"type": "integer"},
                "location": {"type": "string"},
                "notes": {"type": "string"},
                "remoteType": {"type": "string"},
                "salaryMax": {"type": "integer"},
                "salaryMin": {"type": "integer"},
                "status": {"type": "string"}
            }
        },
        "models.JobFields": {
            "type": "object",
            "properties": {
                "company": {"type": "string"},
                "jobTitle": {"type": "string"},
                "jobUrl": {"type": "string"},
                "lastUpdated": {"type": "string"},
                "location": {"type": "string"},
                "notes": {"type": "string"},
                "remoteType": {"type": "string"},
                "salaryMax": {"type": "integer"},
                "salaryMin": {"type": "integer"},
                "status": {"type": "string"}
            }
        },
        "services.DeleteResult": {
            "type": "object",
            "properties": {
                "deleted": {"type": "boolean"},
                "id": {"type": "integer"}
            }
        },
        "services.Stats": {
            "type": "object",
            "properties": {
                "byGroup": {"type": "object", "additionalProperties": {"type": "integer"}},
                "byStatus": {"type": "object", "additionalProperties": {"type": "integer"}},
                "generatedAt": {"type": "integer"},
                "stale": {"type": "integer"},
                "total": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8070",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Job Tracker API",
	Description:      "REST API for tracking job applications",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
