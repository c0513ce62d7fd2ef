package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Class Schedule API",
        "description": "Ingests schedule workbooks and answers teacher timetable lookups",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Schedule", "description": "Workbook ingestion and teacher lookups"},
        {"name": "Sessions", "description": "Menu-driven conversational flow"},
        {"name": "Metrics", "description": "Operational counters"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/api/v1/schedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Look up the classes of a teacher",
                "parameters": [
                    {"name": "teacher", "in": "query", "required": true, "type": "string", "description": "Teacher name or fragment"},
                    {"name": "budget", "in": "query", "type": "integer", "description": "Characters per page"},
                    {"name": "page", "in": "query", "type": "integer", "description": "Single page to return"},
                    {"name": "date", "in": "query", "type": "string", "description": "Reference day (YYYY-MM-DD)"}
                ],
                "responses": {
                    "200": {"description": "Rendered pages", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Empty store or no classes in the window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Schedule"],
                "summary": "Delete the stored schedule",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Store cleared", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedule/documents": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Ingest a schedule workbook",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file", "description": "Schedule workbook (.xlsx)"}
                ],
                "responses": {
                    "201": {"description": "Ingestion report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Document already processed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Document too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "415": {"description": "Unsupported extension", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Document is not a workbook", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedule/export": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Export the classes of a teacher",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "teacher", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "date", "in": "query", "type": "string", "description": "Reference day (YYYY-MM-DD)"}
                ],
                "responses": {
                    "200": {"description": "Export document", "schema": {"type": "file"}}
                }
            }
        },
        "/api/v1/schedule/stats": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Summarise the stored schedule",
                "responses": {
                    "200": {"description": "Store statistics", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sessions/{id}/messages": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Send a text message to a conversation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SessionMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "Conversation reply", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sessions/{id}/documents": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Send a schedule workbook to a conversation",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Conversation reply", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Ingestion, query and cache counters",
                "responses": {
                    "200": {"description": "Metrics snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SessionMessageRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {
                "text": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
