// Package docs holds the OpenAPI document for the countersign API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "countersign maintainers",
            "url": "https://github.com/custodia-labs/countersign/issues"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Owner login",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/domain.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LoginResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register owner",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/domain.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.UserSummary"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Authentication"],
                "summary": "Logout",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Authentication"],
                "summary": "Current owner",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.UserSummary"}}}
            }
        },
        "/instances": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Instances"],
                "summary": "List instances",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Instance"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Instances"],
                "summary": "Create instance",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/domain.CreateInstanceRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Instance"}},
                    "400": {"description": "Invalid configuration", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/instances/{id}/send": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Instances"],
                "summary": "Send instance",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Instance"}},
                    "409": {"description": "Already sent", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "422": {"description": "Field outside the document", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/instances/{id}/download": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "tags": ["Instances"],
                "summary": "Download document",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "preview", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Signing not complete", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/signing/{id}": {
            "get": {
                "tags": ["Signing"],
                "summary": "Open signing link",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "recipient", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.RecipientView"}},
                    "403": {"description": "Not a recipient", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/signing/{id}/submit": {
            "post": {
                "tags": ["Signing"],
                "summary": "Submit fields",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/domain.SubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SubmissionResult"}},
                    "400": {"description": "Missing required field", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Not a recipient", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Out of turn", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Instance busy", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "invalid request body"}}
        },
        "domain.LoginRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "domain.RegisterRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}, "name": {"type": "string"}}
        },
        "domain.UserSummary": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "email": {"type": "string"}, "name": {"type": "string"}, "active": {"type": "boolean"}}
        },
        "domain.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.UserSummary"}
            }
        },
        "domain.Recipient": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "rank": {"type": "integer"}
            }
        },
        "domain.Field": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string", "enum": ["signature", "initial", "name", "email", "company", "title", "text", "date_signed", "checkbox"]},
                "position": {"type": "object", "properties": {"page": {"type": "integer"}, "x": {"type": "number"}, "y": {"type": "number"}}},
                "width": {"type": "number"},
                "height": {"type": "number"},
                "value": {"type": "string"},
                "recipient_id": {"type": "string"}
            }
        },
        "domain.CreateInstanceRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "document_url": {"type": "string"},
                "email_subject": {"type": "string"},
                "email_message": {"type": "string"},
                "recipients": {"type": "array", "items": {"$ref": "#/definitions/domain.Recipient"}},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/domain.Field"}}
            }
        },
        "domain.Instance": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "owner_id": {"type": "string"},
                "name": {"type": "string"},
                "document_url": {"type": "string"},
                "mode": {"type": "string", "enum": ["unordered", "sequential"]},
                "status": {"type": "string", "enum": ["draft", "sent", "completed"]},
                "recipients": {"type": "array", "items": {"$ref": "#/definitions/domain.Recipient"}},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/domain.Field"}},
                "favorite": {"type": "boolean"},
                "deleted": {"type": "boolean"}
            }
        },
        "domain.SigningState": {
            "type": "object",
            "properties": {
                "phase": {"type": "string", "enum": ["unordered", "sequential_pending", "complete"]},
                "active_rank": {"type": "integer"}
            }
        },
        "domain.RecipientView": {
            "type": "object",
            "properties": {
                "instance_id": {"type": "string"},
                "name": {"type": "string"},
                "document_url": {"type": "string"},
                "status": {"type": "string"},
                "recipient": {"$ref": "#/definitions/domain.Recipient"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/domain.Field"}},
                "state": {"$ref": "#/definitions/domain.SigningState"},
                "can_act": {"type": "boolean"},
                "already_signed": {"type": "boolean"}
            }
        },
        "domain.SubmissionRequest": {
            "type": "object",
            "properties": {
                "recipient_id": {"type": "string"},
                "fields": {"type": "array", "items": {"type": "object", "properties": {"id": {"type": "string"}, "value": {"type": "string"}}}}
            }
        },
        "domain.SubmissionResult": {
            "type": "object",
            "properties": {
                "instance_id": {"type": "string"},
                "state": {"$ref": "#/definitions/domain.SigningState"},
                "complete": {"type": "boolean"},
                "already_signed": {"type": "boolean"},
                "next_actors": {"type": "array", "items": {"$ref": "#/definitions/domain.Recipient"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Bearer token. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "countersign API",
	Description:      "Multi-party document signing. Owners place fields on a PDF, recipients fill their own fields in rank order, and the composed document is emailed when everyone has signed.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
