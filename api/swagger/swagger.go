package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "NoteVault API",
        "description": "Collections and items with soft delete, hide, password lock and live views",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Collections", "description": "Collection lifecycle, cascaded to items"},
        {"name": "Items", "description": "Item lifecycle and locks"},
        {"name": "Views", "description": "Live merged views and the retention sweep"},
        {"name": "Observability", "description": "Metrics and health checks"}
    ],
    "paths": {
        "/collections": {
            "post": {
                "tags": ["Collections"],
                "summary": "Create collection",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CollectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResultEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}": {
            "get": {
                "tags": ["Collections"],
                "summary": "Get collection",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/CollectionID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Collections"],
                "summary": "Update collection name and color",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CollectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Collections"],
                "summary": "Permanently remove a collection and its items",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/CollectionID"}],
                "responses": {
                    "200": {"description": "Purged or already absent", "schema": {"$ref": "#/definitions/ResultEnvelope"}}
                }
            }
        },
        "/collections/{id}/actions/{action}": {
            "post": {
                "tags": ["Collections"],
                "summary": "Apply a lifecycle action to a collection and its items",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"$ref": "#/parameters/Action"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultEnvelope"}},
                    "409": {"description": "Transition not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/lock": {
            "post": {
                "tags": ["Collections"],
                "summary": "Lock collection with a password",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LockRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultEnvelope"}}}
            }
        },
        "/collections/{id}/unlock": {
            "post": {
                "tags": ["Collections"],
                "summary": "Unlock collection",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PasswordRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultEnvelope"}}}
            }
        },
        "/collections/{id}/verify": {
            "post": {
                "tags": ["Collections"],
                "summary": "Check a password against a locked collection",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PasswordRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/collections/{id}/items": {
            "post": {
                "tags": ["Items"],
                "summary": "Create item",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ItemRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResultEnvelope"}},
                    "404": {"description": "Collection not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/items/stream": {
            "get": {
                "tags": ["Views"],
                "summary": "Stream the active items of one collection",
                "produces": ["text/event-stream"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/CollectionID"}],
                "responses": {"200": {"description": "snapshot events", "schema": {"$ref": "#/definitions/ViewSnapshot"}}}
            }
        },
        "/collections/{id}/items/{itemId}": {
            "get": {
                "tags": ["Items"],
                "summary": "Get item",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/CollectionID"}, {"$ref": "#/parameters/ItemID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Items"],
                "summary": "Update item",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"$ref": "#/parameters/ItemID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ItemRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultEnvelope"}}}
            },
            "delete": {
                "tags": ["Items"],
                "summary": "Permanently remove an item",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/CollectionID"}, {"$ref": "#/parameters/ItemID"}],
                "responses": {"200": {"description": "Purged or already absent", "schema": {"$ref": "#/definitions/ResultEnvelope"}}}
            }
        },
        "/collections/{id}/items/{itemId}/actions/{action}": {
            "post": {
                "tags": ["Items"],
                "summary": "Apply a lifecycle action to one item",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"$ref": "#/parameters/ItemID"},
                    {"$ref": "#/parameters/Action"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultEnvelope"}},
                    "409": {"description": "Transition not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{id}/items/{itemId}/lock": {
            "post": {
                "tags": ["Items"],
                "summary": "Lock item with a password",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"$ref": "#/parameters/ItemID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LockRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultEnvelope"}}}
            }
        },
        "/collections/{id}/items/{itemId}/unlock": {
            "post": {
                "tags": ["Items"],
                "summary": "Unlock item",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"$ref": "#/parameters/ItemID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PasswordRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultEnvelope"}}}
            }
        },
        "/collections/{id}/items/{itemId}/verify": {
            "post": {
                "tags": ["Items"],
                "summary": "Check a password against a locked item",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/CollectionID"},
                    {"$ref": "#/parameters/ItemID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PasswordRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/views/{view}": {
            "get": {
                "tags": ["Views"],
                "summary": "Stream a live merged view",
                "produces": ["text/event-stream"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "view", "in": "path", "required": true, "type": "string", "enum": ["active", "hidden", "recycle-bin"]}
                ],
                "responses": {
                    "200": {"description": "snapshot events", "schema": {"$ref": "#/definitions/ViewSnapshot"}},
                    "400": {"description": "Unknown view", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/recycle-bin/sweep": {
            "post": {
                "tags": ["Views"],
                "summary": "Purge recycle bin entries past the retention window",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Engine metrics summary",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/palette": {
            "get": {
                "tags": ["Collections"],
                "summary": "List preset colors",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "parameters": {
        "CollectionID": {"name": "id", "in": "path", "required": true, "type": "string"},
        "ItemID": {"name": "itemId", "in": "path", "required": true, "type": "string"},
        "Action": {"name": "action", "in": "path", "required": true, "type": "string", "enum": ["hide", "unhide", "delete", "restore", "purge"]}
    },
    "definitions": {
        "CollectionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "maxLength": 120},
                "color": {"type": "string", "example": "#4ECDC4"}
            },
            "required": ["name"]
        },
        "ItemRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string", "maxLength": 200},
                "content": {"type": "string"},
                "color": {"type": "string", "example": "#FF6B6B"}
            },
            "required": ["title", "content"]
        },
        "LockRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"},
                "confirmation": {"type": "string"}
            },
            "required": ["password"]
        },
        "PasswordRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"}
            },
            "required": ["password"]
        },
        "Result": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "id": {"type": "string"}
            }
        },
        "ViewEntry": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["collection", "item"]},
                "collection": {"type": "object"},
                "item": {"type": "object"}
            }
        },
        "ViewSnapshot": {
            "type": "object",
            "properties": {
                "view": {"type": "string"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/ViewEntry"}},
                "error": {"type": "string"},
                "emittedAt": {"type": "string", "format": "date-time"}
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
                "meta": {"type": "object"}
            }
        },
        "ResultEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/Result"},
                "error": {"$ref": "#/definitions/APIError"}
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
