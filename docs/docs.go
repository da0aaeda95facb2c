// Package docs holds the OpenAPI description served at /swagger/*.
// Regenerate with: swag init -g cmd/ledger/main.go -o docs
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.readinessResponse"}}
                }
            }
        },
        "/jobs/{job_id}/pay": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Moves the job price from the calling client to the contractor and marks the job paid. Paying a paid job returns it unchanged.",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Pay a job",
                "parameters": [
                    {"type": "string", "description": "Job id", "name": "job_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.jobResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/balances/deposit/{userId}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Transfers from the calling client to userId. The amount may not exceed 25% of the caller's unpaid exposure and the caller must keep that reserve.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["balances"],
                "summary": "Deposit into another client's balance",
                "parameters": [
                    {"type": "string", "description": "Target client id", "name": "userId", "in": "path", "required": true},
                    {"type": "string", "description": "Replays the first result for a repeated key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Amount to transfer", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.depositRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.depositResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/contracts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["contracts"],
                "summary": "List the caller's contracts",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.contractResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/contracts/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["contracts"],
                "summary": "Get a contract the caller is party to",
                "parameters": [
                    {"type": "string", "description": "Contract id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.contractResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/jobs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List the caller's contracts that have unpaid jobs",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.contractJobsResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/jobs/unpaid": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List unpaid jobs on the caller's active contracts",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.jobResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handler.depositRequest": {
            "type": "object",
            "required": ["amount"],
            "properties": {"amount": {"type": "number", "example": 12.5}}
        },
        "handler.profileResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "profession": {"type": "string"},
                "type": {"type": "string"},
                "balance": {"type": "string", "example": "87.50"}
            }
        },
        "handler.depositResponse": {
            "type": "object",
            "properties": {
                "due": {"type": "string", "example": "50.00"},
                "source": {"$ref": "#/definitions/handler.profileResponse"},
                "target": {"$ref": "#/definitions/handler.profileResponse"}
            }
        },
        "handler.jobResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "contract_id": {"type": "string"},
                "description": {"type": "string"},
                "price": {"type": "string", "example": "40.10"},
                "paid": {"type": "boolean"},
                "paid_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handler.contractResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "terms": {"type": "string"},
                "client_id": {"type": "string"},
                "contractor_id": {"type": "string"},
                "status": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handler.contractJobsResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "terms": {"type": "string"},
                "client_id": {"type": "string"},
                "contractor_id": {"type": "string"},
                "status": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "jobs": {"type": "array", "items": {"$ref": "#/definitions/handler.jobResponse"}}
            }
        },
        "handlers.dependencyStatus": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "error": {"type": "string"}}
        },
        "handlers.readinessResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "dependencies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handlers.dependencyStatus"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ledger API",
	Description:      "Marketplace balance ledger: job payments and reserve-bounded client deposits.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
