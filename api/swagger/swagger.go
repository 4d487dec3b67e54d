package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CrewPlan API",
        "description": "Shift scheduling and assignment for event staff",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Staff", "description": "Staff roster and qualifications"},
        {"name": "Qualifications", "description": "Qualification catalogue"},
        {"name": "Events", "description": "Events, invitations and roster exports"},
        {"name": "Shifts", "description": "Shift definitions"},
        {"name": "Scheduling", "description": "Shift browsing and assignment lifecycle"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/shifts/available": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "List available shifts with eligibility",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "all", "in": "query", "type": "boolean"},
                    {"name": "staff_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/shifts/{id}/apply": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Register interest in a shift",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not invited"},
                    "409": {"description": "Conflict, full or closed"}
                }
            }
        },
        "/shifts/{id}/assignments": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Assign a staff member to a shift",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignStaffRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict or full"}
                }
            }
        },
        "/shifts/{id}/assignments/bulk": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Assign multiple staff to a shift",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkAssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "Partial success report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/shifts/{id}/assignments/{staffId}": {
            "delete": {
                "tags": ["Scheduling"],
                "summary": "Release a staff member from a shift",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "staffId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/shifts/{id}/roster": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "Shift roster with occupancy",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/confirm": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Confirm a final assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/assignments/{id}/upgrade": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Promote a preliminary assignment to final",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/staff": {
            "get": {
                "tags": ["Staff"],
                "summary": "List staff",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "qualification", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Staff"],
                "summary": "Register a staff member",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStaffRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/staff/{id}": {
            "get": {
                "tags": ["Staff"],
                "summary": "Staff detail with qualifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Staff"],
                "summary": "Update staff member",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStaffRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Staff"],
                "summary": "Deactivate staff member",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/staff/{id}/qualifications": {
            "put": {
                "tags": ["Staff"],
                "summary": "Replace qualification set",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetQualificationsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/staff/{id}/invitations": {
            "get": {
                "tags": ["Staff"],
                "summary": "List a staff member's invitations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/qualifications": {
            "get": {
                "tags": ["Qualifications"],
                "summary": "List qualifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "active", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Qualifications"],
                "summary": "Create qualification",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/QualificationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Events"],
                "summary": "Create draft event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/status": {
            "put": {
                "tags": ["Events"],
                "summary": "Move event through its lifecycle",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangeStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/events/{id}/invitations": {
            "get": {
                "tags": ["Events"],
                "summary": "List event invitations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Events"],
                "summary": "Invite staff to event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InviteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invitations/{id}/respond": {
            "put": {
                "tags": ["Events"],
                "summary": "Respond to an invitation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RespondRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/shifts": {
            "get": {
                "tags": ["Shifts"],
                "summary": "List event shifts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Shifts"],
                "summary": "Add shift to event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ShiftRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/roster/export": {
            "get": {
                "tags": ["Events"],
                "summary": "Export confirmed roster as PDF or CSV",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "csv"]}
                ],
                "responses": {
                    "200": {"description": "Roster file"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "AssignStaffRequest": {
            "type": "object",
            "properties": {
                "staff_id": {"type": "string"},
                "kind": {"type": "string", "enum": ["PRELIMINARY", "FINAL"]},
                "force": {"type": "boolean"}
            },
            "required": ["staff_id", "kind"]
        },
        "BulkAssignRequest": {
            "type": "object",
            "properties": {
                "staff_ids": {"type": "array", "items": {"type": "string"}},
                "kind": {"type": "string", "enum": ["PRELIMINARY", "FINAL"]}
            },
            "required": ["staff_ids", "kind"]
        },
        "CreateStaffRequest": {
            "type": "object",
            "properties": {
                "personal_code": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "qualification_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["personal_code", "first_name", "last_name", "email"]
        },
        "UpdateStaffRequest": {
            "type": "object",
            "properties": {
                "personal_code": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"}
            },
            "required": ["personal_code", "first_name", "last_name", "email"]
        },
        "SetQualificationsRequest": {
            "type": "object",
            "properties": {
                "qualification_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "QualificationRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "color": {"type": "string"}
            },
            "required": ["name"]
        },
        "EventRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "location": {"type": "string"},
                "starts_at": {"type": "string"},
                "ends_at": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["name", "starts_at", "ends_at"]
        },
        "ChangeStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["DRAFT", "PUBLISHED", "COMPLETED", "CANCELLED"]}
            },
            "required": ["status"]
        },
        "InviteRequest": {
            "type": "object",
            "properties": {
                "staff_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["staff_ids"]
        },
        "RespondRequest": {
            "type": "object",
            "properties": {
                "accept": {"type": "boolean"}
            },
            "required": ["accept"]
        },
        "ShiftRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "position": {"type": "string"},
                "starts_at": {"type": "string"},
                "ends_at": {"type": "string"},
                "required_headcount": {"type": "integer"},
                "required_qualifications": {"type": "array", "items": {"type": "string"}},
                "notes": {"type": "string"}
            },
            "required": ["name", "starts_at", "ends_at", "required_headcount"]
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
