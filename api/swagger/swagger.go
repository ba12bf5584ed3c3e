package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Dorm Hub API",
        "description": "Dormitory management API: rooms, residents, occupancy and rent payments",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and password management"},
        {"name": "Rooms", "description": "Room inventory and occupancy"},
        {"name": "Students", "description": "Resident roster, room assignments and rent position"},
        {"name": "Payments", "description": "Rent payment ledger"},
        {"name": "Dashboard", "description": "Aggregated occupancy and settlement snapshots"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rooms"],
                "summary": "Create room",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRoomRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/{id}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Get room with occupants",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Rooms"],
                "summary": "Update room",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRoomRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Rooms"],
                "summary": "Delete room",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Room still has occupants"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "roomId", "in": "query", "type": "string"},
                    {"name": "assigned", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students/{id}/assign-room": {
            "put": {
                "tags": ["Students"],
                "summary": "Assign a room by its number",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRoomRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Room is at maximum occupancy"}
                }
            }
        },
        "/students/{id}/remove-room": {
            "put": {
                "tags": ["Students"],
                "summary": "Remove the student from their room",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Student has no room assignment"}
                }
            }
        },
        "/students/{id}/remaining-rent": {
            "get": {
                "tags": ["Students"],
                "summary": "Get the rent position for a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RentSummary"}},
                    "412": {"description": "Student has no room assignment"}
                }
            }
        },
        "/payments": {
            "get": {
                "tags": ["Payments"],
                "summary": "List payments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payments"],
                "summary": "Record payment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/{id}": {
            "get": {
                "tags": ["Payments"],
                "summary": "Get payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Payments"],
                "summary": "Update payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Payments"],
                "summary": "Delete payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/payments/{id}/status": {
            "patch": {
                "tags": ["Payments"],
                "summary": "Cancel payment",
                "description": "Only the cancelled status may be requested; the others are derived.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/export/csv": {
            "get": {
                "tags": ["Payments"],
                "summary": "Export the payment ledger as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/payments/export/pdf": {
            "get": {
                "tags": ["Payments"],
                "summary": "Export the payment ledger as PDF",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Room": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "number": {"type": "string"},
                "type": {"type": "string"},
                "status": {"type": "string", "enum": ["available", "occupied", "complet"]},
                "max_occupancy": {"type": "integer"},
                "occupant_count": {"type": "integer"},
                "floor": {"type": "integer"},
                "rent": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "Student": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "matricule": {"type": "string"},
                "phone": {"type": "string"},
                "enrollment_date": {"type": "string"},
                "room_id": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "Payment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_id": {"type": "string"},
                "amount": {"type": "string"},
                "due_date": {"type": "string"},
                "paid_date": {"type": "string"},
                "status": {"type": "string", "enum": ["paid", "pending", "overdue", "cancelled"]},
                "room_number": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "RentSummary": {
            "type": "object",
            "properties": {
                "totalRentDue": {"type": "string"},
                "totalPaid": {"type": "string"},
                "remainingRent": {"type": "string"},
                "monthsStayed": {"type": "integer"},
                "roomRent": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateRoomRequest": {
            "type": "object",
            "properties": {
                "number": {"type": "string"},
                "type": {"type": "string"},
                "max_occupancy": {"type": "integer"},
                "floor": {"type": "integer"},
                "rent": {"type": "string"}
            },
            "required": ["number", "type", "max_occupancy"]
        },
        "UpdateRoomRequest": {
            "type": "object",
            "properties": {
                "number": {"type": "string"},
                "type": {"type": "string"},
                "max_occupancy": {"type": "integer"},
                "floor": {"type": "integer"},
                "rent": {"type": "string"}
            },
            "required": ["number", "type", "max_occupancy"]
        },
        "CreateStudentRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "matricule": {"type": "string"},
                "phone": {"type": "string"},
                "enrollment_date": {"type": "string"},
                "user_id": {"type": "string"}
            },
            "required": ["full_name", "email", "enrollment_date"]
        },
        "UpdateStudentRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "matricule": {"type": "string"},
                "phone": {"type": "string"},
                "enrollment_date": {"type": "string"},
                "user_id": {"type": "string"}
            },
            "required": ["full_name", "email", "enrollment_date"]
        },
        "AssignRoomRequest": {
            "type": "object",
            "properties": {
                "roomCode": {"type": "string"}
            },
            "required": ["roomCode"]
        },
        "CreatePaymentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "amount": {"type": "string"},
                "due_date": {"type": "string"},
                "description": {"type": "string"},
                "cancelled": {"type": "boolean"}
            },
            "required": ["student_id", "amount", "due_date"]
        },
        "UpdatePaymentRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "string"},
                "due_date": {"type": "string"},
                "description": {"type": "string"}
            },
            "required": ["amount", "due_date"]
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
