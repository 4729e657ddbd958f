package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "AttendSheets API",
        "description": "Classroom attendance service with QR sessions and statistics",
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
        {"name": "Auth", "description": "Login and verified signup"},
        {"name": "QR Sessions", "description": "Rotating-code attendance sessions"},
        {"name": "Classes", "description": "Class and roster reads"},
        {"name": "Attendance", "description": "Manual attendance writes"},
        {"name": "Statistics", "description": "Aggregates, banding and exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/signup": {
            "post": {
                "tags": ["Auth"],
                "summary": "Request an account with email verification",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "202": {"description": "Verification code sent", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/verify": {
            "post": {
                "tags": ["Auth"],
                "summary": "Confirm the verification code and create the account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifySignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Account created and logged in", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Wrong or expired code", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user info",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/qr/sessions": {
            "post": {
                "tags": ["QR Sessions"],
                "summary": "Start a rotating-code session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StartSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Session created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Active session already exists", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/qr/sessions/{class_id}": {
            "get": {
                "tags": ["QR Sessions"],
                "summary": "Read the active session, rotating the code when stale",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "No active session", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/qr/sessions/{class_id}/stop": {
            "post": {
                "tags": ["QR Sessions"],
                "summary": "Stop the session and write roster marks",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Summary with marks", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/qr/sessions/{class_id}/history": {
            "get": {
                "tags": ["QR Sessions"],
                "summary": "List sessions for a class and date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/qr/scan": {
            "post": {
                "tags": ["QR Sessions"],
                "summary": "Redeem a scanned code",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "Redemption recorded", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Invalid or stale code", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Code belongs to another class", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List the teacher's classes",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/classes/{class_id}": {
            "get": {
                "tags": ["Classes"],
                "summary": "Class detail with roster",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/classes/{class_id}/attendance": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Overwrite a student's cell for a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAttendanceRequest"}}
                ],
                "responses": {
                    "204": {"description": "Written"}
                }
            }
        },
        "/classes/{class_id}/attendance/marks": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Append one session mark",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Appended"}
                }
            }
        },
        "/classes/{class_id}/statistics": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Class aggregate with per-student banding",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/classes/{class_id}/statistics/export": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Download the class aggregate as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": false, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File payload"}
                }
            }
        },
        "/classes/{class_id}/students/{student_id}/statistics": {
            "get": {
                "tags": ["Statistics"],
                "summary": "One student's aggregate and band",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"},
                    {"name": "student_id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/classes/{class_id}/students/{student_id}/statistics/day": {
            "get": {
                "tags": ["Statistics"],
                "summary": "One student's counts for a single date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "path", "required": true, "type": "string"},
                    {"name": "student_id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "SignupRequest": {
            "type": "object",
            "required": ["email", "password", "full_name", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["TEACHER", "STUDENT"]}
            }
        },
        "VerifySignupRequest": {
            "type": "object",
            "required": ["email", "code"],
            "properties": {
                "email": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "StartSessionRequest": {
            "type": "object",
            "required": ["class_id", "date"],
            "properties": {
                "class_id": {"type": "string"},
                "date": {"type": "string"},
                "rotation_interval": {"type": "integer", "description": "Seconds between code rotations"}
            }
        },
        "ScanRequest": {
            "type": "object",
            "required": ["class_id", "date", "payload"],
            "properties": {
                "class_id": {"type": "string"},
                "date": {"type": "string"},
                "payload": {"$ref": "#/definitions/CodePayload"}
            }
        },
        "CodePayload": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "date": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "UpdateAttendanceRequest": {
            "type": "object",
            "required": ["student_id", "date", "sessions"],
            "properties": {
                "student_id": {"type": "string"},
                "date": {"type": "string"},
                "sessions": {"type": "array", "items": {"type": "object"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "Envelope": {
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
