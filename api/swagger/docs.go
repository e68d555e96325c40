package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "UniPortal API",
        "description": "University administration portal: enrollment selection, course catalog, grades and exports",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and password management"},
        {"name": "Courses", "description": "Course catalog"},
        {"name": "Enrollment", "description": "Selection workflow and committed enrollments"},
        {"name": "Students", "description": "Student profiles and track selection"},
        {"name": "Grades", "description": "Grades and transcripts"},
        {"name": "Settings", "description": "Enrollment window configuration"},
        {"name": "Announcements", "description": "Portal announcements"},
        {"name": "Assistance", "description": "Course suggestion assistance"},
        {"name": "Exports", "description": "Asynchronous CSV/PDF exports"}
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email and password",
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Exchange refresh token",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List the course catalog",
                "parameters": [
                    {"name": "semester", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Catalog page", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create a course offering (admin)",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate code"}
                }
            }
        },
        "/courses/{code}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Course detail",
                "parameters": [
                    {"name": "code", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Course"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/enrollment/selection": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Start or resume a selection session",
                "responses": {
                    "200": {"description": "Selection view with revision"}
                }
            }
        },
        "/enrollment/selection/toggle": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Toggle a course in the selection",
                "responses": {
                    "200": {"description": "Updated selection view"},
                    "409": {"description": "Stale revision"}
                }
            }
        },
        "/enrollment/selection/summary": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Credit summary for the selection",
                "responses": {
                    "200": {"description": "Summary with over-limit flag"}
                }
            }
        },
        "/enrollment/selection/recommendation": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Drop recommendation when over the credit limit",
                "responses": {
                    "200": {"description": "Recommended drops"}
                }
            }
        },
        "/enrollment/selection/drops": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Drop selected courses",
                "responses": {
                    "200": {"description": "Updated selection view"},
                    "409": {"description": "Stale revision"}
                }
            }
        },
        "/enrollment/selection/commit": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Finalize the selection",
                "responses": {
                    "200": {"description": "Commit result or track-selection routing"},
                    "412": {"description": "Window closed or empty selection"},
                    "422": {"description": "Credit limit exceeded"}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "List committed enrollments",
                "responses": {
                    "200": {"description": "Enrollment page"}
                }
            }
        },
        "/enrollments/{id}": {
            "delete": {
                "tags": ["Enrollment"],
                "summary": "Drop a committed enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Dropped"},
                    "403": {"description": "Not the owner"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students (staff)",
                "responses": {
                    "200": {"description": "Student page"}
                }
            }
        },
        "/students/{id}/track": {
            "post": {
                "tags": ["Students"],
                "summary": "Record major and track choice",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Updated student"}
                }
            }
        },
        "/students/{id}/transcript": {
            "get": {
                "tags": ["Grades"],
                "summary": "Student transcript with GPA",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "semester", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Transcript"}
                }
            }
        },
        "/settings/enrollment": {
            "get": {
                "tags": ["Settings"],
                "summary": "Current enrollment window",
                "responses": {
                    "200": {"description": "Window view with countdown"}
                }
            },
            "put": {
                "tags": ["Settings"],
                "summary": "Configure the enrollment window (admin)",
                "responses": {
                    "200": {"description": "Stored window"}
                }
            }
        },
        "/announcements": {
            "get": {
                "tags": ["Announcements"],
                "summary": "List announcements for the current role",
                "responses": {
                    "200": {"description": "Announcement page"}
                }
            }
        },
        "/assistance/suggest": {
            "post": {
                "tags": ["Assistance"],
                "summary": "Suggest courses for a free-text question",
                "responses": {
                    "200": {"description": "Scored suggestions"},
                    "503": {"description": "Assistance disabled"}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an export job",
                "responses": {
                    "202": {"description": "Job accepted"}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Job status with download URL when done"}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered export",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "404": {"description": "Unknown or expired token"}
                }
            }
        }
    },
    "definitions": {
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
