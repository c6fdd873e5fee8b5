package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func registerSwaggerRoutes(r chi.Router) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	r.Get("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	r.Get("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Transfer Orchestrator API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Transfer Orchestrator API",
    "version": "1.0.0"
  },
  "security": [{"ApiKey": []}],
  "paths": {
    "/api/transfers": {
      "post": {
        "summary": "Create transfer",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["senderCustomerId", "receiverCustomerId", "amount", "currency"],
                "properties": {
                  "senderCustomerId": {"type": "string", "format": "uuid"},
                  "receiverCustomerId": {"type": "string", "format": "uuid"},
                  "amount": {"type": "string"},
                  "currency": {"type": "string", "minLength": 3, "maxLength": 3}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Created"},
          "400": {"description": "Validation error, limit exceeded or high risk"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/api/transfers/{id}": {
      "get": {
        "summary": "Get transfer by id",
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
        "responses": {
          "200": {"description": "Transfer fetched"},
          "404": {"description": "Transfer not found"}
        }
      }
    },
    "/api/transfers/by-code/{code}": {
      "get": {
        "summary": "Get transfer by transaction code",
        "parameters": [{"name": "code", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Transfer fetched"},
          "404": {"description": "Transfer not found"}
        }
      }
    },
    "/api/transfers/{id}/complete": {
      "post": {
        "summary": "Complete transfer",
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
        "responses": {
          "200": {"description": "Transfer completed"},
          "400": {"description": "Transfer cannot be completed"},
          "404": {"description": "Transfer not found"}
        }
      }
    },
    "/api/transfers/{id}/cancel": {
      "post": {
        "summary": "Cancel transfer",
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
        "responses": {
          "200": {"description": "Transfer cancelled, fee refunded"},
          "400": {"description": "Transfer cannot be cancelled"},
          "404": {"description": "Transfer not found"}
        }
      }
    },
    "/api/transfers/customer/{customerId}/daily-total": {
      "get": {
        "summary": "Get today's running total for a sender",
        "parameters": [{"name": "customerId", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
        "responses": {
          "200": {"description": "Daily total fetched"},
          "404": {"description": "Customer not found"}
        }
      }
    },
    "/api/transfers/customer-blocked": {
      "post": {
        "summary": "Cancel open transfers of a blocked customer",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["customerId"],
                "properties": {"customerId": {"type": "string", "format": "uuid"}}
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Open transfers cancelled"},
          "400": {"description": "Validation error"}
        }
      }
    },
    "/api/rates/{currency}": {
      "get": {
        "summary": "Get TRY to currency rate",
        "parameters": [{"name": "currency", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Rate fetched"},
          "400": {"description": "Rate unavailable"}
        }
      }
    },
    "/api/charges": {
      "get": {
        "summary": "Quote fee and approval requirement",
        "parameters": [
          {"name": "amount", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "currency", "in": "query", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "Charges fetched"},
          "400": {"description": "Validation error"}
        }
      }
    },
    "/health": {
      "get": {
        "summary": "Health check",
        "security": [],
        "responses": {"200": {"description": "Healthy"}}
      }
    }
  },
  "components": {
    "securitySchemes": {
      "ApiKey": {"type": "apiKey", "in": "header", "name": "X-Api-Key"}
    }
  }
}`
