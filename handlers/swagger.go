package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the portal.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>freightline-portal — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the portal endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "freightline-portal", "version": "v0.1.0" },
  "paths": {
    "/document": {
      "get": {
        "summary": "Read a document by key, optionally with a cached URL hint",
        "parameters": [
          {"name":"key","in":"query","required":true,"schema":{"type":"string"}},
          {"name":"url","in":"query","required":false,"schema":{"type":"string"}}
        ],
        "responses": { "200": { "description": "document value and URL, both null when absent" }, "400": { "description": "missing or invalid key" } }
      },
      "put": {
        "summary": "Write a document value for a key",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"key":{"type":"string"},"data":{}},"required":["key","data"]}}}},
        "responses": { "200": { "description": "new document URL" }, "400": { "description": "invalid input" } }
      }
    },
    "/upload": {
      "post": { "summary": "Relay a file upload into the object store", "responses": { "200": { "description": "stored object URL" }, "400": { "description": "missing or non-whitelisted parameters" } } }
    },
    "/auth/login": {
      "post": {
        "summary": "Authenticate with portal credentials",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"},"password":{"type":"string"}},"required":["username","password"]}}}},
        "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/users": {
      "get": { "summary": "List portal accounts (admin)", "responses": { "200": { "description": "accounts without credential material" } } },
      "post": { "summary": "Create or update an account (admin)", "responses": { "200": { "description": "stored account" }, "400": { "description": "invalid input" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
