package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"competition-ledger/middleware"

	"github.com/gofiber/fiber/v2"
)

func TestGatewayAuthMiddleware(t *testing.T) {
	t.Setenv("LEDGER_SERVICE_TOKEN", "secret-token")

	app := fiber.New()
	app.Use(middleware.GatewayAuthMiddleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"bearer token", "Bearer secret-token", http.StatusOK},
		{"raw token", "secret-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}
		})
	}
}

func TestCallerContextMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CallerContextMiddleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		return c.JSON(fiber.Map{
			"wallet": c.Locals("user_id"),
			"roles":  roles,
		})
	})

	// No identity header is a hard 401
	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without X-User-ID, got %d", resp.StatusCode)
	}

	// Identity and roles flow through to locals
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-User-ID", "wallet-1")
	req.Header.Set("X-User-Roles", "admin, organizer")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with identity headers, got %d", resp.StatusCode)
	}
}
