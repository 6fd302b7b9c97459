package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"barberia-gateway/internal/auth"
	"barberia-gateway/internal/backend"
	"barberia-gateway/internal/resource"
)

var gwCookie = auth.CookieConfig{Name: "barberia_token", TTL: time.Hour}

func gwToken(t *testing.T, payload map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(b) + ".sig"
}

func newGatewayApp(t *testing.T, backendURL string) *fiber.App {
	t.Helper()

	reg := resource.NewRegistry()
	reg.Load(resource.Catalog(), resource.PageRoutes())

	h := NewHandler(backend.New(backendURL, 2*time.Second), reg, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *AppError
			if errors.As(err, &appErr) {
				return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
			}
			return c.Status(500).JSON(ErrorResponse{Error: &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error"}})
		},
	})
	RegisterPublicRoutes(app, h)
	RegisterGatewayRoutes(app, h, auth.RequireSession(gwCookie))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: gwCookie.Name, Value: token})
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeError(t *testing.T, resp *http.Response) *AppError {
	t.Helper()
	raw, _ := io.ReadAll(resp.Body)
	var envelope ErrorResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("parse error envelope: %v (%s)", err, raw)
	}
	return envelope.Error
}

func TestList_ProxiesAndAddsCapabilities(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if r.URL.Path != "/services" {
			t.Fatalf("unexpected backend path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") == "" {
			t.Fatal("expected the bearer token to be forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":"s1","name":"Corte"}],"meta":{"page":1,"per_page":25,"total":1}}`)
	}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	token := gwToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		"permissions": []string{"READ_SERVICES", "UPDATE_SERVICES"},
	})

	resp := doJSON(t, app, "GET", "/api/services", token, "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if atomic.LoadInt64(&hits) != 1 {
		t.Fatalf("expected exactly one backend call, got %d", hits)
	}

	raw, _ := io.ReadAll(resp.Body)
	var payload struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Total        int             `json:"total"`
			Capabilities map[string]bool `json:"capabilities"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("parse response: %v (%s)", err, raw)
	}
	if len(payload.Data) != 1 || payload.Meta.Total != 1 {
		t.Fatalf("backend payload not forwarded: %s", raw)
	}
	caps := payload.Meta.Capabilities
	if !caps["read"] || !caps["update"] || caps["delete"] {
		t.Fatalf("unexpected capabilities: %v", caps)
	}
}

func TestCreate_DeniedBeforeBackendCall(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	token := gwToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		"permissions": []string{"READ_SERVICES"},
	})

	resp := doJSON(t, app, "POST", "/api/services", token, `{"name":"Corte","price":10,"category_id":"c1"}`)
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if appErr := decodeError(t, resp); appErr.Code != "FORBIDDEN" {
		t.Fatalf("unexpected code: %s", appErr.Code)
	}
	if atomic.LoadInt64(&hits) != 0 {
		t.Fatal("denied request must never reach the backend")
	}
}

func TestCreate_FullAccessBypassesPermission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(201)
		fmt.Fprint(w, `{"data":{"id":"s9"}}`)
	}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	token := gwToken(t, map[string]any{
		"sub": "boss", "exp": time.Now().Add(time.Hour).Unix(),
		"full_access": true,
	})

	resp := doJSON(t, app, "POST", "/api/services", token, `{"name":"Corte","price":10,"category_id":"c1"}`)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
}

func TestCreate_ValidationFailureNeverReachesBackend(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	token := gwToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		"permissions": []string{"CREATE_SERVICES"},
	})

	resp := doJSON(t, app, "POST", "/api/services", token, `{"name":"Corte","price":-5,"category_id":"c1"}`)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	appErr := decodeError(t, resp)
	if appErr.Code != "VALIDATION_FAILED" || len(appErr.Details) == 0 {
		t.Fatalf("unexpected validation envelope: %+v", appErr)
	}
	if appErr.Details[0].Field != "price" || appErr.Details[0].Rule != "min" {
		t.Fatalf("unexpected detail: %+v", appErr.Details[0])
	}
	if atomic.LoadInt64(&hits) != 0 {
		t.Fatal("invalid payload must never reach the backend")
	}
}

func TestGetByID_BackendNotFoundBecomes404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		fmt.Fprint(w, `{"error":{"code":"NOT_FOUND","message":"no such service"}}`)
	}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	token := gwToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		"permissions": []string{"READ_SERVICES"},
	})

	resp := doJSON(t, app, "GET", "/api/services/nope", token, "")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if appErr := decodeError(t, resp); appErr.Code != "NOT_FOUND" {
		t.Fatalf("unexpected code: %s", appErr.Code)
	}
}

func TestList_BackendFailureBecomes502(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	token := gwToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		"permissions": []string{"READ_SERVICES"},
	})

	resp := doJSON(t, app, "GET", "/api/services", token, "")
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if appErr := decodeError(t, resp); appErr.Code != "BAD_GATEWAY" {
		t.Fatalf("unexpected code: %s", appErr.Code)
	}
}

func TestMissingSessionIs401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	resp := doJSON(t, app, "GET", "/api/services", "", "")
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestUnknownResourceIs404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	token := gwToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(), "full_access": true,
	})

	resp := doJSON(t, app, "GET", "/api/invoices", token, "")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if appErr := decodeError(t, resp); appErr.Code != "UNKNOWN_RESOURCE" {
		t.Fatalf("unexpected code: %s", appErr.Code)
	}
}

func TestPublicList_NoSessionRequired(t *testing.T) {
	var anonymous bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anonymous = r.Header.Get("Authorization") == ""
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":"s1"}]}`)
	}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	resp := doJSON(t, app, "GET", "/api/public/services", "", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !anonymous {
		t.Fatal("public reads must not forward any credentials")
	}
}

func TestPublicList_NonPublicResourceStaysHidden(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer srv.Close()

	app := newGatewayApp(t, srv.URL)
	resp := doJSON(t, app, "GET", "/api/public/bookings", "", "")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for a non-public resource, got %d", resp.StatusCode)
	}
	if atomic.LoadInt64(&hits) != 0 {
		t.Fatal("hidden resource must never reach the backend")
	}
}
