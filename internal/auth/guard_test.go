package auth

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"barberia-gateway/internal/resource"
)

var testCookie = CookieConfig{Name: "barberia_token", TTL: time.Hour}

func newGuardApp(t *testing.T) *fiber.App {
	t.Helper()

	reg := resource.NewRegistry()
	reg.Load(nil, []resource.RouteRequirement{
		{Path: "/dashboard", Permissions: nil},
		{Path: "/dashboard/clientes", Permissions: []string{"READ_CLIENTS"}},
	})

	g := NewGuard(reg, testCookie, "/login", "/dashboard",
		[]string{"/", "/login", "/servicios"}, nil)

	app := fiber.New()
	app.Use(g.Pages())
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendString("page")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest("GET", path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: token})
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s failed: %v", path, err)
	}
	return resp
}

func TestGuard_NoToken_RedirectsToLoginWithReturnTarget(t *testing.T) {
	app := newGuardApp(t)

	resp := get(t, app, "/dashboard/clientes", "")
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if loc != "/login?redirect=%2Fdashboard%2Fclientes" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestGuard_ExpiredToken_RedirectsAndClearsCookie(t *testing.T) {
	app := newGuardApp(t)
	token := makeToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(-5 * time.Minute).Unix(),
		"permissions": []string{"READ_CLIENTS"},
	})

	resp := get(t, app, "/dashboard/clientes", token)
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Location"), "/login?redirect=") {
		t.Fatalf("expected login redirect, got %s", resp.Header.Get("Location"))
	}

	cleared := false
	for _, sc := range resp.Header.Values("Set-Cookie") {
		// A cleared cookie is written with an empty value.
		if strings.HasPrefix(sc, testCookie.Name+"=;") {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected auth cookie to be cleared, got %v", resp.Header.Values("Set-Cookie"))
	}
}

func TestGuard_MissingPermission_RedirectsToLanding(t *testing.T) {
	app := newGuardApp(t)
	token := makeToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		"roles": []string{"BARBER"}, "permissions": []string{"READ_BOOKINGS"},
	})

	resp := get(t, app, "/dashboard/clientes", token)
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard, got %s", resp.Header.Get("Location"))
	}
}

func TestGuard_PermissionPresent_Proceeds(t *testing.T) {
	app := newGuardApp(t)
	token := makeToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		"permissions": []string{"READ_CLIENTS"},
	})

	resp := get(t, app, "/dashboard/clientes", token)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestGuard_FullAccessShim_Proceeds(t *testing.T) {
	app := newGuardApp(t)
	token := makeToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		"roles": []string{"GERENTE_ADMIN"},
	})

	resp := get(t, app, "/dashboard/clientes", token)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 via the ADMIN role fallback, got %d", resp.StatusCode)
	}
}

func TestGuard_AuthenticatedOnLogin_RedirectsToLanding(t *testing.T) {
	app := newGuardApp(t)
	token := makeToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
	})

	resp := get(t, app, "/login", token)
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard, got %s", resp.Header.Get("Location"))
	}
}

func TestGuard_PublicPath_AllowsAnonymous(t *testing.T) {
	app := newGuardApp(t)

	for _, path := range []string{"/login", "/servicios", "/servicios/corte-clasico"} {
		resp := get(t, app, path, "")
		if resp.StatusCode != 200 {
			t.Fatalf("expected 200 for public %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestGuard_UndeclaredPathRequiresOnlyAuthentication(t *testing.T) {
	app := newGuardApp(t)
	token := makeToken(t, map[string]any{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		"roles": []string{"BARBER"},
	})

	resp := get(t, app, "/dashboard", token)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 for authenticated-only path, got %d", resp.StatusCode)
	}

	resp = get(t, app, "/dashboard/perfil", token)
	if resp.StatusCode != 200 {
		t.Fatalf("expected longest-prefix match to /dashboard (no permissions), got %d", resp.StatusCode)
	}
}
