package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"barberia-gateway/internal/audit"
	"barberia-gateway/internal/auth"
	"barberia-gateway/internal/backend"
	"barberia-gateway/internal/resource"
)

// Handler proxies CRUD traffic for registered resources to the external
// backend. Every action is permission-checked and validated before a single
// byte goes over the wire; the backend re-checks everything it receives.
type Handler struct {
	backend  *backend.Client
	registry *resource.Registry
	trail    audit.Recorder
}

func NewHandler(b *backend.Client, reg *resource.Registry, trail audit.Recorder) *Handler {
	if trail == nil {
		trail = audit.Noop{}
	}
	return &Handler{backend: b, registry: reg, trail: trail}
}

// List handles GET /api/:resource
func (h *Handler) List(c *fiber.Ctx) error {
	res, err := h.resolveResource(c)
	if err != nil {
		return err
	}

	sess := auth.SessionFrom(c)
	if err := h.checkPermission(c, sess, res, resource.ActionRead); err != nil {
		return err
	}

	params, err := ParseListParams(c, res)
	if err != nil {
		return err
	}

	raw, err := h.backend.GetJSON(c.Context(), res.BackendPath, params.Query, sess.Token, sess.TenantID())
	if err != nil {
		return FromBackend(err)
	}

	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return BadGatewayError("Backend returned an unreadable response")
	}
	if payload["data"] == nil {
		payload["data"] = []any{}
	}

	meta, _ := payload["meta"].(map[string]any)
	if meta == nil {
		meta = map[string]any{"page": params.Page, "per_page": params.PerPage}
	}
	meta["capabilities"] = sess.Capabilities(res.Permissions)
	payload["meta"] = meta

	return c.JSON(payload)
}

// GetByID handles GET /api/:resource/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	res, err := h.resolveResource(c)
	if err != nil {
		return err
	}

	sess := auth.SessionFrom(c)
	if err := h.checkPermission(c, sess, res, resource.ActionRead); err != nil {
		return err
	}

	id := c.Params("id")
	raw, err := h.backend.GetJSON(c.Context(), res.BackendPath+"/"+id, nil, sess.Token, sess.TenantID())
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return NotFoundError(res.Name, id)
		}
		return FromBackend(err)
	}

	return c.Type("json").Send(raw)
}

// Create handles POST /api/:resource
func (h *Handler) Create(c *fiber.Ctx) error {
	res, err := h.resolveResource(c)
	if err != nil {
		return err
	}

	sess := auth.SessionFrom(c)
	if err := h.checkPermission(c, sess, res, resource.ActionCreate); err != nil {
		return err
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	if details := ValidatePayload(res, body, true); len(details) > 0 {
		return ValidationError(details)
	}

	raw, err := h.backend.PostJSON(c.Context(), res.BackendPath, body, sess.Token, sess.TenantID())
	if err != nil {
		return FromBackend(err)
	}

	return c.Status(201).Type("json").Send(raw)
}

// Update handles PUT /api/:resource/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	res, err := h.resolveResource(c)
	if err != nil {
		return err
	}

	sess := auth.SessionFrom(c)
	if err := h.checkPermission(c, sess, res, resource.ActionUpdate); err != nil {
		return err
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	if details := ValidatePayload(res, body, false); len(details) > 0 {
		return ValidationError(details)
	}

	id := c.Params("id")
	raw, err := h.backend.PutJSON(c.Context(), res.BackendPath+"/"+id, body, sess.Token, sess.TenantID())
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return NotFoundError(res.Name, id)
		}
		return FromBackend(err)
	}

	return c.Type("json").Send(raw)
}

// Delete handles DELETE /api/:resource/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	res, err := h.resolveResource(c)
	if err != nil {
		return err
	}

	sess := auth.SessionFrom(c)
	if err := h.checkPermission(c, sess, res, resource.ActionDelete); err != nil {
		return err
	}

	id := c.Params("id")
	if _, err := h.backend.DeleteJSON(c.Context(), res.BackendPath+"/"+id, sess.Token, sess.TenantID()); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return NotFoundError(res.Name, id)
		}
		return FromBackend(err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// PublicList handles GET /api/public/:resource — the marketing site reads
// resources flagged public without a session.
func (h *Handler) PublicList(c *fiber.Ctx) error {
	res, err := h.resolvePublicResource(c)
	if err != nil {
		return err
	}

	params, err := ParseListParams(c, res)
	if err != nil {
		return err
	}

	raw, err := h.backend.GetJSON(c.Context(), res.BackendPath, params.Query, "", "")
	if err != nil {
		return FromBackend(err)
	}
	return c.Type("json").Send(raw)
}

// PublicGet handles GET /api/public/:resource/:id
func (h *Handler) PublicGet(c *fiber.Ctx) error {
	res, err := h.resolvePublicResource(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	raw, err := h.backend.GetJSON(c.Context(), res.BackendPath+"/"+id, nil, "", "")
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return NotFoundError(res.Name, id)
		}
		return FromBackend(err)
	}
	return c.Type("json").Send(raw)
}

func (h *Handler) resolveResource(c *fiber.Ctx) (*resource.Resource, error) {
	name := c.Params("resource")
	res := h.registry.Get(name)
	if res == nil {
		return nil, UnknownResourceError(name)
	}
	return res, nil
}

func (h *Handler) resolvePublicResource(c *fiber.Ctx) (*resource.Resource, error) {
	res, err := h.resolveResource(c)
	if err != nil {
		return nil, err
	}
	// Non-public resources stay invisible to the marketing site.
	if !res.Public {
		return nil, UnknownResourceError(res.Name)
	}
	return res, nil
}

// checkPermission verifies the session is allowed to perform the action on
// the resource. Full access bypasses; the decision is recorded either way.
func (h *Handler) checkPermission(c *fiber.Ctx, sess *auth.Session, res *resource.Resource, action string) error {
	if sess == nil {
		return UnauthorizedError("Authentication required")
	}

	perm := res.PermissionFor(action)
	if perm == "" {
		h.record(c, sess, res, action, audit.OutcomeDeny)
		return ForbiddenError(fmt.Sprintf("No permission declared for %s on %s", action, res.Name))
	}

	if !sess.Claims.Has(perm) {
		h.record(c, sess, res, action, audit.OutcomeDeny)
		return ForbiddenError(fmt.Sprintf("Permission denied for %s on %s", action, res.Name))
	}

	h.record(c, sess, res, action, audit.OutcomeAllow)
	return nil
}

func (h *Handler) record(c *fiber.Ctx, sess *auth.Session, res *resource.Resource, action, outcome string) {
	rule := "permission"
	if sess.Claims.HasFullAccess() {
		rule = "full_access"
	}
	h.trail.Record(audit.Decision{
		Source:   "gateway",
		Subject:  sess.Subject(),
		Path:     c.Path(),
		Resource: res.Name,
		Action:   action,
		Rule:     rule,
		Outcome:  outcome,
	})
}
