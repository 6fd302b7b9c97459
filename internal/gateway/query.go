package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"barberia-gateway/internal/resource"
)

// ListParams is a validated list request, ready to forward to the backend.
type ListParams struct {
	Page    int
	PerPage int
	Query   url.Values
}

const (
	defaultPerPage = 25
	maxPerPage     = 100
)

// ParseListParams validates the list query parameters against the resource's
// field schema and rebuilds them for backend forwarding. Filters use the
// filter[field] / filter[field.op] syntax; sort is a comma list with a
// leading dash for descending; q is free-text search passed through as-is.
func ParseListParams(c *fiber.Ctx, res *resource.Resource) (*ListParams, error) {
	params := &ListParams{
		Page:    1,
		PerPage: defaultPerPage,
		Query:   url.Values{},
	}

	for key, val := range c.Queries() {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		inner := key[7 : len(key)-1]
		field, _ := parseFilterKey(inner)
		if !res.HasField(field) {
			return nil, &AppError{
				Code:    "UNKNOWN_FIELD",
				Status:  400,
				Message: fmt.Sprintf("Unknown filter field: %s", field),
			}
		}
		params.Query.Set(key, val)
	}

	if sortParam := c.Query("sort"); sortParam != "" {
		for _, part := range strings.Split(sortParam, ",") {
			part = strings.TrimSpace(part)
			field := strings.TrimPrefix(part, "-")
			if !res.HasField(field) {
				return nil, &AppError{
					Code:    "UNKNOWN_FIELD",
					Status:  400,
					Message: fmt.Sprintf("Unknown sort field: %s", field),
				}
			}
		}
		params.Query.Set("sort", sortParam)
	}

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			params.Page = v
		}
	}
	if pp := c.Query("per_page"); pp != "" {
		if v, err := strconv.Atoi(pp); err == nil && v > 0 {
			params.PerPage = v
			if params.PerPage > maxPerPage {
				params.PerPage = maxPerPage
			}
		}
	}
	params.Query.Set("page", strconv.Itoa(params.Page))
	params.Query.Set("per_page", strconv.Itoa(params.PerPage))

	if q := c.Query("q"); q != "" {
		params.Query.Set("q", q)
	}

	return params, nil
}

// parseFilterKey splits "price.gte" into ("price", "gte") or "status" into
// ("status", "eq").
func parseFilterKey(key string) (string, string) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return key, "eq"
}
