package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

// bind parses the body into req and runs tag validation.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

// bindOptional tolerates an empty body.
func bindOptional(c *fiber.Ctx, req any) error {
	if len(c.Body()) == 0 {
		return dto.Validate(req)
	}
	return bind(c, req)
}

func queryList(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	val := c.Query(key)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid timestamp", map[string]any{key: "rfc3339"})
	}
	return &t, nil
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	val := c.Query(key)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid boolean", map[string]any{key: "bool"})
	}
	return &b, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// paging converts page/page_size into limit and offset.
func paging(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return pageSize, (page - 1) * pageSize
}
