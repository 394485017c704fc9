package routes

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assetkind"
)

// RegisterKindRoutes 暴露 /-/kinds 诊断接口，列出已注册的资源类型与校验策略。
func RegisterKindRoutes(app *fiber.App) {
	if app == nil {
		return
	}

	app.Get("/-/kinds", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"kinds": encodeKinds(assetkind.List())})
	})

	app.Get("/-/kinds/:key", func(c fiber.Ctx) error {
		key := strings.ToLower(strings.TrimSpace(c.Params("key")))
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind_key_required"})
		}
		meta, ok := assetkind.Resolve(key)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "kind_not_found"})
		}
		return c.JSON(encodeKind(meta))
	})
}

type kindPayload struct {
	Key              string `json:"key"`
	Description      string `json:"description"`
	DefaultExtension string `json:"default_extension,omitempty"`
	ValidationMode   string `json:"validation_mode"`
}

func encodeKinds(kinds []assetkind.KindMetadata) []kindPayload {
	if len(kinds) == 0 {
		return nil
	}
	sort.Slice(kinds, func(i, j int) bool {
		return kinds[i].Key < kinds[j].Key
	})
	result := make([]kindPayload, 0, len(kinds))
	for _, meta := range kinds {
		result = append(result, encodeKind(meta))
	}
	return result
}

func encodeKind(meta assetkind.KindMetadata) kindPayload {
	return kindPayload{
		Key:              meta.Key,
		Description:      meta.Description,
		DefaultExtension: meta.DefaultExtension,
		ValidationMode:   string(meta.Validation),
	}
}
