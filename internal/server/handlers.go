package server

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/manifest"
)

type handlers struct {
	store     cache.Store
	namespace string
	excludes  []string
}

type slotPayload struct {
	Slot       string `json:"slot"`
	Kind       string `json:"kind,omitempty"`
	URL        string `json:"url"`
	Filename   string `json:"filename"`
	PublicPath string `json:"public_path"`
}

// assetMap 返回 manifest 中的 URL 重写表，每次请求都重新读取以反映最新一次 prepare。
func (h *handlers) assetMap(c fiber.Ctx) error {
	man, err := h.loadManifest()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "manifest_unavailable"})
	}
	rewrite := make(map[string]string, len(man.Slots))
	slots := make([]slotPayload, 0, len(man.Slots))
	for _, name := range man.SlotNames() {
		entry := man.Slots[name]
		public := cache.PublicPath(entry.Filename)
		rewrite[entry.URL] = public
		slots = append(slots, slotPayload{
			Slot:       name,
			Kind:       entry.Kind,
			URL:        entry.URL,
			Filename:   entry.Filename,
			PublicPath: public,
		})
	}
	return c.JSON(fiber.Map{
		"namespace": h.namespace,
		"assetMap":  rewrite,
		"slots":     slots,
	})
}

// resolve 把远端 URL 重定向到本地路径；未缓存时返回 404，由调用方回退到远端地址。
func (h *handlers) resolve(c fiber.Ctx) error {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url_required"})
	}
	man, err := h.loadManifest()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "manifest_unavailable"})
	}
	for _, name := range man.SlotNames() {
		entry := man.Slots[name]
		if entry.URL != target {
			continue
		}
		locator := cache.Locator{Namespace: h.namespace, Filename: entry.Filename}
		if _, err := h.store.Stat(requestContext(c), locator); err != nil {
			break
		}
		return c.Redirect().Status(fiber.StatusFound).To(cache.PublicPath(entry.Filename))
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_cached"})
}

// file 直接从缓存目录流式返回文件，元数据与临时文件不对外暴露。
func (h *handlers) file(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" || cache.IsTempName(name) || cache.HasExcludedSuffix(name, h.excludes) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	res, err := h.store.Open(requestContext(c), cache.Locator{Namespace: h.namespace, Filename: name})
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) || errors.Is(err, cache.ErrInvalidLocator) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return err
	}
	if ext := filepath.Ext(name); ext != "" {
		c.Type(strings.TrimPrefix(ext, "."))
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.SendStream(res.Reader, int(res.Entry.SizeBytes))
}

func (h *handlers) loadManifest() (*manifest.Manifest, error) {
	dir, err := h.store.NamespaceDir(h.namespace)
	if err != nil {
		return nil, err
	}
	man, _, _ := manifest.Load(dir)
	return man, nil
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
