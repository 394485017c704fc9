package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assetkind"
)

func TestEncodeKindsSortsByKey(t *testing.T) {
	encoded := encodeKinds([]assetkind.KindMetadata{
		{Key: "video", DefaultExtension: ".mp4", Validation: assetkind.ValidationModeSignature},
		{Key: "alpha", DefaultExtension: ".webm", Validation: assetkind.ValidationModeNever},
	})
	if len(encoded) != 2 {
		t.Fatalf("expected 2 kinds, got %d", len(encoded))
	}
	if encoded[0].Key != "alpha" || encoded[0].ValidationMode != "never" {
		t.Fatalf("expected alpha first with never validation, got %+v", encoded[0])
	}
	if encoded[1].DefaultExtension != ".mp4" {
		t.Fatalf("unexpected extension: %+v", encoded[1])
	}
}

func TestKindRoutes(t *testing.T) {
	app := fiber.New()
	RegisterKindRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/kinds/video", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.StatusCode, body)
	}
	var payload kindPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.DefaultExtension != ".mp4" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/-/kinds/hologram", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
