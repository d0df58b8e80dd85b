package templates

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AbyssalKaz/Console101Farm/internal/cv"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 100, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

const testTemplatesYAML = `templates:
  - name: tempest
    path: tempest.png
    type: spell
    threshold: 0.85
    region: {x1: 0, y1: 400, x2: 1920, y2: 800}
  - name: colossal
    path: colossal.png
    type: enchant
    scale: 0.5
  - name: still_there
    path: still_there.png
  - name: tempest_enchanted
    path: missing.png
    type: enchanted
`

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "tempest.png"), 12, 10)
	writePNG(t, filepath.Join(dir, "colossal.png"), 20, 16)
	writePNG(t, filepath.Join(dir, "still_there.png"), 30, 8)

	yamlPath := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(yamlPath, []byte(testTemplatesYAML), 0644); err != nil {
		t.Fatalf("Failed to write YAML: %v", err)
	}

	registry := NewTemplateRegistry(dir)
	if err := registry.LoadFromFile(yamlPath); err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	if registry.Count() != 4 {
		t.Fatalf("Expected 4 templates, got %d", registry.Count())
	}

	tempest, ok := registry.Get("tempest")
	if !ok {
		t.Fatal("tempest not registered")
	}
	if tempest.Type != cv.CardSpell || tempest.Threshold != 0.85 {
		t.Errorf("Unexpected tempest template: %+v", tempest)
	}
	if tempest.Region == nil || tempest.Region.Y1 != 400 || tempest.Region.X2 != 1920 {
		t.Errorf("Unexpected tempest region: %+v", tempest.Region)
	}

	still, _ := registry.Get("still_there")
	if still.Type != cv.CardUnknown {
		t.Errorf("Untyped template should be CardUnknown, got %v", still.Type)
	}

	colossal, err := registry.Reference("colossal")
	if err != nil {
		t.Fatalf("Failed to load colossal: %v", err)
	}
	if w, h := colossal.Size(); w != 10 || h != 8 {
		t.Errorf("Expected colossal scaled to 10x8, got %dx%d", w, h)
	}

	if _, err := registry.Reference("tempest_enchanted"); err == nil {
		t.Error("Expected error for missing image")
	}
	if _, err := registry.Reference("nope"); err == nil {
		t.Error("Expected error for unregistered template")
	}
}

func TestCardReferences(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "tempest.png"), 12, 10)
	writePNG(t, filepath.Join(dir, "colossal.png"), 20, 16)
	writePNG(t, filepath.Join(dir, "still_there.png"), 30, 8)
	yamlPath := filepath.Join(dir, "templates.yaml")
	os.WriteFile(yamlPath, []byte(testTemplatesYAML), 0644)

	registry := NewTemplateRegistry(dir).WithWarningLogger(func(string, ...interface{}) {})
	if err := registry.LoadFromFile(yamlPath); err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	refs, err := registry.CardReferences()
	if err != nil {
		t.Fatalf("CardReferences failed: %v", err)
	}

	var names []string
	for _, r := range refs {
		names = append(names, r.Name)
		if r.Image == nil {
			t.Errorf("Reference %s has no image", r.Name)
		}
	}
	if strings.Join(names, ",") != "colossal,tempest" {
		t.Errorf("Expected loadable typed references only, got %v", names)
	}
}

func TestRegisterDefinitionsValidation(t *testing.T) {
	tests := []struct {
		name string
		def  TemplateDefinition
		want string
	}{
		{"missing name", TemplateDefinition{Path: "a.png"}, "name cannot be empty"},
		{"missing path", TemplateDefinition{Name: "a"}, "path cannot be empty"},
		{"bad type", TemplateDefinition{Name: "a", Path: "a.png", Type: "potion"}, "unknown card type"},
		{"empty region", TemplateDefinition{Name: "a", Path: "a.png", Region: &RegionDef{X1: 5, Y1: 5, X2: 5, Y2: 10}}, "empty region"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewTemplateRegistry(t.TempDir())
			err := registry.RegisterDefinitions([]TemplateDefinition{tt.def})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config", "templates.yaml")

	var warnings int
	registry := NewTemplateRegistry(dir).WithWarningLogger(func(string, ...interface{}) { warnings++ })
	if err := registry.LoadOrCreate(yamlPath); err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}

	if _, err := os.Stat(yamlPath); err != nil {
		t.Fatalf("Expected defaults file to be written: %v", err)
	}
	if registry.Count() != len(DefaultDefinitions()) {
		t.Errorf("Expected %d templates, got %d", len(DefaultDefinitions()), registry.Count())
	}
	if !registry.Has(cv.RefManaZero) || !registry.Has("mana_digit_9") {
		t.Error("Expected mana references in defaults")
	}
	// Preloaded card images are missing from the temp dir
	if warnings != 3 {
		t.Errorf("Expected 3 preload warnings, got %d", warnings)
	}
}

func TestRegisterImageAndRemove(t *testing.T) {
	registry := NewTemplateRegistry(t.TempDir())
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	ref := cv.Reference{Template: cv.Template{Name: "mem", Type: cv.CardSpell}, Image: img}

	if err := registry.RegisterImage(ref); err != nil {
		t.Fatalf("RegisterImage failed: %v", err)
	}

	got, err := registry.Reference("mem")
	if err != nil || got.Image != img {
		t.Fatalf("Expected in-memory image back, got %v, %v", got.Image, err)
	}

	registry.UnloadAll()
	if _, err := registry.Reference("mem"); err != nil {
		t.Errorf("In-memory images should survive UnloadAll: %v", err)
	}

	if !registry.Remove("mem") || registry.Has("mem") {
		t.Error("Remove should drop the template")
	}
	if registry.Remove("mem") {
		t.Error("Second remove should report false")
	}
}

func TestImageCacheStats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writePNG(t, path, 6, 6)

	cache := NewImageCache()
	if err := cache.Register(cv.Template{Name: "a", Path: path}, false, true); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := cache.Get("a"); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}
	if err := cache.Release("a"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	stats := cache.Stats()
	if stats.Misses != 1 || stats.Hits != 2 || stats.Unloads != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
