package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/AbyssalKaz/Console101Farm/internal/cv"
	"gopkg.in/yaml.v3"
)

// TemplateRegistry manages the reference templates loaded from YAML files
type TemplateRegistry struct {
	mu         sync.RWMutex
	templates  map[string]cv.Template
	basePath   string      // Base path for template image files
	imageCache *ImageCache // Loaded images
	warn       func(format string, args ...interface{})
}

// TemplateDefinition represents a template in the YAML file
type TemplateDefinition struct {
	Name        string     `yaml:"name"`
	Path        string     `yaml:"path"`
	Type        string     `yaml:"type,omitempty"`
	Threshold   float64    `yaml:"threshold,omitempty"`
	Region      *RegionDef `yaml:"region,omitempty"`
	Scale       float64    `yaml:"scale,omitempty"`
	Preload     bool       `yaml:"preload,omitempty"`      // Load image at startup
	UnloadAfter bool       `yaml:"unload_after,omitempty"` // Unload after use
}

// RegionDef represents a region in the YAML file
type RegionDef struct {
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
	X2 int `yaml:"x2"`
	Y2 int `yaml:"y2"`
}

// TemplateFile represents the structure of a template YAML file
type TemplateFile struct {
	Templates []TemplateDefinition `yaml:"templates"`
}

// NewTemplateRegistry creates a new template registry
// basePath is the root directory where template image files are stored
func NewTemplateRegistry(basePath string) *TemplateRegistry {
	return &TemplateRegistry{
		templates:  make(map[string]cv.Template),
		basePath:   basePath,
		imageCache: NewImageCache(),
		warn: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
		},
	}
}

// WithWarningLogger routes non-fatal load problems to fn
func (tr *TemplateRegistry) WithWarningLogger(fn func(format string, args ...interface{})) *TemplateRegistry {
	tr.warn = fn
	return tr
}

// LoadFromFile loads templates from a YAML file
func (tr *TemplateRegistry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", filePath, err)
	}

	var templateFile TemplateFile
	if err := yaml.Unmarshal(data, &templateFile); err != nil {
		return fmt.Errorf("failed to unmarshal template YAML: %w", err)
	}

	return tr.RegisterDefinitions(templateFile.Templates)
}

// LoadOrCreate loads filePath, writing the default definitions there first if it does not exist
func (tr *TemplateRegistry) LoadOrCreate(filePath string) error {
	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		if err := SaveDefinitions(filePath, DefaultDefinitions()); err != nil {
			return err
		}
	}
	return tr.LoadFromFile(filePath)
}

// RegisterDefinitions validates and registers YAML definitions
func (tr *TemplateRegistry) RegisterDefinitions(defs []TemplateDefinition) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for i, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("template %d: name cannot be empty", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("template %d (%s): path cannot be empty", i+1, def.Name)
		}

		cardType, err := cv.ParseCardType(def.Type)
		if err != nil {
			return fmt.Errorf("template %d (%s): %w", i+1, def.Name, err)
		}

		template := cv.Template{
			Name:      def.Name,
			Path:      filepath.Join(tr.basePath, def.Path),
			Threshold: def.Threshold,
			Scale:     def.Scale,
			Type:      cardType,
		}

		if def.Region != nil {
			region := cv.NewRegion(def.Region.X1, def.Region.Y1, def.Region.X2, def.Region.Y2)
			if region.Empty() {
				return fmt.Errorf("template %d (%s): empty region", i+1, def.Name)
			}
			template.Region = &region
		}

		tr.templates[def.Name] = template

		if err := tr.imageCache.Register(template, def.Preload, def.UnloadAfter); err != nil {
			// The image can still be loaded on demand once the file appears
			tr.warn("%v", err)
		}
	}

	return nil
}

// Get retrieves a template by name
func (tr *TemplateRegistry) Get(name string) (cv.Template, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	template, ok := tr.templates[name]
	return template, ok
}

// Register adds a template to the registry programmatically
func (tr *TemplateRegistry) Register(template cv.Template) error {
	if template.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.templates[template.Name] = template
	return tr.imageCache.Register(template, false, false)
}

// RegisterImage adds a template whose image is already in memory
func (tr *TemplateRegistry) RegisterImage(ref cv.Reference) error {
	if ref.Name == "" || ref.Image == nil {
		return fmt.Errorf("reference needs a name and an image")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.templates[ref.Name] = ref.Template
	tr.imageCache.Put(ref)
	return nil
}

// Has checks if a template exists in the registry
func (tr *TemplateRegistry) Has(name string) bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	_, ok := tr.templates[name]
	return ok
}

// List returns all template names in the registry, sorted
func (tr *TemplateRegistry) List() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	names := make([]string, 0, len(tr.templates))
	for name := range tr.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of templates in the registry
func (tr *TemplateRegistry) Count() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	return len(tr.templates)
}

// Remove removes a template from the registry
func (tr *TemplateRegistry) Remove(name string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, ok := tr.templates[name]; ok {
		delete(tr.templates, name)
		tr.imageCache.Forget(name)
		return true
	}
	return false
}

// Reference returns the named template with its image loaded
func (tr *TemplateRegistry) Reference(name string) (cv.Reference, error) {
	if !tr.Has(name) {
		return cv.Reference{}, fmt.Errorf("template '%s' not found in registry", name)
	}

	img, template, err := tr.imageCache.Get(name)
	if err != nil {
		return cv.Reference{}, err
	}
	return cv.Reference{Template: template, Image: img}, nil
}

// CardReferences returns every typed template whose image loads, sorted by name.
// Templates with unreadable images are left out.
func (tr *TemplateRegistry) CardReferences() ([]cv.Reference, error) {
	var refs []cv.Reference
	for _, name := range tr.List() {
		template, ok := tr.Get(name)
		if !ok || template.Type == cv.CardUnknown {
			continue
		}
		ref, err := tr.Reference(name)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ImageCache returns the image cache
func (tr *TemplateRegistry) ImageCache() *ImageCache {
	return tr.imageCache
}

// PreloadAll loads every template image, reporting the ones that failed
func (tr *TemplateRegistry) PreloadAll() error {
	return tr.imageCache.PreloadAll()
}

// UnloadAll unloads all cached images
func (tr *TemplateRegistry) UnloadAll() {
	tr.imageCache.UnloadAll()
}

// CacheStats returns image cache statistics
func (tr *TemplateRegistry) CacheStats() CacheStats {
	return tr.imageCache.Stats()
}

// SaveDefinitions writes definitions as a template YAML file
func SaveDefinitions(filePath string, defs []TemplateDefinition) error {
	data, err := yaml.Marshal(TemplateFile{Templates: defs})
	if err != nil {
		return fmt.Errorf("failed to marshal template YAML: %w", err)
	}

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create template directory: %w", err)
		}
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write template file %s: %w", filePath, err)
	}
	return nil
}

// DefaultDefinitions lists the reference images the farm expects in the images folder
func DefaultDefinitions() []TemplateDefinition {
	defs := []TemplateDefinition{
		{Name: "tempest", Path: "tempest.png", Type: "spell", Preload: true},
		{Name: "colossal", Path: "colossal.png", Type: "enchant", Preload: true},
		{Name: "tempest_enchanted", Path: "tempest_enchanted.png", Type: "enchanted", Preload: true},
		{Name: "still_there", Path: "still_there.png", Type: "ui"},
		{Name: cv.RefManaZero, Path: cv.RefManaZero + ".png", Type: "ui"},
		{Name: cv.RefManaOrbEmpty, Path: cv.RefManaOrbEmpty + ".png", Type: "ui"},
		{Name: cv.RefManaOrbFull, Path: cv.RefManaOrbFull + ".png", Type: "ui"},
	}
	for digit := 0; digit <= 9; digit++ {
		name := fmt.Sprintf("mana_digit_%d", digit)
		defs = append(defs, TemplateDefinition{Name: name, Path: name + ".png", Type: "ui"})
	}
	return defs
}
