package templates

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/AbyssalKaz/Console101Farm/internal/cv"
	"github.com/nfnt/resize"
)

// CachedTemplate extends cv.Template with image caching capabilities
type CachedTemplate struct {
	cv.Template
	image       *image.RGBA  // Cached image data
	mu          sync.RWMutex // Protects image field
	preload     bool         // Whether to preload image at startup
	unloadAfter bool         // Whether to unload after use
	useCount    int          // Number of times loaded (for stats)
}

// ImageCache manages template image loading and caching
type ImageCache struct {
	templates map[string]*CachedTemplate
	mu        sync.RWMutex
	stats     CacheStats
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits        int64 // Cache hits
	Misses      int64 // Cache misses (had to load)
	Loads       int64 // Total load operations
	Unloads     int64 // Total unload operations
	PreloadFail int64 // Failed preloads
}

// NewImageCache creates a new image cache
func NewImageCache() *ImageCache {
	return &ImageCache{
		templates: make(map[string]*CachedTemplate),
	}
}

// Register adds a template to the cache
func (ic *ImageCache) Register(template cv.Template, preload, unloadAfter bool) error {
	cached := &CachedTemplate{
		Template:    template,
		preload:     preload,
		unloadAfter: unloadAfter,
	}

	ic.mu.Lock()
	ic.templates[template.Name] = cached
	ic.mu.Unlock()

	if preload {
		if err := cached.load(); err != nil {
			ic.mu.Lock()
			ic.stats.PreloadFail++
			ic.mu.Unlock()
			return fmt.Errorf("failed to preload template %s: %w", template.Name, err)
		}
		ic.mu.Lock()
		ic.stats.Loads++
		ic.mu.Unlock()
	}

	return nil
}

// Put stores an already decoded reference; it is never unloaded
func (ic *ImageCache) Put(ref cv.Reference) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.templates[ref.Name] = &CachedTemplate{
		Template: ref.Template,
		image:    ref.Image,
		useCount: 1,
	}
}

// Forget drops a template and its image
func (ic *ImageCache) Forget(name string) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	delete(ic.templates, name)
}

// Get retrieves a template and its image, loading if necessary
func (ic *ImageCache) Get(name string) (*image.RGBA, cv.Template, error) {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return nil, cv.Template{}, fmt.Errorf("template '%s' not found in cache", name)
	}

	hit := cached.IsLoaded()
	img, err := cached.getOrLoad()
	if err != nil {
		return nil, cv.Template{}, err
	}

	ic.mu.Lock()
	if hit {
		ic.stats.Hits++
	} else {
		ic.stats.Misses++
		ic.stats.Loads++
	}
	ic.mu.Unlock()

	return img, cached.Template, nil
}

// Release unloads a template image if unloadAfter is set
func (ic *ImageCache) Release(name string) error {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template '%s' not found in cache", name)
	}

	if cached.unloadAfter {
		cached.unload()
		ic.mu.Lock()
		ic.stats.Unloads++
		ic.mu.Unlock()
	}

	return nil
}

// PreloadAll loads all templates marked for preloading
func (ic *ImageCache) PreloadAll() error {
	ic.mu.RLock()
	templates := make([]*CachedTemplate, 0, len(ic.templates))
	for _, t := range ic.templates {
		if t.preload {
			templates = append(templates, t)
		}
	}
	ic.mu.RUnlock()

	var errs []error
	for _, cached := range templates {
		if err := cached.load(); err != nil {
			errs = append(errs, fmt.Errorf("template %s: %w", cached.Name, err))
			ic.mu.Lock()
			ic.stats.PreloadFail++
			ic.mu.Unlock()
		} else {
			ic.mu.Lock()
			ic.stats.Loads++
			ic.mu.Unlock()
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to preload %d templates: %w", len(errs), errs[0])
	}

	return nil
}

// UnloadAll unloads all cached images that were loaded from disk
func (ic *ImageCache) UnloadAll() {
	ic.mu.RLock()
	templates := make([]*CachedTemplate, 0, len(ic.templates))
	for _, t := range ic.templates {
		if t.Path != "" {
			templates = append(templates, t)
		}
	}
	ic.mu.RUnlock()

	for _, cached := range templates {
		if cached.unload() {
			ic.mu.Lock()
			ic.stats.Unloads++
			ic.mu.Unlock()
		}
	}
}

// Stats returns cache statistics
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

// CachedTemplate methods

// getOrLoad returns the cached image or loads it if not cached
func (ct *CachedTemplate) getOrLoad() (*image.RGBA, error) {
	ct.mu.RLock()
	if ct.image != nil {
		defer ct.mu.RUnlock()
		return ct.image, nil
	}
	ct.mu.RUnlock()

	ct.mu.Lock()
	defer ct.mu.Unlock()

	// Double-check after acquiring write lock
	if ct.image != nil {
		return ct.image, nil
	}

	return ct.loadUnsafe()
}

// load loads the template image (thread-safe)
func (ct *CachedTemplate) load() error {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.image != nil {
		return nil
	}

	_, err := ct.loadUnsafe()
	return err
}

// loadUnsafe loads the image without locking (caller must hold lock)
func (ct *CachedTemplate) loadUnsafe() (*image.RGBA, error) {
	if ct.Path == "" {
		return nil, fmt.Errorf("template %s has no image path", ct.Name)
	}

	file, err := os.Open(ct.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("template image not found: %s", ct.Path)
		}
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}

	ct.image = scaleImage(cv.ToRGBA(img), ct.Scale)
	ct.useCount++

	return ct.image, nil
}

// unload releases the template image, reporting whether one was held
func (ct *CachedTemplate) unload() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.image == nil {
		return false
	}
	ct.image = nil
	return true
}

// IsLoaded returns true if the image is currently in memory
func (ct *CachedTemplate) IsLoaded() bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.image != nil
}

// scaleImage resizes img by factor; 0 and 1 leave it untouched
func scaleImage(img *image.RGBA, factor float64) *image.RGBA {
	if factor <= 0 || factor == 1 {
		return img
	}

	b := img.Bounds()
	w := uint(float64(b.Dx())*factor + 0.5)
	h := uint(float64(b.Dy())*factor + 0.5)
	if w == 0 || h == 0 {
		return img
	}
	return cv.ToRGBA(resize.Resize(w, h, img, resize.Lanczos3))
}
