package cv

import (
	"fmt"
	"image"
	"image/draw"
	"math/rand"
	"sort"
)

// noiseFrame fills an opaque image with seeded random colours
func noiseFrame(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 0xff
			continue
		}
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// blockFrame fills an image with random solid blocks of side block
func blockFrame(w, h, block int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for by := 0; by < h; by += block {
		for bx := 0; bx < w; bx += block {
			r, g, b := uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))
			for y := by; y < by+block && y < h; y++ {
				for x := bx; x < bx+block && x < w; x++ {
					p := img.PixOffset(x, y)
					img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = r, g, b, 0xff
				}
			}
		}
	}
	return img
}

func crop(img *image.RGBA, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

func paste(dst, src *image.RGBA, at image.Point) {
	draw.Draw(dst, src.Bounds().Add(at), src, src.Bounds().Min, draw.Src)
}

// perturb randomizes every nth pixel of a copy of img
func perturb(img *image.RGBA, every int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	out := crop(img, img.Bounds())
	for i := 0; i < len(out.Pix); i += 4 * every {
		out.Pix[i] = uint8(rng.Intn(256))
		out.Pix[i+1] = uint8(rng.Intn(256))
		out.Pix[i+2] = uint8(rng.Intn(256))
	}
	return out
}

func ref(name string, t CardType, img *image.RGBA) Reference {
	return Reference{Template: Template{Name: name, Type: t}, Image: img}
}

// refMap is an in-memory ReferenceSource
type refMap map[string]Reference

func (m refMap) Reference(name string) (Reference, error) {
	r, ok := m[name]
	if !ok {
		return Reference{}, fmt.Errorf("reference '%s' not found", name)
	}
	return r, nil
}

func (m refMap) CardReferences() ([]Reference, error) {
	var refs []Reference
	for _, r := range m {
		if r.Type != CardUnknown {
			refs = append(refs, r)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

type staticCapturer struct {
	frame  *image.RGBA
	origin image.Point
	err    error
}

func (c *staticCapturer) CaptureFrame() (*image.RGBA, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.frame, nil
}

func (c *staticCapturer) GetDimensions() (int, int) {
	b := c.frame.Bounds()
	return b.Dx(), b.Dy()
}

func (c *staticCapturer) Origin() image.Point {
	return c.origin
}
