package systems

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/nya/engine/assets/loaders"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/engine/renderer/vulkan"
)

// ImageSource decodes images by asset name. *assets.AssetManager implements it.
type ImageSource interface {
	LoadImage(name string) (*loaders.ImageData, error)
}

// TextureUploader creates and destroys GPU textures. *vulkan.Renderer implements it.
type TextureUploader interface {
	CreateTexture(pixels []byte, width, height uint32) (*vulkan.Texture, error)
	DestroyTexture(texture *vulkan.Texture)
	WaitIdle() error
}

// TextureSystem caches one texture per asset name. Decoding may run on the job system,
// uploads always happen on the caller's goroutine.
type TextureSystem struct {
	images   ImageSource
	uploader TextureUploader
	jobs     *JobSystem

	textures map[string]*vulkan.Texture
}

func NewTextureSystem(images ImageSource, uploader TextureUploader, jobs *JobSystem) (*TextureSystem, error) {
	if err := core.Check(images != nil && uploader != nil, "create texture system", "image source and uploader are required"); err != nil {
		return nil, err
	}
	return &TextureSystem{
		images:   images,
		uploader: uploader,
		jobs:     jobs,
		textures: make(map[string]*vulkan.Texture),
	}, nil
}

// Acquire returns the cached texture of name, loading and uploading it on first use.
func (ts *TextureSystem) Acquire(name string) (*vulkan.Texture, error) {
	if t, ok := ts.textures[name]; ok {
		return t, nil
	}
	img, err := ts.images.LoadImage(name)
	if err != nil {
		return nil, err
	}
	return ts.upload(name, img)
}

func (ts *TextureSystem) upload(name string, img *loaders.ImageData) (*vulkan.Texture, error) {
	t, err := ts.uploader.CreateTexture(img.Pixels, img.Width, img.Height)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", name, err)
	}
	ts.textures[name] = t
	core.LogDebug("texture %s uploaded (%dx%d)", name, img.Width, img.Height)
	return t, nil
}

type decodedImage struct {
	name string
	img  *loaders.ImageData
	err  error
}

// Preload decodes the images of names in parallel on the job system and uploads them in
// the order given. Without a job system it falls back to Acquire. The first error is returned
// after every image has been handled.
func (ts *TextureSystem) Preload(names ...string) error {
	if ts.jobs == nil {
		for _, name := range names {
			if _, err := ts.Acquire(name); err != nil {
				return err
			}
		}
		return nil
	}

	pending := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := ts.textures[name]; !ok {
			pending = append(pending, name)
		}
	}

	results := make(chan decodedImage, len(pending))
	for _, name := range pending {
		name := name
		err := ts.jobs.Submit(JobTask{
			Name: "decode " + name,
			Run: func() (interface{}, error) {
				return ts.images.LoadImage(name)
			},
			OnComplete: func(result interface{}) {
				results <- decodedImage{name: name, img: result.(*loaders.ImageData)}
			},
			OnFailure: func(err error) {
				results <- decodedImage{name: name, err: err}
			},
		})
		if err != nil {
			results <- decodedImage{name: name, err: err}
		}
	}

	decoded := make(map[string]decodedImage, len(pending))
	for range pending {
		r := <-results
		decoded[r.name] = r
	}

	var firstErr error
	for _, name := range pending {
		r := decoded[name]
		if r.err == nil {
			_, r.err = ts.upload(name, r.img)
		}
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
	}
	return firstErr
}

func (ts *TextureSystem) Get(name string) (*vulkan.Texture, bool) {
	t, ok := ts.textures[name]
	return t, ok
}

// Names lists the cached textures in lexical order.
func (ts *TextureSystem) Names() []string {
	names := make([]string, 0, len(ts.textures))
	for name := range ts.textures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reload re-reads name from disk after it changed and swaps the cached texture. Once the
// device is idle, every sprite in sprites that has the old texture bound in any slot is
// rebound to the new one; those sprites are returned. The old texture is destroyed last.
// Names that were never acquired are ignored.
func (ts *TextureSystem) Reload(name string, sprites []*vulkan.Sprite) ([]*vulkan.Sprite, error) {
	old, ok := ts.textures[name]
	if !ok {
		return nil, nil
	}
	img, err := ts.images.LoadImage(name)
	if err != nil {
		// keep the old texture, a half written file will fire another change
		return nil, err
	}
	if err := ts.uploader.WaitIdle(); err != nil {
		return nil, err
	}
	fresh, err := ts.upload(name, img)
	if err != nil {
		ts.textures[name] = old
		return nil, err
	}

	var rebound []*vulkan.Sprite
	for _, s := range sprites {
		if !boundAnywhere(s, old) {
			continue
		}
		if err := s.WriteTexture(fresh); err != nil {
			return rebound, err
		}
		rebound = append(rebound, s)
	}
	ts.uploader.DestroyTexture(old)
	core.LogInfo("texture %s reloaded, %d sprites rebound", name, len(rebound))
	return rebound, nil
}

func boundAnywhere(s *vulkan.Sprite, texture *vulkan.Texture) bool {
	for slot := uint32(0); slot < s.FramesInFlight(); slot++ {
		if bound, err := s.BoundTexture(slot); err == nil && bound == texture {
			return true
		}
	}
	return false
}

// Shutdown destroys every cached texture. The device must be idle.
func (ts *TextureSystem) Shutdown() error {
	for _, name := range ts.Names() {
		ts.uploader.DestroyTexture(ts.textures[name])
		delete(ts.textures, name)
	}
	return nil
}
