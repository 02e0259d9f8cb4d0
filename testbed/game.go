package testbed

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/nya/engine"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/engine/renderer/vulkan"
)

// Asset names under the asset root.
const (
	woodTexture = "1K-wood_plank_14_Dif.jpg"
	zoroTexture = "zoro_dressrosa_drip_black.png"

	spriteShader = "shader"
)

// TestGame draws two textured quads. Holding SPACE shows the second texture on the first quad.
type TestGame struct {
	engine   *engine.Engine
	pipeline *vulkan.SpritePipeline
	sprites  []*vulkan.Sprite
	textures []string

	swapped bool
}

func NewTestGame() *TestGame {
	return &TestGame{
		textures: []string{woodTexture, zoroTexture},
	}
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogDebug("TestGame Initialize fn....")
	g.engine = e
	r := e.Renderer()

	vertex, fragment, err := e.LoadShaderPair(spriteShader)
	if err != nil {
		return err
	}
	g.pipeline, err = r.NewSpritePipeline(vertex, fragment)
	if err != nil {
		return err
	}

	textures := e.Systems().Textures
	if err := textures.Preload(g.textures...); err != nil {
		return err
	}

	for i, x := range []float32{-2, 2} {
		sprite, err := r.NewSprite(g.pipeline.Layout)
		if err != nil {
			return err
		}
		g.sprites = append(g.sprites, sprite)

		sprite.Transform.Translation = mgl32.Vec3{x, 0, 0}
		sprite.Transform.Scale = mgl32.Vec3{2, 2, 1}
		if err := g.bind(sprite, g.textures[i]); err != nil {
			return err
		}
	}
	if err := e.Systems().Rendering.Load(g.sprites); err != nil {
		return err
	}

	e.Events().Register(core.EVENT_CODE_ASSET_CHANGED, g, g.onAssetChanged)
	return nil
}

func (g *TestGame) bind(sprite *vulkan.Sprite, name string) error {
	texture, ok := g.engine.Systems().Textures.Get(name)
	if !ok {
		return fmt.Errorf("texture %s is not loaded", name)
	}
	return sprite.WriteTexture(texture)
}

func (g *TestGame) Update(deltaTime float64) error {
	held := g.engine.Input().IsKeyDown(core.KEY_SPACE)
	if held == g.swapped {
		return nil
	}
	// every slot of the sprite is rewritten, so nothing may still be reading them
	if err := g.engine.Renderer().WaitIdle(); err != nil {
		return err
	}
	name := g.textures[0]
	if held {
		name = g.textures[1]
	}
	if err := g.bind(g.sprites[0], name); err != nil {
		return err
	}
	g.swapped = held
	core.LogDebug("first sprite shows %s", name)
	return nil
}

func (g *TestGame) Render(deltaTime float64) error {
	return g.engine.Systems().Rendering.Render(g.engine.Renderer(), g.pipeline.Pipeline, g.sprites)
}

// Shutdown runs with the device idle. It is safe after a partial Initialize.
func (g *TestGame) Shutdown() error {
	if g.engine == nil || g.engine.Renderer() == nil {
		return nil
	}
	r := g.engine.Renderer()
	if systems := g.engine.Systems(); systems != nil {
		systems.Rendering.Destroy(g.sprites)
	}
	for _, s := range g.sprites {
		r.DestroySprite(s)
	}
	g.sprites = nil
	if g.pipeline != nil {
		g.pipeline.Destroy(r.Device())
		g.pipeline = nil
	}
	return nil
}

func (g *TestGame) onAssetChanged(ctx core.EventContext) bool {
	ae, ok := ctx.Data.(*core.AssetEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", ctx.Type)
		return false
	}

	switch ctx.Sender {
	case g.engine.Assets():
		rebound, err := g.engine.Systems().Textures.Reload(ae.Path, g.sprites)
		if err != nil {
			core.LogWarn("texture %s not reloaded: %s", ae.Path, err)
			return false
		}
		if len(rebound) > 0 {
			core.LogInfo("texture %s reloaded on %d sprites", ae.Path, len(rebound))
		}
	case g.engine.Shaders():
		if ae.Path != spriteShader+".vert.spv" && ae.Path != spriteShader+".frag.spv" {
			return false
		}
		vertex, fragment, err := g.engine.LoadShaderPair(spriteShader)
		if err != nil {
			core.LogWarn("sprite shaders not reloaded: %s", err)
			return false
		}
		if err := g.engine.Renderer().ReloadSpritePipeline(g.pipeline, vertex, fragment); err != nil {
			core.LogWarn("sprite pipeline not reloaded: %s", err)
		}
	}
	return false
}
