package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spaghettifunk/nya/engine/assets"
	"github.com/spaghettifunk/nya/engine/assets/loaders"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/engine/gui"
	"github.com/spaghettifunk/nya/engine/platform"
	"github.com/spaghettifunk/nya/engine/renderer/vulkan"
	"github.com/spaghettifunk/nya/engine/systems"
)

type Engine struct {
	currentStage Stage
	config       *core.Config
	game         Game
	isRunning    bool

	events   *core.EventBus
	input    *core.InputState
	platform *platform.Platform

	assetManager  *assets.AssetManager
	shaderManager *assets.AssetManager
	compiler      *loaders.ShaderCompiler

	renderer      *vulkan.Renderer
	gui           *vulkan.GUIDevice
	systemManager *systems.SystemManager

	clock    *core.Clock
	metrics  *core.Metrics
	lastTime float64
}

func New(cfg *core.Config, g Game) (*Engine, error) {
	if err := core.Check(cfg != nil && g != nil, "create engine", "config and game are required"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.Log.Level)

	events := core.NewEventBus()
	input := core.NewInputState(events)
	p, err := platform.New(input)
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager(cfg.Assets.Root)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	sm, err := assets.NewAssetManager(cfg.Renderer.ShaderDir)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageUninitialized,
		config:        cfg,
		game:          g,
		events:        events,
		input:         input,
		platform:      p,
		assetManager:  am,
		shaderManager: sm,
		compiler:      &loaders.ShaderCompiler{Binary: cfg.Renderer.Compiler},
		clock:         core.NewClock(),
		metrics:       core.NewMetrics(),
	}, nil
}

// Initialize brings up the platform, then the renderer and its systems, then the game.
func (e *Engine) Initialize() error {
	if err := core.Check(e.currentStage == EngineStageUninitialized, "initialize engine",
		"engine is %s", e.currentStage); err != nil {
		return err
	}
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_ASSET_CHANGED, e, e.onShaderChanged)

	if err := e.platform.Startup(e.config.Window); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.Assets.Watch); err != nil {
		return err
	}
	// Stale modules are only a warning: the .spv files shipped next to the sources still load.
	if _, err := e.compiler.CompileDir(context.Background(), e.shaderManager.Root()); err != nil {
		core.LogWarn("shaders were not compiled at startup: %s", err)
	}
	if err := e.shaderManager.Initialize(e.config.Assets.Watch); err != nil {
		return err
	}

	r, err := vulkan.NewRenderer(e.platform, vulkan.RendererConfig{
		AppName:        e.config.Window.Title,
		Validation:     e.config.Renderer.Validation,
		FramesInFlight: e.config.Renderer.FramesInFlight,
		ClearColor:     [4]float32(e.config.Renderer.ClearColor),
	})
	if err != nil {
		return err
	}
	e.renderer = r

	if err := e.initializeGUI(); err != nil {
		return err
	}

	e.systemManager, err = systems.NewSystemManager(e.assetManager, e.renderer, runtime.NumCPU())
	if err != nil {
		return err
	}

	if err := e.game.Initialize(e); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized: %s", e.config)
	return nil
}

func (e *Engine) initializeGUI() error {
	atlas := gui.NewBasicAtlas()
	if e.config.GUI.Font != "" {
		font, err := e.assetManager.LoadBitmapFont(e.config.GUI.Font)
		if err != nil {
			return err
		}
		if atlas, err = gui.NewBitmapAtlas(font); err != nil {
			return err
		}
	}
	vertex, fragment, err := e.LoadShaderPair("gui")
	if err != nil {
		return err
	}
	e.gui, err = vulkan.NewGUIDevice(e.renderer, atlas, vertex, fragment)
	return err
}

// LoadShaderPair reads the SPIR-V modules name.vert.spv and name.frag.spv from the shader
// directory.
func (e *Engine) LoadShaderPair(name string) ([]uint32, []uint32, error) {
	vertex, err := e.shaderManager.LoadShader(loaders.SpvPath(name + ".vert"))
	if err != nil {
		return nil, nil, err
	}
	fragment, err := e.shaderManager.LoadShader(loaders.SpvPath(name + ".frag"))
	if err != nil {
		return nil, nil, err
	}
	return vertex, fragment, nil
}

// Run drives frames until the window closes, the game asks to quit or a frame fails.
func (e *Engine) Run() error {
	if err := core.Check(e.currentStage == EngineStageInitialized, "run engine",
		"engine is %s", e.currentStage); err != nil {
		return err
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var frameErr error
	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		e.assetManager.DispatchChanges(e.events)
		e.shaderManager.DispatchChanges(e.events)

		if err := e.game.Update(delta); err != nil {
			frameErr = fmt.Errorf("game update: %w", err)
			break
		}
		if err := e.game.Render(delta); err != nil {
			frameErr = fmt.Errorf("game render: %w", err)
			break
		}

		e.metrics.Update(delta)
		if e.renderer.FrameCount()%600 == 0 {
			fps, ms := e.metrics.Frame()
			core.LogDebug("%.1f FPS (%.3f ms/frame)", fps, ms)
		}

		// Input is the last thing updated so this frame's edges stay visible to the game.
		e.input.Update()
		e.lastTime = currentTime
	}

	if frameErr != nil {
		core.LogError("%s", frameErr)
	}
	return frameErr
}

// RequestClose stops the loop after the current frame. It may be called from any goroutine.
func (e *Engine) RequestClose() {
	e.platform.RequestClose()
}

// Shutdown waits for the device to go idle, then releases everything in reverse order.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if e.renderer != nil {
		if err := e.renderer.WaitIdle(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.game.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.gui != nil {
		e.gui.Destroy()
	}
	if e.renderer != nil {
		e.renderer.Destroy()
	}
	if err := e.shaderManager.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if err := e.assetManager.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	e.events.Shutdown()
	if err := e.platform.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	core.LogInfo("engine shut down")
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Config() *core.Config {
	return e.config
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) Input() *core.InputState {
	return e.input
}

func (e *Engine) Renderer() *vulkan.Renderer {
	return e.renderer
}

func (e *Engine) GUI() *vulkan.GUIDevice {
	return e.gui
}

func (e *Engine) Systems() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

// Shaders indexes the shader directory. Asset change events it sends carry it as Sender.
func (e *Engine) Shaders() *assets.AssetManager {
	return e.shaderManager
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT, Sender: e})
		// Block anything else from processing this.
		return true
	}
	return false
}

// onShaderChanged recompiles an edited GLSL source. The rewritten module is picked up by the
// watcher and reported on a later frame.
func (e *Engine) onShaderChanged(ctx core.EventContext) bool {
	ae, ok := ctx.Data.(*core.AssetEvent)
	if !ok || ctx.Sender != e.shaderManager {
		return false
	}
	info, ok := e.shaderManager.Info(ae.Path)
	if !ok || info.Type != assets.ASSET_TYPE_SHADER_SOURCE {
		return false
	}
	if err := e.compiler.Compile(context.Background(), info.Path, loaders.SpvPath(info.Path)); err != nil {
		core.LogWarn("shader %s not reloaded: %s", ae.Path, err)
	}
	return false
}
