package engine

// Game is driven by the engine. Initialize runs once the renderer exists; Update and Render
// run once per frame, in that order; Shutdown runs after the device is idle.
type Game interface {
	Initialize(e *Engine) error
	Update(deltaTime float64) error
	Render(deltaTime float64) error
	Shutdown() error
}
