package systems

// GPU is what the systems need from the renderer. *vulkan.Renderer implements it.
type GPU interface {
	TextureUploader
	GeometryUploader
}

type SystemManager struct {
	Jobs      *JobSystem
	Textures  *TextureSystem
	Rendering *RenderingSystem
}

// NewSystemManager starts a job system of workers goroutines and builds the systems over gpu.
func NewSystemManager(images ImageSource, gpu GPU, workers int) (*SystemManager, error) {
	js, err := NewJobSystem(workers, workers*2)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(images, gpu, js)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	rs, err := NewRenderingSystem(gpu)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		Jobs:      js,
		Textures:  ts,
		Rendering: rs,
	}, nil
}

// Shutdown releases the systems in reverse creation order. The device must be idle.
func (sm *SystemManager) Shutdown() error {
	if err := sm.Textures.Shutdown(); err != nil {
		return err
	}
	return sm.Jobs.Shutdown()
}
