package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/nya/engine/assets/loaders"
	"github.com/spaghettifunk/nya/engine/core"
)

var errManagerClosed = errors.New("asset manager already shut down")

type AssetInfo struct {
	// Name is the path relative to the asset root, with forward slashes.
	Name         string
	Path         string
	Type         AssetType
	LastModified time.Time
}

// AssetManager indexes the files under a root directory and, when watching, records which of
// them changed on disk. Changes are handed to the event bus by DispatchChanges, on the
// caller's goroutine.
type AssetManager struct {
	root   string
	assets map[string]AssetInfo
	// pending holds the names changed since the last dispatch.
	pending map[string]struct{}
	mutex   sync.RWMutex

	images  *loaders.ImageLoader
	shaders *loaders.ShaderLoader
	fonts   *loaders.BitmapFontLoader

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewAssetManager(root string) (*AssetManager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, core.NewEnvironmentError("create asset manager", err)
	}
	return &AssetManager{
		root:    abs,
		assets:  make(map[string]AssetInfo),
		pending: make(map[string]struct{}),
		images:  &loaders.ImageLoader{},
		shaders: &loaders.ShaderLoader{},
		fonts:   &loaders.BitmapFontLoader{},
		done:    make(chan struct{}),
	}, nil
}

// Initialize indexes every file under the root and starts the watcher when watch is set.
func (am *AssetManager) Initialize(watch bool) error {
	const op = "initialize asset manager"
	if err := core.Check(!am.isClosed, op, "%v", errManagerClosed); err != nil {
		return err
	}
	if watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			err = core.NewEnvironmentError(op, err)
			core.LogError("%s", err)
			return err
		}
		am.fsnotify = w
	}

	if err := am.watchRecursive(am.root); err != nil {
		err = core.NewEnvironmentError(op, err)
		core.LogError("%s", err)
		return err
	}

	if am.fsnotify != nil {
		am.wg.Add(1)
		go am.start()
	}
	core.LogInfo("indexed %d assets under %s (watch: %t)", len(am.assets), am.root, watch)
	return nil
}

func (am *AssetManager) Root() string {
	return am.root
}

func (am *AssetManager) Info(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[name]
	return info, ok
}

// Names lists the indexed assets of type t in lexical order.
func (am *AssetManager) Names(t AssetType) []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	var names []string
	for name, info := range am.assets {
		if info.Type == t {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (am *AssetManager) lookup(name string, t AssetType) (AssetInfo, error) {
	info, ok := am.Info(name)
	if !ok {
		err := core.NewEnvironmentError("find asset", fmt.Errorf("%s: %w", name, os.ErrNotExist))
		core.LogError("%s", err)
		return AssetInfo{}, err
	}
	if info.Type != t {
		err := core.NewPreconditionError("find asset", fmt.Errorf("%s is a %s, not a %s", name, info.Type, t))
		core.LogError("%s", err)
		return AssetInfo{}, err
	}
	return info, nil
}

func (am *AssetManager) LoadImage(name string) (*loaders.ImageData, error) {
	info, err := am.lookup(name, ASSET_TYPE_IMAGE)
	if err != nil {
		return nil, err
	}
	return am.images.Load(info.Path)
}

func (am *AssetManager) LoadShader(name string) ([]uint32, error) {
	info, err := am.lookup(name, ASSET_TYPE_SHADER_BINARY)
	if err != nil {
		return nil, err
	}
	return am.shaders.Load(info.Path)
}

func (am *AssetManager) LoadBitmapFont(name string) (*loaders.BitmapFont, error) {
	info, err := am.lookup(name, ASSET_TYPE_BITMAP_FONT)
	if err != nil {
		return nil, err
	}
	return am.fonts.Load(info.Path)
}

// DispatchChanges fires EVENT_CODE_ASSET_CHANGED on bus once per asset changed since the last
// call, in name order, and returns the names.
func (am *AssetManager) DispatchChanges(bus *core.EventBus) []string {
	am.mutex.Lock()
	names := make([]string, 0, len(am.pending))
	for name := range am.pending {
		names = append(names, name)
	}
	am.pending = make(map[string]struct{})
	am.mutex.Unlock()

	sort.Strings(names)
	for _, name := range names {
		core.LogDebug("asset changed: %s", name)
		bus.Fire(core.EventContext{
			Type:   core.EVENT_CODE_ASSET_CHANGED,
			Sender: am,
			Data:   &core.AssetEvent{Path: name},
		})
	}
	return names
}

// Shutdown stops the watcher and waits for its goroutine to exit.
func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.wg.Wait()
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			if err := am.fsnotify.Close(); err != nil {
				core.LogWarn("closing asset watcher: %s", err)
			}
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("watching new directory %s: %s", e.Name, err)
			}
			return
		}
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if name, ok := am.handleFileEvent(e.Name); ok {
			am.mutex.Lock()
			am.pending[name] = struct{}{}
			am.mutex.Unlock()
		}
	}
	// A removed directory cannot be told apart from a file any more, so every removal is
	// also dropped from the watch list.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

// watchRecursive indexes every file under path and watches every directory when a watcher
// is running.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if am.fsnotify != nil {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent indexes the file at path and returns its asset name.
func (am *AssetManager) handleFileEvent(path string) (string, bool) {
	assetType := determineAssetType(path)
	if assetType == ASSET_TYPE_NONE {
		return "", false
	}
	name, err := am.nameOf(path)
	if err != nil {
		return "", false
	}
	modified := time.Now()
	if s, err := os.Stat(path); err == nil {
		modified = s.ModTime()
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[name] = AssetInfo{
		Name:         name,
		Path:         path,
		Type:         assetType,
		LastModified: modified,
	}
	return name, true
}

func (am *AssetManager) removeAsset(path string) {
	name, err := am.nameOf(path)
	if err != nil {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, name)
}

func (am *AssetManager) nameOf(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(am.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
