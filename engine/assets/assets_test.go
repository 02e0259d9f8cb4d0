package assets

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/nya/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newTestManager(t *testing.T, watch bool) (*AssetManager, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wood.png"), pngBytes(t, 2, 2))
	writeFile(t, filepath.Join(root, "shaders", "shader.vert.spv"), []byte{0x03, 0x02, 0x23, 0x07})
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("ignored"))

	am, err := NewAssetManager(root)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(watch))
	t.Cleanup(func() { am.Shutdown() })
	return am, root
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, ASSET_TYPE_IMAGE, determineAssetType("res/zoro.PNG"))
	assert.Equal(t, ASSET_TYPE_IMAGE, determineAssetType("a.webp"))
	assert.Equal(t, ASSET_TYPE_SHADER_SOURCE, determineAssetType("shader.frag"))
	assert.Equal(t, ASSET_TYPE_SHADER_BINARY, determineAssetType("shader.frag.spv"))
	assert.Equal(t, ASSET_TYPE_BITMAP_FONT, determineAssetType("fonts/ui.fnt"))
	assert.Equal(t, ASSET_TYPE_NONE, determineAssetType("README"))
}

func TestAssetManagerIndex(t *testing.T) {
	am, root := newTestManager(t, false)

	assert.Equal(t, []string{"wood.png"}, am.Names(ASSET_TYPE_IMAGE))
	assert.Equal(t, []string{"shaders/shader.vert.spv"}, am.Names(ASSET_TYPE_SHADER_BINARY))

	info, ok := am.Info("wood.png")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "wood.png"), info.Path)
	_, ok = am.Info("notes.txt")
	assert.False(t, ok)
}

func TestAssetManagerLoad(t *testing.T) {
	am, _ := newTestManager(t, false)

	img, err := am.LoadImage("wood.png")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), img.Width)
	assert.Len(t, img.Pixels, 16)

	code, err := am.LoadShader("shaders/shader.vert.spv")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203}, code)

	_, err = am.LoadImage("shaders/shader.vert.spv")
	assert.True(t, core.IsPrecondition(err))

	_, err = am.LoadImage("missing.png")
	assert.True(t, core.IsEnvironment(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAssetManagerDispatchesChanges(t *testing.T) {
	am, root := newTestManager(t, true)

	bus := core.NewEventBus()
	var changed []string
	bus.Register(core.EVENT_CODE_ASSET_CHANGED, t, func(ctx core.EventContext) bool {
		changed = append(changed, ctx.Data.(*core.AssetEvent).Path)
		return false
	})

	writeFile(t, filepath.Join(root, "wood.png"), pngBytes(t, 4, 4))

	require.Eventually(t, func() bool {
		am.DispatchChanges(bus)
		return len(changed) > 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "wood.png", changed[0])
	for _, name := range changed {
		assert.Equal(t, "wood.png", name)
	}

	img, err := am.LoadImage("wood.png")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), img.Width)
}

func TestAssetManagerDispatchWithoutChanges(t *testing.T) {
	am, _ := newTestManager(t, false)
	assert.Empty(t, am.DispatchChanges(core.NewEventBus()))
}

func TestAssetManagerShutdown(t *testing.T) {
	am, _ := newTestManager(t, true)
	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())
	assert.True(t, core.IsPrecondition(am.Initialize(false)))
}
