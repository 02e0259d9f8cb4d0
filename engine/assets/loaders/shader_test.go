package loaders

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spaghettifunk/nya/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirvBytes(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

func TestBytesToBytecode(t *testing.T) {
	code, err := bytesToBytecode(spirvBytes(SPIRV_MAGIC, 0x00010000, 42))
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRV_MAGIC, 0x00010000, 42}, code)

	_, err = bytesToBytecode(append(spirvBytes(SPIRV_MAGIC), 0))
	assert.ErrorIs(t, err, errInvalidSPIRV)

	_, err = bytesToBytecode(nil)
	assert.ErrorIs(t, err, errInvalidSPIRV)

	_, err = bytesToBytecode(spirvBytes(0xdeadbeef))
	assert.ErrorIs(t, err, errInvalidSPIRV)
}

func TestShaderLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.vert.spv")
	require.NoError(t, os.WriteFile(path, spirvBytes(SPIRV_MAGIC, 7), 0o644))

	code, err := (&ShaderLoader{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRV_MAGIC, 7}, code)

	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
	_, err = (&ShaderLoader{}).Load(path)
	assert.True(t, core.IsEnvironment(err))
}

// fakeCompiler writes a shell script standing in for glslc: it is called as
// `<args...> src -o out`.
func fakeCompiler(t *testing.T, body string) *ShaderCompiler {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "glslc")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return &ShaderCompiler{Binary: path}
}

func TestShaderCompilerCompile(t *testing.T) {
	c := fakeCompiler(t, `cp "$1" "$3"`)
	dir := t.TempDir()
	src := filepath.Join(dir, "shader.vert")
	require.NoError(t, os.WriteFile(src, []byte("#version 450"), 0o644))

	require.NoError(t, c.Compile(context.Background(), src, SpvPath(src)))

	out, err := os.ReadFile(filepath.Join(dir, "shader.vert.spv"))
	require.NoError(t, err)
	assert.Equal(t, "#version 450", string(out))
}

func TestShaderCompilerFailure(t *testing.T) {
	c := fakeCompiler(t, `echo "shader.frag:3: error: syntax" >&2; exit 1`)

	err := c.Compile(context.Background(), "shader.frag", "shader.frag.spv")
	require.Error(t, err)
	assert.True(t, core.IsEnvironment(err))
	assert.ErrorIs(t, err, core.ErrShaderCompile)
	assert.Contains(t, err.Error(), "error: syntax")
}

func TestShaderCompilerArgsComeFirst(t *testing.T) {
	c := fakeCompiler(t, `[ "$1" = "-O" ] && cp "$2" "$4"`)
	c.Args = []string{"-O"}
	dir := t.TempDir()
	src := filepath.Join(dir, "gui.frag")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	require.NoError(t, c.Compile(context.Background(), src, SpvPath(src)))
	assert.FileExists(t, SpvPath(src))
}

func TestShaderCompilerCompileDir(t *testing.T) {
	c := fakeCompiler(t, `cp "$1" "$3"`)
	dir := t.TempDir()
	for _, name := range []string{"shader.vert", "shader.frag", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	outputs, err := c.CompileDir(context.Background(), dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "shader.vert.spv"),
		filepath.Join(dir, "shader.frag.spv"),
	}, outputs)
	assert.NoFileExists(t, filepath.Join(dir, "README.md.spv"))
}

func TestShaderCompilerRequiresBinary(t *testing.T) {
	err := (&ShaderCompiler{}).Compile(context.Background(), "a.vert", "a.vert.spv")
	assert.True(t, core.IsPrecondition(err))
}
