package loaders

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/nya/engine/core"
)

// SPIRV_MAGIC is the first word of every SPIR-V module.
const SPIRV_MAGIC uint32 = 0x07230203

var errInvalidSPIRV = errors.New("invalid SPIR-V module")

type ShaderLoader struct{}

// Load reads a compiled SPIR-V module as 32-bit words.
func (sl *ShaderLoader) Load(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = core.NewEnvironmentError("load shader", err)
		core.LogError("%s", err)
		return nil, err
	}
	code, err := bytesToBytecode(data)
	if err != nil {
		err = core.NewEnvironmentError("load shader", fmt.Errorf("%s: %w", path, err))
		core.LogError("%s", err)
		return nil, err
	}
	return code, nil
}

// bytesToBytecode decodes little endian SPIR-V words, the byte order glslc writes.
func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) < 4 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: size %d is not a non zero multiple of 4", errInvalidSPIRV, len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != SPIRV_MAGIC {
		return nil, fmt.Errorf("%w: magic %#08x", errInvalidSPIRV, byteCode[0])
	}
	return byteCode, nil
}

// ShaderCompiler turns GLSL sources into SPIR-V by running an external compiler such as glslc.
// Arguments are passed as a list, never through a shell.
type ShaderCompiler struct {
	Binary string
	// Args are placed before the source and output paths.
	Args []string
}

// SpvPath is where Compile writes the module of src: the source path with ".spv" appended.
func SpvPath(src string) string {
	return src + ".spv"
}

// Compile compiles src into out. A compiler exiting nonzero is an environment error wrapping
// core.ErrShaderCompile and carrying the compiler output.
func (c *ShaderCompiler) Compile(ctx context.Context, src, out string) error {
	const op = "compile shader"
	if err := core.Check(c.Binary != "", op, "no compiler binary configured"); err != nil {
		return err
	}

	args := append(append([]string{}, c.Args...), src, "-o", out)
	core.LogDebug("Executing: %s %s", c.Binary, strings.Join(args, " "))

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		err = core.NewEnvironmentError(op, fmt.Errorf("%w: %s: %w: %s", core.ErrShaderCompile, src, err, strings.TrimSpace(output.String())))
		core.LogError("%s", err)
		return err
	}
	return nil
}

// CompileDir compiles every .vert and .frag file of dir next to its source and returns the
// written module paths.
func (c *ShaderCompiler) CompileDir(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		err = core.NewEnvironmentError("compile shaders", err)
		core.LogError("%s", err)
		return nil, err
	}

	var outputs []string
	for _, e := range entries {
		if e.IsDir() || !IsShaderSource(e.Name()) {
			continue
		}
		src := filepath.Join(dir, e.Name())
		out := SpvPath(src)
		if err := c.Compile(ctx, src, out); err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	core.LogInfo("compiled %d shaders in %s", len(outputs), dir)
	return outputs, nil
}

func IsShaderSource(path string) bool {
	switch filepath.Ext(path) {
	case ".vert", ".frag":
		return true
	}
	return false
}
