//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/nya/engine/assets/loaders"
)

type Build mg.Namespace

var shaderSources = []string{
	"shader.vert",
	"shader.frag",
	"gui.vert",
	"gui.frag",
}

// Compiles the GLSL shaders into SPIR-V modules next to their sources.
func (Build) Shaders() error {
	for _, name := range shaderSources {
		src := filepath.Join("shaders", name)
		if _, err := executeCmd("glslc", withArgs(src, "-o", loaders.SpvPath(src)), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the testbed binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/testbed", "."), withStream())
	return err
}
