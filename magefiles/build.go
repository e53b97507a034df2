//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderSources = []string{"simple.vert", "simple.frag"}

// Compiles the GLSL shaders under shaders/ to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the engine binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "vulkanmc"), "."), withStream())
	return err
}

func buildShaders() error {
	for _, src := range shaderSources {
		in := filepath.Join("shaders", src)
		if _, err := executeCmd("glslc", withArgs(in, "-o", in+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}
