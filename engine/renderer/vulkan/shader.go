package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

const shaderEntryPoint = "main\x00"

// Shader holds the vertex and fragment modules of one program.
type Shader struct {
	vertex   vk.ShaderModule
	fragment vk.ShaderModule
}

// NewShader wraps SPIR-V words as a vertex and a fragment module.
func NewShader(device *VulkanDevice, vertex, fragment []uint32) (*Shader, error) {
	const op = "create shader"
	if device == nil {
		err := core.NewPreconditionError(op, core.ErrNilDevice)
		core.LogError("%s", err)
		return nil, err
	}
	if err := core.Check(len(vertex) > 0 && len(fragment) > 0, op, "shader code is empty"); err != nil {
		return nil, err
	}

	vert, err := createShaderModule(device, vertex)
	if err != nil {
		return nil, err
	}
	frag, err := createShaderModule(device, fragment)
	if err != nil {
		vk.DestroyShaderModule(device.LogicalDevice, vert, device.Allocator)
		return nil, err
	}
	return &Shader{vertex: vert, fragment: frag}, nil
}

func createShaderModule(device *VulkanDevice, code []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(device.LogicalDevice, &createInfo, device.Allocator, &module); res != vk.Success {
		return vk.NullShaderModule, vulkanError("create shader module", res)
	}
	return module, nil
}

// Stages describes the two modules for pipeline creation.
func (s *Shader) Stages() []vk.PipelineShaderStageCreateInfo {
	return []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: s.vertex,
			PName:  shaderEntryPoint,
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: s.fragment,
			PName:  shaderEntryPoint,
		},
	}
}

// Destroy releases the modules. A pipeline built from them stays valid.
func (s *Shader) Destroy(device *VulkanDevice) {
	if s.vertex != vk.NullShaderModule {
		vk.DestroyShaderModule(device.LogicalDevice, s.vertex, device.Allocator)
		s.vertex = vk.NullShaderModule
	}
	if s.fragment != vk.NullShaderModule {
		vk.DestroyShaderModule(device.LogicalDevice, s.fragment, device.Allocator)
		s.fragment = vk.NullShaderModule
	}
}
