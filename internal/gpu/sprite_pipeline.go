//go:build !nogpu

package gpu

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/internal/asset"
)

//go:embed shaders/sprite.vert.wgsl
var spriteVertexSource string

//go:embed shaders/sprite.frag.wgsl
var spriteFragmentSource string

// Shader stage names looked up in the content directory.
const (
	SpriteVertexShader   = "Sprite.vert"
	SpriteFragmentShader = "Sprite.frag"
)

// Bind group 0 layout shared by both stages.
const (
	bindingInstances = 0
	bindingUniforms  = 1
	bindingTexture   = 2
	bindingSampler   = 3
)

// uniformSize is one column-major mat4x4<f32>.
const uniformSize = 64

// ShaderSource resolves a shader stage by name, e.g. "Sprite.vert".
// A missing stage must be reported with an error matching fs.ErrNotExist.
type ShaderSource interface {
	Shader(name string) (asset.Shader, error)
}

// builtinShader returns the embedded source for the sprite stages.
func builtinShader(name string) (asset.Shader, bool) {
	switch name {
	case SpriteVertexShader:
		return asset.Shader{Name: name, Stage: asset.StageVertex, EntryPoint: asset.EntryPoint, Source: spriteVertexSource}, true
	case SpriteFragmentShader:
		return asset.Shader{Name: name, Stage: asset.StageFragment, EntryPoint: asset.EntryPoint, Source: spriteFragmentSource}, true
	}
	return asset.Shader{}, false
}

// CompileSPIRV compiles WGSL to SPIR-V words.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	code, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("spir-v output is %d bytes, not a multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = uint32(code[i*4]) |
			uint32(code[i*4+1])<<8 |
			uint32(code[i*4+2])<<16 |
			uint32(code[i*4+3])<<24
	}
	return words, nil
}

// PipelineFactory builds sprite pipelines from shader assets.
// Stages missing from the source fall back to the embedded shaders.
type PipelineFactory struct {
	device hal.Device
	source ShaderSource
	spirv  bool
	filter gputypes.FilterMode
}

// NewPipelineFactory returns a factory that reads stages from source.
// source may be nil to use only the embedded shaders.
func NewPipelineFactory(device hal.Device, source ShaderSource) *PipelineFactory {
	return &PipelineFactory{
		device: device,
		source: source,
		filter: gputypes.FilterModeNearest,
	}
}

// UseSPIRV makes the factory compile WGSL to SPIR-V with naga before
// creating shader modules, instead of handing WGSL to the backend.
func (f *PipelineFactory) UseSPIRV(on bool) { f.spirv = on }

// SetFilter selects the sampler filter. The default is nearest.
func (f *PipelineFactory) SetFilter(m gputypes.FilterMode) { f.filter = m }

// LoadStage returns the named stage from the source, or the embedded
// version when the source does not have it.
func (f *PipelineFactory) LoadStage(name string) (asset.Shader, error) {
	if f.source != nil {
		sh, err := f.source.Shader(name)
		if err == nil {
			slogger().Debug("gpu: shader loaded from content", "name", name)
			return sh, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return asset.Shader{}, err
		}
	}
	sh, ok := builtinShader(name)
	if !ok {
		return asset.Shader{}, fmt.Errorf("%w: shader %s not found", sprite.ErrResourceLoad, name)
	}
	return sh, nil
}

func (f *PipelineFactory) createModule(sh asset.Shader) (hal.ShaderModule, error) {
	src := hal.ShaderSource{WGSL: sh.Source}
	if f.spirv {
		words, err := CompileSPIRV(sh.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: compile %s: %w", sprite.ErrResourceLoad, sh.Name, err)
		}
		src = hal.ShaderSource{SPIRV: words}
	}
	module, err := f.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  sh.Name,
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create shader module %s: %w", sprite.ErrDeviceResource, sh.Name, err)
	}
	return module, nil
}

// SpritePipeline owns the GPU objects of the sprite render pipeline.
type SpritePipeline struct {
	device hal.Device
	format gputypes.TextureFormat

	vertexShader   hal.ShaderModule
	fragmentShader hal.ShaderModule
	bindLayout     hal.BindGroupLayout
	pipeLayout     hal.PipelineLayout
	pipeline       hal.RenderPipeline
	sampler        hal.Sampler
}

// Build creates a pipeline rendering into targets of the given format.
// On failure every object created so far is released.
func (f *PipelineFactory) Build(format gputypes.TextureFormat) (*SpritePipeline, error) {
	p := &SpritePipeline{device: f.device, format: format}
	if err := f.build(p); err != nil {
		p.Destroy()
		return nil, err
	}
	slogger().Debug("gpu: sprite pipeline created", "format", format, "spirv", f.spirv)
	return p, nil
}

func (f *PipelineFactory) build(p *SpritePipeline) error {
	vs, err := f.LoadStage(SpriteVertexShader)
	if err != nil {
		return err
	}
	fsh, err := f.LoadStage(SpriteFragmentShader)
	if err != nil {
		return err
	}
	if p.vertexShader, err = f.createModule(vs); err != nil {
		return err
	}
	if p.fragmentShader, err = f.createModule(fsh); err != nil {
		return err
	}

	// Binding 0: instances (read-only storage, vertex)
	// Binding 1: view-projection (uniform, vertex)
	// Binding 2: sprite texture (fragment)
	// Binding 3: sampler (fragment)
	p.bindLayout, err = f.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "sprite_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    bindingInstances,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    bindingUniforms,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    bindingTexture,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    bindingSampler,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create sprite bind layout: %w", sprite.ErrDeviceResource, err)
	}

	p.pipeLayout, err = f.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "sprite_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("%w: create sprite pipeline layout: %w", sprite.ErrDeviceResource, err)
	}

	p.sampler, err = f.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "sprite_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    f.filter,
		MinFilter:    f.filter,
		MipmapFilter: f.filter,
	})
	if err != nil {
		return fmt.Errorf("%w: create sprite sampler: %w", sprite.ErrDeviceResource, err)
	}

	blend := alphaBlend()
	p.pipeline, err = f.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "sprite_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vertexShader,
			EntryPoint: vs.EntryPoint,
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragmentShader,
			EntryPoint: fsh.EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.format,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create sprite pipeline: %w", sprite.ErrDeviceResource, err)
	}
	return nil
}

// alphaBlend is straight alpha: src*srcA + dst*(1-srcA).
func alphaBlend() gputypes.BlendState {
	return gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

// Format returns the color format the pipeline renders to.
func (p *SpritePipeline) Format() gputypes.TextureFormat { return p.format }

// NewBindGroup binds the instance buffer, uniform buffer, and a texture.
func (p *SpritePipeline) NewBindGroup(instances hal.Buffer, instanceBytes uint64, uniforms hal.Buffer, view hal.TextureView) (hal.BindGroup, error) {
	bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "sprite_bind_group",
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: bindingInstances, Resource: gputypes.BufferBinding{Buffer: instances.NativeHandle(), Offset: 0, Size: instanceBytes}},
			{Binding: bindingUniforms, Resource: gputypes.BufferBinding{Buffer: uniforms.NativeHandle(), Offset: 0, Size: uniformSize}},
			{Binding: bindingTexture, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: bindingSampler, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create sprite bind group: %w", sprite.ErrDeviceResource, err)
	}
	return bg, nil
}

// Destroy releases all pipeline objects. Safe to call more than once.
func (p *SpritePipeline) Destroy() {
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.fragmentShader != nil {
		p.device.DestroyShaderModule(p.fragmentShader)
		p.fragmentShader = nil
	}
	if p.vertexShader != nil {
		p.device.DestroyShaderModule(p.vertexShader)
		p.vertexShader = nil
	}
}
