// Package gpu implements the GPU side of the sprite renderer on top of
// the gogpu/wgpu HAL.
//
// A frame moves through three objects:
//
//   - DrawQueue holds the draws of the current frame, up to a fixed capacity.
//   - SpriteBatcher packs them into 64-byte instances, copies the instances
//     from a CPU-writable staging buffer into a GPU-only storage buffer in
//     one submission, and then draws the whole batch with a single draw
//     call of six vertices per sprite.
//   - Target supplies the color attachment, either an OffscreenTarget or a
//     surface owned by the host application.
//
// TextureRegistry and PipelineFactory own the long-lived resources: the
// sampled textures, the shader modules, and the render pipeline.
//
// The package is excluded with the nogpu build tag.
package gpu
