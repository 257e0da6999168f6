// Package renderer is the application-facing sprite renderer.
//
// A Renderer owns every GPU resource it creates: the device (unless one is
// shared with it), the texture registry, the sprite pipeline, the instance
// buffers, and the default offscreen target. New acquires them and Close
// releases them.
//
// Each frame follows the same sequence:
//
//	r.BeginFrame()
//	r.DrawSprite(t, s) // any number of times, up to the queue capacity
//	r.DrawFrame(ctx, cam)
//
// DrawFrame submits the instance upload and then the render pass as two
// ordered submissions on the same queue.
package renderer
