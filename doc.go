// Package sprite provides the value types of a batched 2D sprite renderer
// built on gogpu/wgpu.
//
// # Overview
//
// A frame is a list of sprite draws. Each draw pairs a [Sprite] (a texture
// handle plus scale) with a [Transform]. The renderer collects the draws of
// one frame into a fixed-capacity queue, uploads them as a single instance
// array through a staging buffer, and renders the whole queue with one draw
// call. The [Camera] supplies the view matrix that is combined with the
// projection once per frame.
//
// # Quick Start
//
//	r, err := renderer.New(renderer.WithViewport(800, 600))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	tex, err := r.LoadAndRegisterTexture("ship.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cam := sprite.NewCamera()
//	ship := sprite.NewSprite(tex, 1, 1)
//	t := sprite.NewTransform(400, 300, 0)
//
//	for running {
//	    r.BeginFrame()
//	    _ = r.DrawSprite(t, ship)
//	    if _, err := r.DrawFrame(ctx, cam); err != nil && !errors.Is(err, sprite.ErrFrameSkipped) {
//	        log.Fatal(err)
//	    }
//	}
//
// # Architecture
//
// The module is organized into:
//   - sprite: Transform, Camera, Sprite, TextureHandle, errors, logging
//   - renderer: the application-facing Renderer and its options
//   - internal/gpu: draw queue, instance packing, batcher, texture registry, pipelines
//   - internal/asset: content directory layout and image decoding
//   - cmd/spritedemo: headless demo that renders to PNG
//
// # Logging
//
// The module is silent by default. Call [SetLogger] to route diagnostics to
// a [log/slog] handler.
package sprite
