// Command spritedemo renders an animated field of sprites headlessly and
// saves the last frame as a PNG.
//
// Usage:
//
//	spritedemo [-config demo.yaml] [-validate-shaders]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/internal/asset"
	"github.com/gogpu/sprite/internal/gpu"
	"github.com/gogpu/sprite/renderer"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		validate   = flag.Bool("validate-shaders", false, "compile the content shaders to SPIR-V and exit")
	)
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *validate {
		err = validateShaders(cfg.ContentDir, logger)
	} else {
		err = run(context.Background(), cfg, logger)
	}
	if err != nil {
		logger.Error("spritedemo failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	if err := ensureTexture(cfg.ContentDir, cfg.Texture); err != nil {
		return err
	}

	opts := []renderer.Option{
		renderer.WithLogger(logger),
		renderer.WithViewport(cfg.Width, cfg.Height),
		renderer.WithMaxSprites(cfg.MaxSprites),
		renderer.WithContentDir(cfg.ContentDir),
		renderer.WithClearColor(sprite.Color{R: cfg.ClearColor[0], G: cfg.ClearColor[1], B: cfg.ClearColor[2], A: cfg.ClearColor[3]}),
		renderer.WithRotationExtraction(cfg.Rotate),
		renderer.WithSPIRVShaders(cfg.SPIRV),
		renderer.WithLinearFilter(cfg.LinearFilter),
	}
	if cfg.Projection == "perspective" {
		opts = append(opts, renderer.WithPerspective(cfg.FOV, 0.1, 2*-fieldDepth(cfg)))
	}
	if cfg.Backend == "noop" {
		dev, err := gpu.OpenDevice(&noop.API{})
		if err != nil {
			return err
		}
		defer dev.Close()
		opts = append(opts, renderer.WithDevice(dev.Device, dev.Queue))
	}

	r, err := renderer.New(opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	tex, err := r.LoadAndRegisterTexture(cfg.Texture)
	if err != nil {
		return err
	}

	easeFn, _ := cfg.Pan.EaseFunc()
	cam := sprite.NewCamera()
	cam.PanTo(cfg.Pan.X, cfg.Pan.Y, cfg.Pan.Seconds, easeFn)

	const dt = float32(1.0 / 60)
	start := time.Now()
	for frame := 0; frame < cfg.Frames; frame++ {
		cam.Update(dt)
		r.BeginFrame()
		drawField(r, tex, cfg, float32(frame)*dt, logger)
		stats, err := r.DrawFrame(ctx, cam)
		if errors.Is(err, sprite.ErrFrameSkipped) {
			continue
		}
		if err != nil {
			return err
		}
		logger.Debug("frame", "stats", stats)
	}
	logger.Info("rendered",
		"frames", cfg.Frames,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"skipped", r.SkippedFrames(),
		"last", r.Stats())

	img, err := r.Snapshot()
	if err != nil {
		return err
	}
	if err := savePNG(cfg.Output, img); err != nil {
		return err
	}
	logger.Info("snapshot saved", "path", cfg.Output)
	return nil
}

// drawField lays the sprites out on a grid and bobs each row with time.
func drawField(r *renderer.Renderer, tex sprite.TextureHandle, cfg Config, t float32, logger *slog.Logger) {
	cols := int(math.Ceil(math.Sqrt(float64(cfg.Sprites))))
	if cols == 0 {
		return
	}
	cellW := float32(cfg.Width) / float32(cols)
	cellH := float32(cfg.Height) / float32(cols)
	for i := 0; i < cfg.Sprites; i++ {
		col, row := i%cols, i/cols
		bob := float32(math.Sin(float64(t*4+float32(row)))) * cellH / 4

		x, y := cellW*(float32(col)+0.5), cellH*(float32(row)+0.5)+bob
		tr := sprite.NewTransform(x, y, 0)
		if cfg.Projection == "perspective" {
			tr = sprite.NewTransform(x-float32(cfg.Width)/2, float32(cfg.Height)/2-y, fieldDepth(cfg))
		}
		if cfg.Rotate {
			tr.RotateAroundAxis(t*90+float32(i), sprite.AxisForward)
		}
		hue := float32(i) / float32(cfg.Sprites)
		s := sprite.NewSprite(tex, 1, 1).WithTint(sprite.Color{R: 1 - hue, G: 0.5, B: hue, A: 1})

		if err := r.DrawSprite(tr, s); err != nil {
			logger.Warn("sprite dropped", "index", i, "err", err)
			return
		}
	}
}

// fieldDepth is the z at which one world unit covers one pixel under the
// configured field of view. The camera looks down -Z, so it is negative.
func fieldDepth(cfg Config) float32 {
	half := math.Tan(float64(cfg.FOV) * math.Pi / 360)
	return -float32(float64(cfg.Height) / 2 / half)
}

// ensureTexture writes a checkerboard to the image path of file if
// nothing is there yet.
func ensureTexture(contentDir, file string) error {
	path := asset.NewContent(contentDir).ImagePath(file)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return savePNG(path, checkerboard(32, 8))
}

func checkerboard(size, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	light := color.RGBA{R: 240, G: 240, B: 240, A: 255}
	dark := color.RGBA{R: 60, G: 60, B: 60, A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := dark
			if (x/cell+y/cell)%2 == 0 {
				c = light
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// validateShaders compiles both sprite stages, from the content
// directory or the built-in copies, to SPIR-V.
func validateShaders(contentDir string, logger *slog.Logger) error {
	factory := gpu.NewPipelineFactory(nil, asset.NewContent(contentDir))
	for _, name := range []string{gpu.SpriteVertexShader, gpu.SpriteFragmentShader} {
		sh, err := factory.LoadStage(name)
		if err != nil {
			return err
		}
		words, err := gpu.CompileSPIRV(sh.Source)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.Info("shader ok", "name", name, "stage", sh.Stage, "spirv_words", len(words))
	}
	return nil
}
