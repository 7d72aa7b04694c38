package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gekko3d/pathflock"
	"github.com/gekko3d/pathflock/pathrt/core"
	"github.com/gekko3d/pathflock/pathrt/cpu"
	"github.com/gekko3d/pathflock/pathrt/gpu"
	"github.com/gekko3d/pathflock/pathrt/preview"
)

type options struct {
	configPath  string
	scenePath   string
	savePath    string
	frames      int
	every       int
	outDir      string
	workers     int
	debug       bool
	useGPU      bool
	perspective bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML file overlaying the default config")
	flag.StringVar(&opts.scenePath, "scene", "", "load a previously saved scene instead of generating one")
	flag.StringVar(&opts.savePath, "save", "", "write the generated scene to this file")
	flag.IntVar(&opts.frames, "frames", 600, "number of frames to run")
	flag.IntVar(&opts.every, "every", 60, "write a preview every N frames (0 disables)")
	flag.StringVar(&opts.outDir, "out", "frames", "directory for preview PNGs")
	flag.IntVar(&opts.workers, "workers", 0, "CPU backend goroutines (0 = GOMAXPROCS)")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&opts.useGPU, "gpu", false, "evaluate on the GPU via WebGPU compute")
	flag.BoolVar(&opts.perspective, "perspective", false, "render previews with an orbiting perspective camera")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg := pathflock.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = pathflock.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}

	var scene *core.Scene
	if opts.scenePath != "" {
		f, err := os.Open(opts.scenePath)
		if err != nil {
			return fmt.Errorf("open scene: %w", err)
		}
		scene, err = core.DecodeScene(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	var renderer *preview.Renderer
	if opts.every > 0 {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		previewOpts := preview.DefaultOptions()
		if opts.perspective {
			previewOpts.Camera = preview.NewOrbitCamera(2600, 0.5, 0.35)
		}
		var err error
		if renderer, err = preview.NewRenderer(previewOpts); err != nil {
			return err
		}
	}

	backend, read, err := newBackend(opts)
	if err != nil {
		return err
	}

	builder := pathflock.NewAppBuilder().
		UseModule(pathflock.LoggingModule{Prefix: "pathflock", Debug: opts.debug}).
		UseModule(pathflock.ProfilerModule{LogEvery: 60}).
		UseModule(pathflock.PathAnimationModule{Config: cfg, Backend: backend, Scene: scene})
	if renderer != nil {
		builder.UseModule(CaptureModule{Renderer: renderer, Every: uint64(opts.every), Dir: opts.outDir, Read: read})
	}
	return runApp(opts, builder, backend)
}

// runApp builds and runs the app. It owns backend: Shutdown releases it
// once built, and a failed build releases it directly.
func runApp(opts options, builder *pathflock.AppBuilder, backend pathflock.Backend) error {
	app, err := buildApp(builder)
	if err != nil {
		backend.Release()
		return err
	}
	defer app.Shutdown()

	if opts.savePath != "" {
		sim, _ := pathflock.Resource[pathflock.Simulation](app)
		if err := saveScene(opts.savePath, sim.Scene); err != nil {
			return err
		}
		app.Logger().Infof("scene saved to %s", opts.savePath)
	}

	if err := app.Run(opts.frames); err != nil {
		return err
	}
	if r, ok := pathflock.Resource[pathflock.FrameRenderer](app); ok {
		app.Logger().Infof("%d frames drawn, last draw took %s", r.Frames, r.LastDraw)
	}
	return nil
}

// buildApp installs the builder's modules, turning an install panic into an
// error.
func buildApp(b *pathflock.AppBuilder) (app *pathflock.App, err error) {
	defer func() {
		if r := recover(); r != nil {
			app, err = nil, fmt.Errorf("build app: %v", r)
		}
	}()
	return b.Build(), nil
}

// newBackend returns the selected backend and a function reading back its
// last frame.
func newBackend(opts options) (pathflock.Backend, func() (*core.Frame, error), error) {
	if opts.useGPU {
		b, err := gpu.NewHeadless("pathflock")
		if err != nil {
			return nil, nil, fmt.Errorf("gpu backend: %w", err)
		}
		return b, b.ReadFrame, nil
	}
	b := cpu.New(opts.workers)
	return b, func() (*core.Frame, error) { return b.Frame(), nil }, nil
}

func saveScene(path string, scene *core.Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scene file: %w", err)
	}
	if err := core.EncodeScene(f, scene); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var Capture = pathflock.Stage{Name: "Capture"}

// CaptureModule writes a preview PNG of every Every-th drawn frame.
type CaptureModule struct {
	Renderer *preview.Renderer
	Every    uint64
	Dir      string
	Read     func() (*core.Frame, error)
}

type capture struct {
	CaptureModule
	Written int
}

func (m CaptureModule) Install(app *pathflock.App, cmd *pathflock.Commands) {
	app.UseStage(Capture, pathflock.AfterStage(pathflock.Render))
	cmd.AddResources(&capture{CaptureModule: m})
	cmd.UseSystem(pathflock.System(captureSystem).InStage(Capture))
}

func captureSystem(c *capture, r *pathflock.FrameRenderer, cmd *pathflock.Commands) error {
	if r.Frames == 0 || (r.Frames-1)%c.Every != 0 {
		return nil
	}
	frame, err := c.Read()
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}
	img := c.Renderer.Render(frame, fmt.Sprintf("frame %d  t=%.2fs", r.Frames-1, frame.Time))
	path := filepath.Join(c.Dir, fmt.Sprintf("frame_%05d.png", r.Frames-1))
	if err := preview.WritePNG(path, img); err != nil {
		return err
	}
	c.Written++
	cmd.Logger().Debugf("wrote %s", path)
	return nil
}
