// Command deferred-viewer opens a glTF model in the deferred renderer.
//
// Controls: drag with the middle mouse button to orbit, scroll to zoom, WASD/QE to pan,
// 1-6 to switch debug views, F for wireframe, C to toggle culling, R to reload settings.
package main

import (
	"context"
	"flag"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/game_object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/loader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

var skyboxFaceNames = [6]string{"px", "nx", "py", "ny", "pz", "nz"}

func main() {
	modelPath := flag.String("model", "", "glTF or GLB file to display")
	settingsPath := flag.String("settings", "", "YAML settings file, watched for edits")
	skyboxDir := flag.String("skybox", "", "directory holding px/nx/py/ny/pz/nz face images")
	grid := flag.Int("grid", 1, "instances per side of a grid of copies of the model")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(logger, *modelPath, *settingsPath, *skyboxDir, *grid); err != nil {
		logger.Error("viewer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, modelPath, settingsPath, skyboxDir string, grid int) error {
	if modelPath == "" {
		return errors.New("-model is required")
	}
	if grid < 1 {
		grid = 1
	}

	settings := config.Default()
	if settingsPath != "" {
		s, err := config.Load(settingsPath)
		if err != nil {
			return err
		}
		settings = s
	}

	l := loader.NewLoader(loader.WithLogger(logger))
	m, err := l.Load(modelPath)
	if err != nil {
		return errors.Wrapf(err, "load %s", modelPath)
	}

	var rendererOptions []renderer.RendererBuilderOption
	if skyboxDir != "" {
		faces, err := loadSkybox(skyboxDir)
		if err != nil {
			return err
		}
		rendererOptions = append(rendererOptions, renderer.WithSkybox(faces))
	}

	win, err := window.NewWindow(
		window.WithTitle(settings.Window.Title),
		window.WithSize(settings.Window.Width, settings.Window.Height),
		window.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	width, height := win.Size()
	spacing := gridSpacing(m)
	cam := camera.NewCamera(
		camera.WithAspect(float32(width)/float32(height)),
		camera.WithController(frameModel(m, grid, spacing)),
	)

	options := []engine.EngineBuilderOption{
		engine.WithWindow(win),
		engine.WithSettings(settings),
		engine.WithCamera(cam),
		engine.WithLogger(logger),
		engine.WithRendererOptions(rendererOptions...),
	}
	if settingsPath != "" {
		options = append(options, engine.WithSettingsFile(settingsPath))
	}
	eng, err := engine.NewEngine(options...)
	if err != nil {
		_ = win.Close()
		return err
	}
	defer eng.Release()

	half := float32(grid-1) * spacing / 2
	for x := 0; x < grid; x++ {
		for z := 0; z < grid; z++ {
			eng.Scene().Add(game_object.NewGameObject(
				game_object.WithModel(m),
				game_object.WithPosition(float32(x)*spacing-half, 0, float32(z)*spacing-half),
			))
		}
	}
	logger.Info("scene ready", "model", m.Name(), "instances", grid*grid)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return eng.Run(ctx)
}

// gridSpacing keeps neighbouring copies from overlapping.
func gridSpacing(m model.Model) float32 {
	_, radius := m.BoundingSphere()
	if radius <= 0 {
		return 1
	}
	return radius * 2.5
}

func frameModel(m model.Model, grid int, spacing float32) camera.Controller {
	center, radius := m.BoundingSphere()
	if radius <= 0 {
		radius = 1
	}
	extent := radius + float32(grid-1)*spacing/2
	return camera.NewController(
		camera.WithTarget(center),
		camera.WithRadius(extent*3),
		camera.WithRadiusRange(radius*0.1, extent*50),
		camera.WithElevation(0.4),
		camera.WithAzimuth(0.6),
		camera.WithSpeeds(0.005, extent*0.1, extent*0.02),
	)
}

func loadSkybox(dir string) (renderer.SkyboxFaces, error) {
	var faces renderer.SkyboxFaces
	for i, name := range skyboxFaceNames {
		img, err := loadFace(dir, name)
		if err != nil {
			return faces, err
		}
		faces[i] = img
	}
	return faces, nil
}

func loadFace(dir, name string) (image.Image, error) {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp"} {
		f, err := os.Open(filepath.Join(dir, name+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "open skybox face")
		}
		img, _, err := image.Decode(f)
		_ = f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decode skybox face %s", f.Name())
		}
		return img, nil
	}
	return nil, errors.Errorf("skybox face %q not found in %s", name, dir)
}
