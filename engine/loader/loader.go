// Package loader imports glTF 2.0 assets (.gltf and .glb) into decoded models. Geometry is read with
// github.com/qmuntal/gltf; texture images are decoded concurrently on a bounded worker pool so the
// render goroutine only ever sees finished records.
package loader

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// ErrUnsupportedAsset is returned for files or primitives the loader cannot import.
var ErrUnsupportedAsset = errors.New("unsupported asset")

type loader struct {
	mu     *sync.RWMutex
	logger *slog.Logger

	decodeWorkers int
	decodePool    worker.DynamicWorkerPool
	taskID        int
	taskMu        *sync.Mutex

	modelCache map[string]model.Model
}

// Loader loads and caches models.
type Loader interface {
	// Load imports a .gltf or .glb file and caches the result by path. A cached model is returned as is.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: ErrUnsupportedAsset for unknown extensions or primitives, or a wrapped decode error
	Load(path string) (model.Model, error)

	// LoadReader imports a self-contained glTF or GLB stream and caches it under name.
	// External buffer and image URIs cannot be resolved from a stream.
	//
	// Parameters:
	//   - name: the cache key and name prefix of every record in the model
	//   - r: the reader providing model data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader) (model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	Models() map[string]model.Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:            &sync.RWMutex{},
		taskMu:        &sync.Mutex{},
		logger:        slog.Default(),
		decodeWorkers: 4,
		modelCache:    make(map[string]model.Model),
	}
	for _, option := range options {
		option(l)
	}
	l.logger = l.logger.With("component", "loader")
	l.decodePool = worker.NewDynamicWorkerPool(l.decodeWorkers, 256, 1*time.Second)
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	if m := l.Get(path); m != nil {
		return m, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".gltf" && ext != ".glb" {
		return nil, errors.Wrapf(ErrUnsupportedAsset, "%s: extension %q", path, ext)
	}

	start := time.Now()
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	m, err := l.importDocument(path, doc, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "import %s", path)
	}
	l.store(path, m)
	l.logger.Info("model loaded", "path", path, "parts", len(m.Parts()), "elapsed", time.Since(start))
	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader) (model.Model, error) {
	if m := l.Get(name); m != nil {
		return m, nil
	}
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	m, err := l.importDocument(name, doc, "")
	if err != nil {
		return nil, errors.Wrapf(err, "import %s", name)
	}
	l.store(name, m)
	return m, nil
}

func (l *loader) store(name string, m model.Model) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modelCache[name] = m
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		out[k] = v
	}
	return out
}

// nextTaskID hands out worker task ids.
func (l *loader) nextTaskID() int {
	l.taskMu.Lock()
	defer l.taskMu.Unlock()
	l.taskID++
	return l.taskID
}
