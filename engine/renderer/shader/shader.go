package shader

import (
	"embed"
	"path"

	"github.com/pkg/errors"
)

//go:embed assets/*.wgsl
var assets embed.FS

// ShaderType identifies which pipeline stage a shader entry point belongs to.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// ErrShaderNotFound is returned when an embedded shader asset does not exist.
var ErrShaderNotFound = errors.New("shader asset not found")

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	entryPoint string
	shaderType ShaderType
}

// Shader is a single WGSL entry point ready for pipeline creation. Vertex and fragment
// shaders of one pipeline usually share the same source module with different entry points.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the fully pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// EntryPoint returns the WGSL function name invoked for this stage.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// ShaderType returns the pipeline stage of this shader.
	//
	// Returns:
	//   - ShaderType: vertex, fragment or compute
	ShaderType() ShaderType
}

var _ Shader = &shader{}

// NewShader creates a Shader from already-resolved WGSL source.
//
// Parameters:
//   - key: unique identifier used for backend labels and caching
//   - source: WGSL source code
//   - entryPoint: the entry point function name
//   - shaderType: the pipeline stage
//
// Returns:
//   - Shader: the shader
func NewShader(key, source, entryPoint string, shaderType ShaderType) Shader {
	return &shader{
		key:        key,
		source:     source,
		entryPoint: entryPoint,
		shaderType: shaderType,
	}
}

// Load reads an embedded WGSL asset by name (without extension), expands its
// @oxy:include annotations and returns a Shader bound to the given entry point.
//
// Parameters:
//   - name: asset name, e.g. "gbuffer"
//   - entryPoint: the entry point function name
//   - shaderType: the pipeline stage
//
// Returns:
//   - Shader: the loaded shader
//   - error: ErrShaderNotFound or an include expansion error
func Load(name, entryPoint string, shaderType ShaderType) (Shader, error) {
	raw, err := readAsset(name)
	if err != nil {
		return nil, err
	}
	source, err := NewPreProcessor(readAsset).Process(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "pre-process shader %q", name)
	}
	return NewShader(name+":"+entryPoint, source, entryPoint, shaderType), nil
}

// MustLoad is Load for the built-in assets, which are known to exist.
func MustLoad(name, entryPoint string, shaderType ShaderType) Shader {
	s, err := Load(name, entryPoint, shaderType)
	if err != nil {
		panic(err)
	}
	return s
}

func readAsset(name string) (string, error) {
	data, err := assets.ReadFile(path.Join("assets", name+".wgsl"))
	if err != nil {
		return "", errors.Wrapf(ErrShaderNotFound, "%s", name)
	}
	return string(data), nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}
