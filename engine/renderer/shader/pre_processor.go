// pre_processor.go implements the WGSL include pre-processor. Lines of the form
//
//	// @oxy:include <name>
//
// are replaced with the source of the named asset. Each asset is included at most
// once per Process call, so shared struct declarations never collide.
package shader

import (
	"strings"

	"github.com/pkg/errors"
)

const includeAnnotation = "@oxy:include"

// maxIncludeDepth bounds nested includes so a cycle fails instead of recursing forever.
const maxIncludeDepth = 8

// ErrInvalidAnnotation is returned for a malformed @oxy:include line.
var ErrInvalidAnnotation = errors.New("invalid @oxy annotation")

// SourceResolver returns the WGSL source for an include name.
type SourceResolver func(name string) (string, error)

type preProcessor struct {
	resolve  SourceResolver
	included map[string]bool
}

// PreProcessor expands @oxy:include annotations in WGSL source.
type PreProcessor interface {
	// Process returns source with every include annotation replaced by the included text.
	//
	// Parameters:
	//   - source: raw WGSL source code
	//
	// Returns:
	//   - string: the expanded source
	//   - error: ErrInvalidAnnotation, a resolver error, or a depth error on include cycles
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that loads includes through resolve.
func NewPreProcessor(resolve SourceResolver) PreProcessor {
	return &preProcessor{resolve: resolve}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = make(map[string]bool)
	return p.expand(source, 0)
}

func (p *preProcessor) expand(source string, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", errors.Errorf("include depth exceeds %d", maxIncludeDepth)
	}

	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "//"))
		if !strings.HasPrefix(trimmed, includeAnnotation) {
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}

		name := strings.TrimSpace(strings.TrimPrefix(trimmed, includeAnnotation))
		if name == "" || strings.ContainsAny(name, " \t") {
			return "", errors.Wrapf(ErrInvalidAnnotation, "%q", line)
		}
		if p.included[name] {
			continue
		}
		p.included[name] = true

		body, err := p.resolve(name)
		if err != nil {
			return "", err
		}
		expanded, err := p.expand(body, depth+1)
		if err != nil {
			return "", errors.Wrapf(err, "include %q", name)
		}
		sb.WriteString(expanded)
	}
	return strings.TrimSuffix(sb.String(), "\n") + "\n", nil
}
