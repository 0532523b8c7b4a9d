package pipeline

import (
	"fmt"
	"strings"

	"github.com/ironsheep/pixel-tools-mcp/internal/raster"
)

// Step is one parsed stage of a pipeline, e.g. {Name: "resize", Args: ["64x64", "nearest"]}.
type Step struct {
	Name string
	Args []string
}

// String renders the step back into pipeline syntax.
func (s Step) String() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return s.Name + ":" + strings.Join(s.Args, ":")
}

func (s Step) compile() (stepFunc, error) {
	def, ok := registry[s.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown step %q", raster.ErrInvalidArgument, s.Name)
	}
	if len(s.Args) < def.minArgs || len(s.Args) > def.maxArgs {
		return nil, fmt.Errorf("%w: step %q takes %s", raster.ErrInvalidArgument, s.Name, def.usage)
	}
	fn, err := def.build(s.Args)
	if err != nil {
		return nil, fmt.Errorf("%w: step %q: %v", raster.ErrInvalidArgument, s.String(), err)
	}
	return fn, nil
}

// Parse splits a pipeline such as "grayscale|blur:2|resize:64x64:nearest"
// into steps. Stages are separated by '|' and arguments by ':'. Every stage
// is checked against the step table, so a malformed pipeline is rejected
// before any pixels are touched.
func Parse(spec string) ([]Step, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("%w: empty pipeline", raster.ErrInvalidArgument)
	}

	parts := strings.Split(spec, "|")
	steps := make([]Step, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: stage %d is empty", raster.ErrInvalidArgument, i+1)
		}
		fields := strings.Split(part, ":")
		step := Step{Name: strings.ToLower(fields[0]), Args: fields[1:]}
		if _, err := step.compile(); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Format joins steps back into a pipeline string.
func Format(steps []Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, "|")
}

// Apply runs steps over buf in order and returns the final buffer. buf is
// not modified. load resolves image paths for overlay and blend steps and
// may be nil when the pipeline has none.
func Apply(buf *raster.Buffer, steps []Step, load Loader) (*raster.Buffer, error) {
	p := raster.NewProcessor(buf)
	for _, step := range steps {
		fn, err := step.compile()
		if err != nil {
			return nil, err
		}
		if err := fn(p, load); err != nil {
			return nil, fmt.Errorf("step %q: %w", step.String(), err)
		}
		if err := p.Err(); err != nil {
			return nil, fmt.Errorf("step %q: %w", step.String(), err)
		}
	}
	return p.Result()
}
