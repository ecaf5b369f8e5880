package removebg

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	modelInputName  = "input"
	modelOutputName = "output"
)

// Config locates the matting model and bounds its resource usage.
type Config struct {
	ModelPath   string
	LibraryPath string
	InputSize   int
	// Threads caps intra-op parallelism; 0 keeps the runtime default.
	Threads int
}

// session is one loaded model instance. Run feeds a normalized CHW tensor and
// returns the raw mask values.
type session interface {
	Run(input []float32) ([]float32, error)
	Destroy()
}

type sessionFactory func(cfg Config) (session, error)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initRuntime(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ortSession binds the model to preallocated input/output tensors.
type ortSession struct {
	sess   *ort.AdvancedSession
	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]
	opts   *ort.SessionOptions
}

func newORTSession(cfg Config) (session, error) {
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnx runtime: %w", err)
	}

	n := int64(cfg.InputSize)

	input, err := ort.NewTensor(ort.NewShape(1, 3, n, n), make([]float32, 3*n*n))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	output, err := ort.NewTensor(ort.NewShape(1, 1, n, n), make([]float32, n*n))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	var opts *ort.SessionOptions
	if cfg.Threads > 0 {
		opts, err = ort.NewSessionOptions()
		if err != nil {
			input.Destroy()
			output.Destroy()
			return nil, fmt.Errorf("failed to create session options: %w", err)
		}
		if err := opts.SetIntraOpNumThreads(cfg.Threads); err != nil {
			opts.Destroy()
			input.Destroy()
			output.Destroy()
			return nil, fmt.Errorf("failed to cap session threads: %w", err)
		}
	}

	sess, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{modelInputName},
		[]string{modelOutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		opts,
	)
	if err != nil {
		if opts != nil {
			opts.Destroy()
		}
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to load matting model: %w", err)
	}

	return &ortSession{sess: sess, input: input, output: output, opts: opts}, nil
}

func (s *ortSession) Run(input []float32) ([]float32, error) {
	copy(s.input.GetData(), input)
	if err := s.sess.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	out := make([]float32, len(s.output.GetData()))
	copy(out, s.output.GetData())
	return out, nil
}

func (s *ortSession) Destroy() {
	s.sess.Destroy()
	s.input.Destroy()
	s.output.Destroy()
	if s.opts != nil {
		s.opts.Destroy()
	}
}
