package log

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	mu            sync.RWMutex
	defaultLogger = zap.NewNop()
)

// Options control the process logger.
type Options struct {
	Enabled bool
	Path    string
	Verbose bool
}

func Get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Set replaces the process logger. A nil logger restores the no-op one.
func Set(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	defaultLogger = logger
	mu.Unlock()
}

// New builds a logger from opts. Verbose output uses the console encoder at
// debug level; otherwise JSON at info level. Output goes to Path, or stderr.
func New(opts Options) (*zap.Logger, error) {
	if !opts.Enabled {
		return zap.NewNop(), nil
	}

	var cfg zap.Config
	if opts.Verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}

	output := "stderr"
	if opts.Path != "" {
		output = opts.Path
	}
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	return logger, errors.WithStack(err)
}

func Flush() {
	_ = Get().Sync()
}
