package render

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/chmdznr/filetx/internal/load"
	"github.com/chmdznr/filetx/pkg/describe"
	"github.com/chmdznr/filetx/pkg/utils"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Renderer writes descriptions of loaded records
type Renderer struct {
	formatter   describe.Formatter
	logger      zerolog.Logger
	strict      bool
	separator   string
	progress    bool
	progressOut io.Writer
}

// Config holds configuration for the renderer
type Config struct {
	// Strict aborts on the first invalid entry instead of skipping it.
	Strict bool
	// Separator is written between two descriptions.
	Separator string
	// Progress enables a progress bar on ProgressOutput.
	Progress       bool
	ProgressOutput io.Writer
}

// DefaultConfig returns default renderer configuration
func DefaultConfig() Config {
	return Config{
		Strict:         true,
		Separator:      "\n",
		ProgressOutput: os.Stderr,
	}
}

// Stats summarizes one Render call
type Stats struct {
	Total    int
	Rendered int
	Skipped  int
	Elapsed  time.Duration
}

// New creates a new renderer. A nil formatter uses describe.DefaultFormatter
// and a nil config uses DefaultConfig.
func New(formatter describe.Formatter, logger zerolog.Logger, config *Config) *Renderer {
	if formatter == nil {
		formatter = describe.NewDefaultFormatter()
	}
	if config == nil {
		defaultConfig := DefaultConfig()
		config = &defaultConfig
	}
	progressOut := config.ProgressOutput
	if progressOut == nil {
		progressOut = os.Stderr
	}

	return &Renderer{
		formatter:   formatter,
		logger:      logger,
		strict:      config.Strict,
		separator:   config.Separator,
		progress:    config.Progress,
		progressOut: progressOut,
	}
}

// renderProgress tracks progress over the entries of one Render call
type renderProgress struct {
	bar *pb.ProgressBar
}

func newRenderProgress(total int, out io.Writer) *renderProgress {
	bar := pb.New(total)
	bar.SetWriter(out)
	bar.SetTemplate(`Describing {{counters . }} {{bar . }} {{percent . }} {{etime . }}`)
	return &renderProgress{bar: bar}
}

func (p *renderProgress) start() {
	if p != nil {
		p.bar.Start()
	}
}

func (p *renderProgress) increment() {
	if p != nil {
		p.bar.Increment()
	}
}

func (p *renderProgress) finish() {
	if p != nil {
		p.bar.Finish()
	}
}

// Render writes the description of every entry to w in input order. Invalid
// entries abort the call in strict mode and are logged and skipped otherwise.
func (r *Renderer) Render(ctx context.Context, entries []load.Entry, w io.Writer) (Stats, error) {
	stats := Stats{Total: len(entries)}
	start := time.Now()

	var progress *renderProgress
	if r.progress {
		progress = newRenderProgress(len(entries), r.progressOut)
		progress.start()
	}
	defer progress.finish()

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}

		err := entry.Err
		var text string
		if err == nil {
			text, err = r.formatter.Describe(entry.Record)
		}
		if err != nil {
			if r.strict {
				stats.Elapsed = time.Since(start)
				return stats, errors.Errorf("entry %d: %w", entry.Position, err)
			}
			r.logger.Warn().
				Int("position", entry.Position).
				Err(err).
				Msg("skipping invalid record")
			stats.Skipped++
			progress.increment()
			continue
		}

		if stats.Rendered > 0 {
			if _, err := io.WriteString(w, r.separator); err != nil {
				return stats, errors.Errorf("writing output: %w", err)
			}
		}
		if _, err := io.WriteString(w, text+"\n"); err != nil {
			return stats, errors.Errorf("writing output: %w", err)
		}
		stats.Rendered++
		progress.increment()
	}

	stats.Elapsed = time.Since(start)
	r.logger.Info().
		Int("total", stats.Total).
		Int("rendered", stats.Rendered).
		Int("skipped", stats.Skipped).
		Str("elapsed", utils.FormatDuration(stats.Elapsed)).
		Msg("render completed")
	return stats, nil
}
