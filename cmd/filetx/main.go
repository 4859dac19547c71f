package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/chmdznr/filetx/internal/load"
	"github.com/chmdznr/filetx/internal/render"
	"github.com/chmdznr/filetx/pkg/models"
	"github.com/chmdznr/filetx/pkg/utils"
	"github.com/chmdznr/filetx/pkg/version"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"gitlab.com/tozd/go/errors"
)

// logger is reconfigured from the global flags before any command runs.
var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("filetx failed")
	}
}

func newApp() *cli.App {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "print the version",
	}

	return &cli.App{
		Name:                 "filetx",
		Usage:                "Describe cloud SLA file transfer records",
		Version:              version.Version,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"FILETX_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "Version:    %s\n", version.Version)
					fmt.Fprintf(c.App.Writer, "Git commit: %s\n", version.GitCommit)
					fmt.Fprintf(c.App.Writer, "Built:      %s\n", version.BuildTime)
					return nil
				},
			},
			{
				Name:  "describe",
				Usage: "Describe every record of a JSON, JSON lines, YAML or CSV file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to the record file, - for stdin",
						Required: true,
						EnvVars:  []string{"FILETX_INPUT"},
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Input format (json, jsonl, yaml, csv); detected from the extension when empty",
						EnvVars: []string{"FILETX_FORMAT"},
					},
					&cli.BoolFlag{
						Name:    "lenient",
						Usage:   "Skip invalid records instead of failing",
						EnvVars: []string{"FILETX_LENIENT"},
					},
					&cli.BoolFlag{
						Name:  "compact",
						Usage: "Do not separate descriptions with a blank line",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show a progress bar on stderr",
					},
				},
				Action: describeRecords,
			},
			{
				Name:   "states",
				Usage:  "List state codes and their names",
				Action: listStates,
			},
			{
				Name:  "hash",
				Usage: "Compute the path hash and, optionally, the content digest of a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "path",
						Usage:    "File path as registered with the contract",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Local file to compute the sha256 digest of",
					},
				},
				Action: hashPath,
			},
		},
	}
}

func setup(c *cli.Context) error {
	level, err := zerolog.ParseLevel(strings.ToLower(c.String("log-level")))
	if err != nil {
		return errors.Errorf("invalid log level %q: %w", c.String("log-level"), err)
	}
	if c.Bool("no-color") {
		color.NoColor = true
	}
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     c.App.ErrWriter,
		NoColor: color.NoColor,
	}).With().Timestamp().Logger().Level(level)
	return nil
}

// describeRecords loads records from the input file and prints one
// description per record.
//
// It takes the following flags from the cli context:
// - input: the record file, or - for stdin
// - format: the input format, required for stdin
// - lenient: skip invalid records instead of failing
// - compact: no blank line between descriptions
// - progress: show a progress bar
func describeRecords(c *cli.Context) error {
	input := c.String("input")

	var (
		format load.Format
		err    error
	)
	switch {
	case c.String("format") != "":
		format, err = load.ParseFormat(c.String("format"))
	case input == "-":
		err = errors.New("format is required when reading from stdin")
	default:
		format, err = load.DetectFormat(input)
	}
	if err != nil {
		return err
	}

	in := c.App.Reader
	if input != "-" {
		file, err := os.Open(input)
		if err != nil {
			return errors.Errorf("error opening input file: %w", err)
		}
		defer file.Close()

		if info, err := file.Stat(); err == nil {
			logger.Debug().
				Str("input", input).
				Str("format", format.String()).
				Str("size", utils.FormatSize(info.Size())).
				Msg("loading records")
		}
		in = file
	}

	entries, err := load.New(format).Load(c.Context, in)
	if err != nil {
		return errors.Errorf("failed to load records: %w", err)
	}

	config := render.DefaultConfig()
	config.Strict = !c.Bool("lenient")
	config.Progress = c.Bool("progress")
	config.ProgressOutput = c.App.ErrWriter
	if c.Bool("compact") {
		config.Separator = ""
	}

	stats, err := render.New(nil, logger, &config).Render(c.Context, entries, c.App.Writer)
	if err != nil {
		return errors.Errorf("failed to describe records: %w", err)
	}
	if stats.Skipped > 0 {
		logger.Warn().Int("skipped", stats.Skipped).Msg("some records were invalid")
	}
	return nil
}

// listStates prints the state table, one code and name per line.
func listStates(c *cli.Context) error {
	codeColor := color.New(color.Faint)
	for _, tag := range models.StateTags() {
		fmt.Fprintf(c.App.Writer, "%s %s\n",
			codeColor.Sprintf("%d", tag.Code()),
			color.CyanString(tag.String()))
	}
	return nil
}

func hashPath(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "Hash of filepath: %s\n", models.HashPath(c.String("path")))

	name := c.String("file")
	if name == "" {
		return nil
	}
	file, err := os.Open(name)
	if err != nil {
		return errors.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	digest, err := models.Digest(file)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Digest: %s\n", digest)
	return nil
}
