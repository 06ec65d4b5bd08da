package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/posecap/config"
	"go.viam.com/posecap/device"
	"go.viam.com/posecap/device/fake"
	"go.viam.com/posecap/device/replay"
	"go.viam.com/posecap/filter"
	_ "go.viam.com/posecap/filter/builtin"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/mapping"
	"go.viam.com/posecap/pipeline"
)

const (
	// Flags.
	flagConfig       = "config"
	flagDebug        = "debug"
	flagLogFile      = "log-file"
	flagFrames       = "frames"
	flagNoise        = "noise"
	flagSeed         = "seed"
	flagRealtime     = "realtime"
	flagWatch        = "watch"
	flagRecordDir    = "record-dir"
	flagReadyTimeout = "ready-timeout"
	flagJSON         = "json"
)

type posecapApp struct {
	logger logging.Logger
}

func newApp(logger logging.Logger) *cli.App {
	a := &posecapApp{logger: logger}
	return &cli.App{
		Name:  "posecap",
		Usage: "capture, filter and map tracked poses",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write JSON logs to a rotated `FILE`",
			},
		},
		Before: a.setupLogging,
		After: func(c *cli.Context) error {
			//nolint:errcheck
			a.logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "process frames from a synthetic device until interrupted",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{Name: flagFrames, Usage: "stop after `N` frames, 0 runs until interrupted"},
					&cli.Float64Flag{Name: flagNoise, Usage: "amplitude of the noise added to every frame"},
					&cli.Int64Flag{Name: flagSeed, Value: 1, Usage: "noise seed"},
					&cli.BoolFlag{Name: flagRealtime, Value: true, Usage: "pace frames at the device rate"},
					&cli.BoolFlag{Name: flagWatch, Usage: "apply config file changes while running"},
					&cli.StringFlag{Name: flagRecordDir, Usage: "record the session and export it to `DIR`"},
					&cli.DurationFlag{
						Name:  flagReadyTimeout,
						Value: device.DefaultReadyTimeout,
						Usage: "how long to wait for the device to become ready",
					},
				},
				Action: a.runAction,
			},
			{
				Name:      "replay",
				Usage:     "process a stored recording through a pipeline",
				ArgsUsage: "<recording.jsonl>",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: flagRecordDir, Usage: "export the replayed session to `DIR`"},
				},
				Action: a.replayAction,
			},
			{
				Name:      "stats",
				Usage:     "summarize how much stored recordings were smoothed",
				ArgsUsage: "<recording.jsonl>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: flagJSON, Usage: "print JSON instead of a table"},
				},
				Action: a.statsAction,
			},
			{
				Name:      "schema",
				Usage:     "print the JSON schema of a filter model's attributes",
				ArgsUsage: "<model>",
				Action: func(c *cli.Context) error {
					schema, ok := filter.Schema(c.Args().First())
					if !ok {
						return errors.Errorf("unknown filter model %q, registered models are %v",
							c.Args().First(), filter.RegisteredModels())
					}
					return printJSON(c.App.Writer, schema)
				},
			},
			{
				Name:  "validate",
				Usage: "check a configuration file",
				Flags: []cli.Flag{configFlag()},
				Action: func(c *cli.Context) error {
					cfg, err := config.Read(c.String(flagConfig))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s: %s rig, profile %q, %d filters\n",
						c.String(flagConfig), cfg.Rig, cfg.Mapping.Profile, len(cfg.Filters))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list the available filter models and mapping profiles",
				Action: func(c *cli.Context) error {
					t := table.NewWriter()
					t.AppendHeader(table.Row{"Kind", "Name", "Input", "Output"})
					for _, model := range filter.RegisteredModels() {
						t.AppendRow(table.Row{"filter", model, "", ""})
					}
					for _, name := range mapping.Registered() {
						reg, _ := mapping.Lookup(name)
						t.AppendRow(table.Row{"profile", name, reg.Input, reg.Output})
					}
					fmt.Fprintln(c.App.Writer, t.Render())
					return nil
				},
			},
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagConfig,
		Aliases:  []string{"c"},
		Usage:    "load pipeline configuration from `FILE`",
		Required: true,
	}
}

func (a *posecapApp) setupLogging(c *cli.Context) error {
	if c.Bool(flagDebug) {
		a.logger.SetLevel(logging.DEBUG)
	}
	if path := c.String(flagLogFile); path != "" {
		a.logger.AddAppender(logging.NewFileAppender(logging.FileAppenderConfig{Path: path}))
	}
	logging.ReplaceGlobal(a.logger)
	return nil
}

func (a *posecapApp) runAction(c *cli.Context) (err error) {
	ctx := c.Context
	cfg, err := config.Read(c.String(flagConfig))
	if err != nil {
		return err
	}
	d, err := pipeline.Build(cfg, a.logger.Sublogger("pipeline"))
	if err != nil {
		return err
	}

	dev := fake.New("fake-"+cfg.Rig.String(), fake.Config{
		Kind:     cfg.Rig,
		Frames:   c.Int(flagFrames),
		Noise:    c.Float64(flagNoise),
		Seed:     c.Int64(flagSeed),
		Realtime: c.Bool(flagRealtime),
	})
	defer func() {
		err = multierr.Combine(err, dev.Close(ctx))
	}()
	if err := device.WaitForReady(ctx, dev, c.Duration(flagReadyTimeout), nil, a.logger); err != nil {
		return err
	}

	var reconfigure <-chan *config.Config
	if c.Bool(flagWatch) {
		watcher, watchErr := config.NewWatcher(cfg.ConfigFilePath, a.logger.Sublogger("config"))
		if watchErr != nil {
			return watchErr
		}
		defer func() {
			err = multierr.Combine(err, watcher.Close())
		}()
		reconfigure = watcher.Config()
	}

	recordDir := c.String(flagRecordDir)
	if recordDir != "" {
		d.StartRecording()
	}
	runErr := pipeline.Run(ctx, dev, d, reconfigure)
	if errors.Is(runErr, context.Canceled) {
		a.logger.Info("capture interrupted")
		runErr = nil
	}
	if runErr != nil {
		return runErr
	}
	return a.finish(c, d, recordDir)
}

func (a *posecapApp) replayAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one recording")
	}
	cfg, err := config.Read(c.String(flagConfig))
	if err != nil {
		return err
	}
	d, err := pipeline.Build(cfg, a.logger.Sublogger("pipeline"))
	if err != nil {
		return err
	}
	dev, err := replay.Open(c.Args().First(), false)
	if err != nil {
		return err
	}
	if dev.Kind() != cfg.Rig {
		return errors.Errorf("recording holds %s frames but the pipeline expects %s", dev.Kind(), cfg.Rig)
	}

	recordDir := c.String(flagRecordDir)
	if recordDir != "" {
		d.StartRecording()
	}
	if err := pipeline.Run(c.Context, dev, d, nil); err != nil {
		return err
	}
	return a.finish(c, d, recordDir)
}

// finish exports the recording in progress, if any, and prints the session summary.
func (a *posecapApp) finish(c *cli.Context, d *pipeline.Driver, recordDir string) error {
	if recordDir != "" {
		rec, err := d.StopRecording()
		if err != nil {
			return err
		}
		exporter := pipeline.FileExporter{Dir: recordDir}
		if err := exporter.Export(c.Context, rec); err != nil {
			return errors.Wrap(err, "cannot export recording")
		}
		a.logger.Infow("recording exported", "path", exporter.Path(rec), "keyframes", rec.Len())
	}
	summary, err := d.Stats().Summary()
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, summary)
}

type recordingSummary struct {
	Path    string           `json:"path"`
	ID      string           `json:"id"`
	Summary pipeline.Summary `json:"summary"`
}

func (a *posecapApp) statsAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("expected at least one recording")
	}
	paths := c.Args().Slice()
	summaries := make([]recordingSummary, len(paths))
	group, _ := errgroup.WithContext(c.Context)
	for i, path := range paths {
		group.Go(func() error {
			summary, err := summarizeRecording(path)
			if err != nil {
				return errors.Wrapf(err, "cannot summarize %q", path)
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	a.logger.Debugw("summarized recordings", "count", len(summaries))

	if c.Bool(flagJSON) {
		return printJSON(c.App.Writer, summaries)
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Recording", "Frames", "Raw jitter", "Result jitter", "Raw stddev", "Result stddev"})
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Path,
			s.Summary.Frames,
			fmt.Sprintf("%.4f", s.Summary.MeanRawJitter),
			fmt.Sprintf("%.4f", s.Summary.MeanResultJitter),
			fmt.Sprintf("%.4f", s.Summary.StdDevRawJitter),
			fmt.Sprintf("%.4f", s.Summary.StdDevResultJitter),
		})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

// summarizeRecording compares the stored raw and processed frames of a recording without
// reprocessing them.
func summarizeRecording(path string) (recordingSummary, error) {
	rec, err := pipeline.ReadRecordingFile(path)
	if err != nil {
		return recordingSummary{}, err
	}
	var stats pipeline.Stats
	for _, kf := range rec.Keyframes {
		raw := kf.Raw
		if raw == nil {
			raw = kf.Frame
		}
		stats.Observe(raw, kf.Frame, 0)
	}
	summary, err := stats.Summary()
	if err != nil {
		return recordingSummary{}, err
	}
	return recordingSummary{Path: path, ID: rec.ID.String(), Summary: summary}, nil
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
