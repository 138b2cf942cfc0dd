package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ManouchehrRasoulli/freespeed/internal"
	"github.com/ManouchehrRasoulli/freespeed/pkg"
	"github.com/ManouchehrRasoulli/freespeed/pkg/checker"
	"github.com/ManouchehrRasoulli/freespeed/pkg/glob"
	"github.com/ManouchehrRasoulli/freespeed/pkg/logger"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Value:   "config.yml",
	Usage:   "specify configuration file for service.",
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		clg := logger.NewColorLogger(log.New(os.Stderr, "freespeed --> ", 1|4))
		clg.Printcf(logger.ColorRed, "error freespeed : %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "freespeed",
		Usage: "run a command whenever watched files change",
		Commands: []*cli.Command{
			{
				Name:  "watch",
				Usage: "watch the configured files and run the command on change",
				Description: "A command that fails keeps the change pending: it is run again every\n" +
					"interval until it succeeds. The failure is logged once per streak.",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "run-on-start",
						Usage: "run the command once before watching",
					},
				},
				Action: watch,
			},
			{
				Name:   "list",
				Usage:  "print the compiled glob and the resolved files",
				Flags:  []cli.Flag{configFlag},
				Action: list,
			},
		},
	}
}

func load(cctx *cli.Context) (*pkg.Config, error) {
	file := cctx.String(configFlag.Name)
	cfg, err := pkg.ReadConfig(file)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file %s: %w", file, err)
	}
	return cfg, nil
}

func watch(cctx *cli.Context) error {
	cfg, err := load(cctx)
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	lg := log.New(os.Stdout, "freespeed --> ", 1|4)
	clg := logger.NewColorLogger(lg)

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func() error {
		return runCommand(ctx, cfg.Command, os.Stdout, os.Stderr)
	}

	var options []checker.Option
	if cfg.Verbose {
		options = append(options, checker.WithLogger(lg))
	}

	c, err := checker.New(cfg.Files, cfg.Dirs, run, options...)
	if err != nil {
		return err
	}
	defer c.Close()

	clg.Printcf(logger.ColorGreen, "watch freespeed : %d files, every %v", len(c.Watching()), cfg.Interval)

	if cctx.Bool("run-on-start") {
		if err := run(); err != nil {
			clg.Printcf(logger.ColorRed, "watch freespeed : command failed %v", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return c.Close()
	})
	g.Go(func() error {
		return poll(ctx, c, cfg.Interval, clg)
	})

	return g.Wait()
}

// poll consumes detected changes every interval until ctx is done. A
// failing command stays pending and is retried on every tick; only the
// first failure of a streak is logged.
func poll(ctx context.Context, c *checker.Checker, interval time.Duration, clg *logger.ColorLogger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ran, err := c.ExecuteIfUpdated()
			switch {
			case errors.Is(err, checker.ErrClosed):
				return nil
			case err != nil:
				if !failing {
					clg.Printcf(logger.ColorRed, "watch freespeed : command failed %v, retrying every %v until it succeeds", err, interval)
				}
				failing = true
			case ran:
				if failing {
					clg.Printcf(logger.ColorGreen, "watch freespeed : command succeeded after failing")
				}
				failing = false
				clg.Printcf(logger.ColorBlue, "watch freespeed : change handled")
			}
		}
	}
}

func runCommand(ctx context.Context, argv []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

func list(cctx *cli.Context) error {
	cfg, err := load(cctx)
	if err != nil {
		return err
	}

	out := cctx.App.Writer
	pattern := glob.Compile(cfg.Dirs)
	if pattern != "" {
		fmt.Fprintf(out, "pattern: %s\n", pattern)
	}

	paths, err := glob.Resolve(cfg.Files, cfg.Dirs)
	if err != nil {
		return err
	}

	ws := internal.NewWatchSet(paths)
	for _, f := range cfg.Files {
		if !ws.Contains(f) {
			fmt.Fprintf(out, "%s\t(missing)\n", f)
		}
	}

	for _, m := range ws.Files() {
		origin := "file"
		if ok, err := glob.Match(pattern, m.Name); err != nil {
			return err
		} else if ok {
			origin = "glob"
		}
		fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", m.Name, m.Size, m.ModifyTime.Format(time.RFC3339), origin)
	}
	return nil
}
