package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"workoutcal/internal/config"
	"workoutcal/internal/ics"
	appLog "workoutcal/internal/log"
	"workoutcal/internal/pipeline"
	"workoutcal/internal/source"
	"workoutcal/internal/web"
	"workoutcal/internal/workout"
)

// flagConfig holds CLI flag values; non-empty values override the config file.
type flagConfig struct {
	configPath string
	start      string
	first      int
	output     string
	sourceFile string
	listen     string
	logLevel   string
	serve      bool
}

func main() {
	// Subcommands that do not need a config file.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "encode":
			exitOnError(encodeCommand(os.Args[2:]))
			return
		case "inspect":
			exitOnError(inspectCommand(os.Args[2:]))
			return
		}
	}

	flags := parseFlags(os.Args[1:])

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	applyFlags(conf, flags)
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid settings", err)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"source", conf.Source.Kind,
		"start_date", conf.StartDate,
		"first_workout_day", conf.FirstWorkoutDay,
		"output", conf.Output,
		"serve", flags.serve,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if !flags.serve {
		if _, err := runOnce(ctx, conf, time.Now(), false); err != nil {
			appLog.Error("calendar generation failed", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf); err != nil {
		appLog.Error("server stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("workoutcal exiting")
}

func parseFlags(args []string) flagConfig {
	var cfg flagConfig
	fs := flag.NewFlagSet("workoutcal", flag.ExitOnError)

	fs.StringVar(&cfg.configPath, "config", "workoutcal.yaml", "Path to config file (created with defaults if missing)")
	fs.StringVar(&cfg.start, "start", "", "Date of the first emitted workout, YYYY-MM-DD (default: today + start_offset_days)")
	fs.IntVar(&cfg.first, "first", -1, "Skip workouts with a lower day number (overrides config if >= 0)")
	fs.StringVar(&cfg.output, "out", "", "Output .ics path (overrides config if set)")
	fs.StringVar(&cfg.sourceFile, "source-file", "", "Read the encoded document from this file instead of the configured source")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address for -serve (overrides config if set)")
	fs.StringVar(&cfg.logLevel, "log-level", "", "debug, info, warn or error (overrides config if set)")
	fs.BoolVar(&cfg.serve, "serve", false, "Serve the calendar over HTTP and rebuild it on the refresh schedule")

	_ = fs.Parse(args)
	return cfg
}

func applyFlags(conf *config.Config, f flagConfig) {
	if f.start != "" {
		conf.StartDate = f.start
	}
	if f.first >= 0 {
		conf.FirstWorkoutDay = f.first
	}
	if f.output != "" {
		conf.Output = f.output
	}
	if f.sourceFile != "" {
		conf.Source.Kind = source.KindFile
		conf.Source.Path = f.sourceFile
	}
	if f.listen != "" {
		conf.Listen = f.listen
	}
	if f.logLevel != "" {
		conf.LogLevel = f.logLevel
	}
}

// runOnce builds the calendar for now and writes it to conf.Output.
// Nothing is written when any stage fails.
func runOnce(ctx context.Context, conf *config.Config, now time.Time, subscription bool) (*pipeline.Result, error) {
	src, err := source.New(source.Options{
		Kind:     conf.Source.Kind,
		Path:     conf.Source.Path,
		URL:      conf.Source.URL,
		CacheDir: conf.Source.CacheDir,
	})
	if err != nil {
		return nil, err
	}

	anchor, err := conf.AnchorDate(now)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Run(ctx, src, pipeline.Options{
		AnchorDate:      anchor,
		FirstWorkoutDay: uint8(conf.FirstWorkoutDay),
		Emit: ics.EmitOptions{
			Name:         conf.CalendarName,
			Subscription: subscription,
			Now:          now,
		},
	})
	if err != nil {
		return nil, err
	}

	if conf.Output != "" {
		if err := config.WriteFileAtomic(conf.Output, []byte(res.Document.Serialize()), 0o644); err != nil {
			return nil, fmt.Errorf("writing calendar: %w", err)
		}
		appLog.Info("calendar written",
			"path", conf.Output,
			"events", len(res.Document.Workouts),
			"anchor_date", anchor.Format(ics.DateLayout),
		)
	}
	return res, nil
}

// serve runs the HTTP feed and rebuilds the calendar on conf.RefreshCron.
// A failed refresh keeps the previously published calendar.
func serve(ctx context.Context, conf *config.Config) error {
	srv := web.NewServer(conf)

	refresh := func() {
		res, err := runOnce(ctx, conf, time.Now(), true)
		if err != nil {
			appLog.Error("calendar refresh failed; keeping previous calendar", err)
			return
		}
		srv.Publish(res)
	}

	res, err := runOnce(ctx, conf, time.Now(), true)
	if err != nil {
		return err
	}
	srv.Publish(res)

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, refresh); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", conf.RefreshCron, err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()
	appLog.Info("refresh scheduled", "cron", conf.RefreshCron)

	return srv.ListenAndServe(ctx)
}

// encodeCommand obfuscates a plain-text workout document:
//
//	workoutcal encode plan.txt [plan.b64]
func encodeCommand(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: workoutcal encode <plain.txt> [out.b64]")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	encoded := workout.Encode(string(data))
	if len(args) == 1 {
		_, err := os.Stdout.WriteString(encoded)
		return err
	}
	return config.WriteFileAtomic(args[1], []byte(encoded), 0o644)
}

// inspectCommand prints the events of a generated calendar:
//
//	workoutcal inspect FitmacherFormel.ics
func inspectCommand(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: workoutcal inspect <calendar.ics>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	sum, err := ics.Inspect(data)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d events\n", sum.Name, len(sum.Events))
	for _, ev := range sum.Events {
		fmt.Printf("%s  %s\n", ev.Start.Format(ics.DateLayout), ev.Summary)
	}
	return nil
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
