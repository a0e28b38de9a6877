package main

import (
	"context"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/memoize/driver"
	"github.com/jonwraymond/memoize/remote"
)

// settings is everything the run command reads from flags, the environment
// and the config file, in that order of precedence.
type settings struct {
	Interval  time.Duration
	Cycles    int
	Delay     time.Duration
	Timeout   time.Duration
	FailEvery int
	Retries   int

	BreakerFailures int
	BreakerReset    time.Duration

	LogLevel        string
	MetricsExporter string
	TracingExporter string
	SamplePct       float64

	Listen string
}

func settingsFrom(cmd *cli.Command) settings {
	return settings{
		Interval:        cmd.Duration("interval"),
		Cycles:          cmd.Int("cycles"),
		Delay:           cmd.Duration("delay"),
		Timeout:         cmd.Duration("timeout"),
		FailEvery:       cmd.Int("fail-every"),
		Retries:         cmd.Int("retries"),
		BreakerFailures: cmd.Int("breaker-failures"),
		BreakerReset:    cmd.Duration("breaker-reset"),
		LogLevel:        cmd.String("log-level"),
		MetricsExporter: cmd.String("metrics-exporter"),
		TracingExporter: cmd.String("tracing-exporter"),
		SamplePct:       cmd.Float("sample-pct"),
		Listen:          cmd.String("listen"),
	}
}

// newApp builds the command tree. action receives the resolved settings of
// the run command.
func newApp(action func(context.Context, settings) error) *cli.Command {
	var configPath string
	file := altsrc.NewStringPtrSourcer(&configPath)

	// sources resolves a flag from MEMOIZE_<env> first, then from key in the
	// config file.
	sources := func(env, key string) cli.ValueSourceChain {
		return cli.NewValueSourceChain(
			cli.EnvVar("MEMOIZE_"+env),
			yaml.YAML(key, file),
		)
	}

	run := &cli.Command{
		Name:      "run",
		Usage:     "repeat a cached remote lookup until interrupted",
		UsageText: "memoize run [options]",
		Flags: []cli.Flag{
			// config must stay first: the other flags read the file it names.
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "YAML file with default flag values",
				Sources:     cli.EnvVars("MEMOIZE_CONFIG"),
				Destination: &configPath,
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "pause between lookups",
				Value:   driver.DefaultInterval,
				Sources: sources("INTERVAL", "driver.interval"),
			},
			&cli.IntFlag{
				Name:    "cycles",
				Usage:   "stop after this many lookups (0 runs until interrupted)",
				Sources: sources("CYCLES", "driver.cycles"),
			},
			&cli.DurationFlag{
				Name:    "delay",
				Usage:   "latency of every remote call (0 disables)",
				Value:   remote.DefaultConfig().Delay,
				Sources: sources("DELAY", "remote.delay"),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "bound on a single remote attempt (0 disables)",
				Sources: sources("TIMEOUT", "remote.timeout"),
			},
			&cli.IntFlag{
				Name:    "fail-every",
				Usage:   "make every Nth remote call fail (0 disables)",
				Sources: sources("FAIL_EVERY", "remote.fail_every"),
			},
			&cli.IntFlag{
				Name:    "retries",
				Usage:   "extra attempts after a failed remote call",
				Sources: sources("RETRIES", "remote.retries"),
			},
			&cli.IntFlag{
				Name:    "breaker-failures",
				Usage:   "consecutive failed remote calls that open the breaker (0 disables)",
				Sources: sources("BREAKER_FAILURES", "remote.breaker.failures"),
			},
			&cli.DurationFlag{
				Name:    "breaker-reset",
				Usage:   "how long an open breaker waits before a trial call",
				Value:   remote.DefaultConfig().Breaker.ResetTimeout,
				Sources: sources("BREAKER_RESET", "remote.breaker.reset"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				Sources: sources("LOG_LEVEL", "log.level"),
			},
			&cli.StringFlag{
				Name:    "metrics-exporter",
				Usage:   "prometheus, otlp, stdout or none",
				Value:   "prometheus",
				Sources: sources("METRICS_EXPORTER", "metrics.exporter"),
			},
			&cli.StringFlag{
				Name:    "tracing-exporter",
				Usage:   "otlp, jaeger, stdout or none",
				Value:   "none",
				Sources: sources("TRACING_EXPORTER", "tracing.exporter"),
			},
			&cli.FloatFlag{
				Name:    "sample-pct",
				Usage:   "fraction of traces to sample, 0.0 to 1.0",
				Value:   1.0,
				Sources: sources("SAMPLE_PCT", "tracing.sample_pct"),
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "address for /metrics and the health endpoints (empty disables)",
				Sources: sources("LISTEN", "listen"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return action(ctx, settingsFrom(cmd))
		},
	}

	return &cli.Command{
		Name:     "memoize",
		Usage:    "exercise a method-level result cache",
		Version:  version,
		Commands: []*cli.Command{run},
	}
}
