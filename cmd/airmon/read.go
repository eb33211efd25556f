package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/cmd/airmon/console"
	"github.com/mklimuk/airmon/device"
	"github.com/mklimuk/airmon/metrics"
)

var readCmd = cli.Command{
	Name:      "read",
	Usage:     "boot a single sensor and print one reading",
	ArgsUsage: "<sensor>",
	Flags: append([]cli.Flag{
		&cli.DurationFlag{
			Name:  "timeout",
			Value: 15 * time.Second,
			Usage: "how long to wait for the sensor to report data",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(2, "expected exactly one sensor name, one of: %v", device.Names())
		}
		kind, ok := device.Lookup(c.Args().First())
		if !ok {
			return console.Exit(2, "unknown sensor %q, one of: %v", c.Args().First(), device.Names())
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(2, "configuration error: %s", console.Red(err))
		}
		ctx, cancel := context.WithTimeout(verboseContext(c.Context, c), c.Duration("timeout"))
		defer cancel()

		h, err := bus.Open(ctx, cfg.Bus)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer func() {
			if err := h.Close(); err != nil {
				console.Errorf("error closing bus: %s", console.Red(err))
			}
		}()

		sink := metrics.NewMemory()
		s, err := kind.Boot(ctx, h, sink)
		if err != nil {
			return console.Exit(1, "could not boot %s: %s", kind.Name, console.Red(err))
		}
		// sensors measuring on their own may have nothing to report yet
		for sink.TotalSets() == 0 {
			if err := s.Poll(ctx); err != nil {
				return console.Exit(1, "error reading %s: %s", s.Name(), console.Red(err))
			}
			if sink.TotalSets() > 0 {
				break
			}
			console.Debugf("no data from %s yet", s.Name())
			if err := airmon.Sleep(ctx, time.Second); err != nil {
				return console.Exit(1, "no data from %s: %s", s.Name(), console.Red(err))
			}
		}
		for _, g := range sink.All() {
			console.Printf("%s %s\n", g, console.White(g.Value()))
		}
		return nil
	},
}
