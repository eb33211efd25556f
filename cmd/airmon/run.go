package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon/cmd/airmon/console"
	"github.com/mklimuk/airmon/device"
	"github.com/mklimuk/airmon/monitor"
)

var runCmd = cli.Command{
	Name:  "run",
	Usage: "run the monitor: poll the sensors and serve their metrics",
	Flags: append(append([]cli.Flag{}, busFlags...), daemonFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(2, "configuration error: %s", console.Red(err))
		}
		kinds, err := device.Resolve(cfg.Sensors)
		if err != nil {
			return console.Exit(2, "configuration error: %s", console.Red(err))
		}
		ctx, stop := signal.NotifyContext(verboseContext(c.Context, c), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := monitor.New(cfg, kinds).Run(ctx); err != nil {
			return console.Exit(1, "monitor failed: %s", console.Red(err))
		}
		return nil
	},
}

var sensorsCmd = cli.Command{
	Name:  "sensors",
	Usage: "list supported sensors",
	Action: func(c *cli.Context) error {
		for _, name := range device.Names() {
			console.Print(name)
		}
		return nil
	},
}

var configCmd = cli.Command{
	Name:  "config",
	Usage: "print the effective configuration",
	Flags: append(append([]cli.Flag{}, busFlags...), daemonFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(2, "configuration error: %s", console.Red(err))
		}
		out, err := cfg.Dump()
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		console.Printf("%s", out)
		return nil
	},
}
