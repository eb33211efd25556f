package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/cmd/airmon/console"
)

var scd30Cmd = cli.Command{
	Name:  "scd30",
	Usage: "SCD30 maintenance",
	Subcommands: []*cli.Command{
		&scd30InfoCmd,
		&scd30CalibrateCmd,
		&scd30SelfCalibrationCmd,
	},
}

// withSCD30 opens the configured bus and runs fn against the sensor.
func withSCD30(c *cli.Context, fn func(ctx context.Context, s *air.SCD30) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return console.Exit(2, "configuration error: %s", console.Red(err))
	}
	ctx, cancel := context.WithTimeout(verboseContext(c.Context, c), 30*time.Second)
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
	return fn(ctx, air.NewSCD30(h.Acquire()))
}

var scd30InfoCmd = cli.Command{
	Name:  "info",
	Usage: "print the firmware version and whether data is ready",
	Flags: busFlags,
	Action: func(c *cli.Context) error {
		return withSCD30(c, func(ctx context.Context, s *air.SCD30) error {
			major, minor, err := s.FirmwareVersion(ctx)
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			ready, err := s.DataReady(ctx)
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			console.Printf("firmware: %s\ndata ready: %s\n", console.White(major, ".", minor), console.White(ready))
			return nil
		})
	},
}

var scd30CalibrateCmd = cli.Command{
	Name:  "calibrate",
	Usage: "forced recalibration against a known CO2 concentration",
	Flags: append([]cli.Flag{
		&cli.UintFlag{
			Name:     "ppm",
			Usage:    "reference CO2 concentration (400-2000 ppm), 415 is fresh outdoor air",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "yes",
			Usage: "do not ask for confirmation",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		ppm := c.Uint("ppm")
		if ppm < 400 || ppm > 2000 {
			return console.Exit(2, "reference concentration must be within 400-2000 ppm")
		}
		if !c.Bool("yes") {
			console.Warn("the sensor must have been measuring at the reference concentration for at least 2 minutes")
			ok, err := console.Confirm("calibrate the sensor to " + console.Bold(ppm, " ppm") + "?")
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if !ok {
				console.Infof("calibration aborted")
				return nil
			}
		}
		return withSCD30(c, func(ctx context.Context, s *air.SCD30) error {
			if err := s.ForceRecalibration(ctx, uint16(ppm)); err != nil {
				return console.Exit(1, "error calibrating: %s", console.Red(err))
			}
			console.Donef("calibrated to %d ppm", ppm)
			return nil
		})
	},
}

var scd30SelfCalibrationCmd = cli.Command{
	Name:      "asc",
	Usage:     "turn automatic self calibration on or off",
	ArgsUsage: "on|off",
	Flags:     busFlags,
	Action: func(c *cli.Context) error {
		var enabled bool
		switch c.Args().First() {
		case "on":
			enabled = true
		case "off":
		default:
			return console.Exit(2, "expected on or off")
		}
		return withSCD30(c, func(ctx context.Context, s *air.SCD30) error {
			if err := s.SetSelfCalibration(ctx, enabled); err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			console.Infof("automatic self calibration: %s", console.White(c.Args().First()))
			return nil
		})
	},
}
