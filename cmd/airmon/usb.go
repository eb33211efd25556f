package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon/adapter"
)

type usbID struct {
	vendor, product uint16
}

// bridges are the USB to I2C bridges the mcp2221 bus backend can drive.
var bridges = map[usbID]string{
	{adapter.VendorID, adapter.ProductID}: "MCP2221",
}

func bridgeName(dev hid.DeviceInfo) (string, bool) {
	name, ok := bridges[usbID{dev.VendorID, dev.ProductID}]
	return name, ok
}

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "inspect USB HID devices (MCP2221 bridges)",
	Subcommands: cli.Commands{
		&usbLsCmd,
		&usbDetectCmd,
	},
}

var usbLsCmd = cli.Command{
	Name:  "ls",
	Usage: "list all HID devices",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "PATH\tSERIAL\tVENDOR\tPRODUCT ID\tMANUFACTURER\tPRODUCT\n")
		for _, dev := range hid.Enumerate(0, 0) {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%#x\t%#x\t%s\t%s\n",
				dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Manufacturer, dev.Product)
		}
		return w.Flush()
	},
}

var usbDetectCmd = cli.Command{
	Name:  "detect",
	Usage: "list connected I2C bridges usable as bus backend",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "PATH\tVENDOR\tPRODUCT\tBRIDGE\n")
		for _, dev := range hid.Enumerate(0, 0) {
			if name, ok := bridgeName(dev); ok {
				_, _ = fmt.Fprintf(w, "%s\t%#x\t%#x\t%s\n", dev.Path, dev.VendorID, dev.ProductID, name)
			}
		}
		return w.Flush()
	},
}
