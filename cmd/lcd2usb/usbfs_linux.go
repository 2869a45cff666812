package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/ardnew/lcd2usb/host/hal"
	"github.com/ardnew/lcd2usb/host/hal/linux"
	"github.com/ardnew/lcd2usb/internal/config"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/pkg/linux/usbid"
	"github.com/ardnew/lcd2usb/protocol"
)

func openUSBFS(cfg config.HostConfig) (hal.HostHAL, error) {
	h := linux.New(protocol.VendorID, protocol.ProductID)
	h.SetTransferTimeout(cfg.Timeout)
	return h, nil
}

// listDevices prints every USB device and marks the LCD2USB ones.
func listDevices(w io.Writer) error {
	devs, err := linux.List()
	if err != nil {
		return err
	}

	db := usbid.New()
	if err := db.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		pkg.LogWarn(component, "usb.ids unavailable", "error", err)
	}

	found := 0
	for _, d := range devs {
		mark := " "
		if d.Matches(protocol.VendorID, protocol.ProductID) {
			mark = "*"
			found++
		}
		name := db.Describe(d.VendorID, d.ProductID)
		if d.Product != "" {
			name += " (" + d.Product + ")"
		}
		fmt.Fprintf(w, "%s Bus %03d Device %03d: ID %04x:%04x %s\n",
			mark, d.Bus, d.Address, d.VendorID, d.ProductID, name)
	}
	if found == 0 {
		return fmt.Errorf("%w: no LCD2USB among %d devices", pkg.ErrNoDevice, len(devs))
	}
	return nil
}
