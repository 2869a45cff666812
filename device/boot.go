package device

import (
	"errors"
	"fmt"

	"github.com/ardnew/lcd2usb/device/hd44780"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// Boot banners.
const (
	BannerCtrl0 = "LCD2USB V" + protocol.VersionString
	BannerCtrl1 = "2nd ctrl"
	BannerBoth  = " both!"
)

// Boot restores the analog outputs, probes each controller and records the
// ones that initialize in the controller bitmap, then prints the banners.
//
// A controller that fails to initialize is left out of the bitmap and does
// not stop the other one from being probed. Only analog and bus I/O errors
// are returned.
func (d *Dispatcher) Boot() error {
	if err := d.analog.Init(); err != nil {
		return fmt.Errorf("analog init: %w", err)
	}

	d.controllers = 0
	for _, ctrl := range [...]hd44780.Mask{hd44780.Ctrl0, hd44780.Ctrl1} {
		err := d.driver.Init(ctrl)
		switch {
		case err == nil:
			d.controllers |= ctrl
		case errors.Is(err, pkg.ErrNoController), errors.Is(err, pkg.ErrHardwareTimeout):
			pkg.LogInfo(pkg.ComponentDevice, "controller not detected",
				"controller", uint8(ctrl), "error", err)
		default:
			return fmt.Errorf("init controller 0x%X: %w", uint8(ctrl), err)
		}
	}
	pkg.LogInfo(pkg.ComponentDevice, "controllers detected", "bitmap", uint8(d.controllers))

	if d.controllers&hd44780.Ctrl0 != 0 {
		if err := d.driver.Puts(hd44780.Ctrl0, BannerCtrl0); err != nil {
			return err
		}
	}
	if d.controllers&hd44780.Ctrl1 != 0 {
		if err := d.driver.Puts(hd44780.Ctrl1, BannerCtrl1); err != nil {
			return err
		}
	}
	if d.controllers == hd44780.Both {
		if err := d.driver.Puts(hd44780.Both, BannerBoth); err != nil {
			return err
		}
	}
	return nil
}
