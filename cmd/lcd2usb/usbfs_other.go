//go:build !linux

package main

import (
	"fmt"
	"io"

	"github.com/ardnew/lcd2usb/host/hal"
	"github.com/ardnew/lcd2usb/internal/config"
	"github.com/ardnew/lcd2usb/pkg"
)

func openUSBFS(config.HostConfig) (hal.HostHAL, error) {
	return nil, fmt.Errorf("%w: usbfs transport requires Linux", pkg.ErrNoDevice)
}

func listDevices(io.Writer) error {
	return fmt.Errorf("%w: device listing requires Linux", pkg.ErrNoDevice)
}
