//go:build linux

package linux

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ardnew/lcd2usb/host/hal"
)

// Device describes a USB device found in sysfs.
type Device struct {
	SysfsPath string
	DevfsPath string
	Bus       uint8
	Address   uint8
	VendorID  uint16
	ProductID uint16
	Class     uint8
	Speed     hal.Speed
	Product   string // iProduct string as cached by the kernel, may be empty
}

// Matches reports whether d has the given IDs.
func (d Device) Matches(vid, pid uint16) bool {
	return d.VendorID == vid && d.ProductID == pid
}

// Info converts d to a hal.DeviceInfo.
func (d Device) Info() hal.DeviceInfo {
	return hal.DeviceInfo{
		Bus:     int(d.Bus),
		Address: int(d.Address),
		Path:    d.DevfsPath,
		Speed:   d.Speed,
	}
}

// List returns every USB device under the default sysfs root, sorted by
// bus and address.
func List() ([]Device, error) {
	return scan(SysfsUSBPath, DevfsUSBPath)
}

// scan reads device entries under sysfsRoot. Root hubs ("usb1") and
// interface entries ("1-1:1.0") are skipped, as are entries that fail to
// parse.
func scan(sysfsRoot, devfsRoot string) ([]Device, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return nil, err
	}

	var devices []Device
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}
		d, err := parseDevice(filepath.Join(sysfsRoot, name), devfsRoot)
		if err != nil {
			continue
		}
		devices = append(devices, d)
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Bus != devices[j].Bus {
			return devices[i].Bus < devices[j].Bus
		}
		return devices[i].Address < devices[j].Address
	})
	return devices, nil
}

// find returns the first device with the given IDs.
func find(sysfsRoot, devfsRoot string, vid, pid uint16) (Device, bool, error) {
	devices, err := scan(sysfsRoot, devfsRoot)
	if err != nil {
		return Device{}, false, err
	}
	for _, d := range devices {
		if d.Matches(vid, pid) {
			return d, true, nil
		}
	}
	return Device{}, false, nil
}

// parseDevice reads one device directory. busnum, devnum and the IDs are
// required; the rest are best effort.
func parseDevice(path, devfsRoot string) (Device, error) {
	d := Device{SysfsPath: path}

	var err error
	if d.Bus, err = readUint8(path, "busnum"); err != nil {
		return d, err
	}
	if d.Address, err = readUint8(path, "devnum"); err != nil {
		return d, err
	}
	if d.VendorID, err = readHex16(path, "idVendor"); err != nil {
		return d, err
	}
	if d.ProductID, err = readHex16(path, "idProduct"); err != nil {
		return d, err
	}
	d.DevfsPath = formatDevfsPath(devfsRoot, d.Bus, d.Address)

	if v, err := readHex16(path, "bDeviceClass"); err == nil && v <= 0xFF {
		d.Class = uint8(v)
	}
	if s, err := readString(path, "speed"); err == nil {
		d.Speed = parseSpeed(s)
	}
	d.Product, _ = readString(path, "product")
	return d, nil
}

func readString(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readUint8(dir, name string) (uint8, error) {
	s, err := readString(dir, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return uint8(v), nil
}

func readHex16(dir, name string) (uint16, error) {
	s, err := readString(dir, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return uint16(v), nil
}

// formatDevfsPath returns root/BBB/DDD with zero-padded numbers.
func formatDevfsPath(root string, bus, addr uint8) string {
	return fmt.Sprintf("%s/%03d/%03d", root, bus, addr)
}

// parseSpeed converts a sysfs speed string in Mbit/s.
func parseSpeed(s string) hal.Speed {
	switch s {
	case "1.5":
		return hal.SpeedLow
	case "12":
		return hal.SpeedFull
	case "480":
		return hal.SpeedHigh
	default:
		return hal.SpeedUnknown
	}
}
