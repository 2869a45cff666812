//go:build linux

package linux

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

func newTestHAL(t *testing.T) (*HAL, string, string) {
	t.Helper()
	sysfs := t.TempDir()
	devfs := t.TempDir()
	h := New(protocol.VendorID, protocol.ProductID)
	h.sysfsRoot, h.devfsRoot = sysfs, devfs
	if err := h.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h, sysfs, devfs
}

func TestHALNotConnected(t *testing.T) {
	h, _, _ := newTestHAL(t)
	var setup protocol.SetupPacket
	if _, err := h.ControlTransfer(context.Background(), &setup, nil); !errors.Is(err, pkg.ErrNotConnected) {
		t.Errorf("ControlTransfer() error = %v, want %v", err, pkg.ErrNotConnected)
	}
}

func TestHALInitMissingSysfs(t *testing.T) {
	h := New(protocol.VendorID, protocol.ProductID)
	h.sysfsRoot = filepath.Join(t.TempDir(), "missing")
	if err := h.Init(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Init() error = %v, want %v", err, os.ErrNotExist)
	}
	if err := h.Start(); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Start() error = %v, want %v", err, pkg.ErrNotConfigured)
	}
}

func TestHALConnectDisconnect(t *testing.T) {
	h, sysfs, devfs := newTestHAL(t)

	// A regular file stands in for the usbfs node; opening it is all the
	// connection path does.
	node := filepath.Join(devfs, "001", "009")
	if err := os.MkdirAll(filepath.Dir(node), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(node, nil, 0o666); err != nil {
		t.Fatal(err)
	}
	writeDevice(t, sysfs, "1-3", lcdAttrs("1", "9"))

	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := h.WaitForConnection(ctx)
	if err != nil {
		t.Fatalf("WaitForConnection() error = %v", err)
	}
	if info.Path != node || info.Bus != 1 || info.Address != 9 {
		t.Errorf("WaitForConnection() = %+v", info)
	}

	if err := os.RemoveAll(filepath.Join(sysfs, "1-3")); err != nil {
		t.Fatal(err)
	}
	if err := h.WaitForDisconnection(ctx); err != nil {
		t.Fatalf("WaitForDisconnection() error = %v", err)
	}

	var setup protocol.SetupPacket
	if _, err := h.ControlTransfer(ctx, &setup, nil); !errors.Is(err, pkg.ErrNotConnected) {
		t.Errorf("ControlTransfer() after detach error = %v, want %v", err, pkg.ErrNotConnected)
	}
}
