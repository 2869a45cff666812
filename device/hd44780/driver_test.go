package hd44780_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/ardnew/lcd2usb/device/hd44780"
	"github.com/ardnew/lcd2usb/device/hd44780/sim"
	"github.com/ardnew/lcd2usb/pkg"
)

// traceBus records every line change as a short string.
type traceBus struct {
	ops    []string
	sample []byte
	err    error
}

func (b *traceBus) SetRS(data bool) error {
	b.ops = append(b.ops, fmt.Sprintf("rs=%t", data))
	return b.err
}

func (b *traceBus) SetRW(read bool) error {
	b.ops = append(b.ops, fmt.Sprintf("rw=%t", read))
	return b.err
}

func (b *traceBus) Output(v byte) error {
	b.ops = append(b.ops, fmt.Sprintf("out=%02X", v))
	return b.err
}

func (b *traceBus) Input() error {
	b.ops = append(b.ops, "in")
	return b.err
}

func (b *traceBus) Sample() (byte, error) {
	b.ops = append(b.ops, "sample")
	if len(b.sample) == 0 {
		return 0xF0, b.err
	}
	v := b.sample[0]
	b.sample = b.sample[1:]
	return v, b.err
}

func (b *traceBus) Enable(mask hd44780.Mask, high bool) error {
	level := "lo"
	if high {
		level = "hi"
	}
	b.ops = append(b.ops, fmt.Sprintf("e%d=%s", mask, level))
	return b.err
}

func noDelay(time.Duration) {}

func TestWriteToSetNibbleOrder(t *testing.T) {
	bus := &traceBus{}
	d := hd44780.New(bus, hd44780.Options{Delay: noDelay})

	if err := d.WriteToSet(hd44780.Both, 0xA5, true); err != nil {
		t.Fatalf("WriteToSet() error = %v", err)
	}

	want := []string{
		"rs=true", "rw=false",
		"out=A0", "e3=hi", "e3=lo",
		"out=50", "e3=hi", "e3=lo",
		"out=F0",
	}
	if !reflect.DeepEqual(bus.ops, want) {
		t.Errorf("WriteToSet() ops = %v, want %v", bus.ops, want)
	}
}

func TestReadOneMerge(t *testing.T) {
	bus := &traceBus{sample: []byte{0x30, 0x90}}
	d := hd44780.New(bus, hd44780.Options{Delay: noDelay})

	got, err := d.ReadOne(hd44780.Ctrl1, false)
	if err != nil {
		t.Fatalf("ReadOne() error = %v", err)
	}
	if got != 0x39 {
		t.Errorf("ReadOne() = 0x%02X, want 0x39", got)
	}

	want := []string{
		"rs=false", "rw=true", "in",
		"e2=hi", "sample", "e2=lo",
		"e2=hi", "sample", "e2=lo",
	}
	if !reflect.DeepEqual(bus.ops, want) {
		t.Errorf("ReadOne() ops = %v, want %v", bus.ops, want)
	}
}

func TestReadOneRejectsMask(t *testing.T) {
	d := hd44780.New(&traceBus{}, hd44780.Options{Delay: noDelay})
	for _, m := range []hd44780.Mask{0, hd44780.Both} {
		if _, err := d.ReadOne(m, false); !errors.Is(err, pkg.ErrInvalidParameter) {
			t.Errorf("ReadOne(%d) error = %v, want %v", m, err, pkg.ErrInvalidParameter)
		}
	}
}

func TestBusErrorPropagates(t *testing.T) {
	errBus := errors.New("line fault")
	d := hd44780.New(&traceBus{err: errBus}, hd44780.Options{Delay: noDelay})
	if err := d.Command(hd44780.Ctrl0, hd44780.InstrClear); !errors.Is(err, errBus) {
		t.Errorf("Command() error = %v, want %v", err, errBus)
	}
}

func newSim(c0, c1 *sim.Controller, maxPolls int) (*hd44780.Driver, *sim.Bus) {
	bus := sim.NewBus(c0, c1)
	return hd44780.New(bus, hd44780.Options{MaxPolls: maxPolls, Delay: bus.Sleep}), bus
}

func TestInitSequence(t *testing.T) {
	c0 := sim.NewController()
	d, _ := newSim(c0, nil, 0)

	if err := d.Init(hd44780.Ctrl0); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	want := []byte{0x30, 0x30, 0x30, 0x20, 0x28, 0x08, 0x01, 0x06, 0x0C}
	if got := c0.Instructions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Instructions() = % X, want % X", got, want)
	}
	if !c0.FourBit() {
		t.Error("FourBit() = false, want true")
	}
	if c0.DisplayControl() != hd44780.CmdDisplayOn {
		t.Errorf("DisplayControl() = 0x%02X, want 0x%02X", c0.DisplayControl(), hd44780.CmdDisplayOn)
	}
}

func TestInitFailures(t *testing.T) {
	stuck := sim.NewController()
	stuck.Stuck = true

	tests := []struct {
		name string
		c0   *sim.Controller
	}{
		{"absent", nil},
		{"stuck busy", stuck},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newSim(tt.c0, nil, 0)
			if err := d.Init(hd44780.Ctrl0); !errors.Is(err, pkg.ErrNoController) {
				t.Errorf("Init() error = %v, want %v", err, pkg.ErrNoController)
			}
		})
	}
}

func TestInitOneFailureDoesNotAffectOther(t *testing.T) {
	c1 := sim.NewController()
	d, _ := newSim(nil, c1, 0)

	if err := d.Init(hd44780.Ctrl0); !errors.Is(err, pkg.ErrNoController) {
		t.Fatalf("Init(Ctrl0) error = %v, want %v", err, pkg.ErrNoController)
	}
	if err := d.Init(hd44780.Ctrl1); err != nil {
		t.Fatalf("Init(Ctrl1) error = %v", err)
	}
	if !c1.FourBit() {
		t.Error("ctrl1 FourBit() = false, want true")
	}
}

func TestWaitReady(t *testing.T) {
	tests := []struct {
		name      string
		busyPolls int
		maxPolls  int
		wantErr   error
	}{
		{"ready", 0, 0, nil},
		{"busy then ready unbounded", 5, 0, nil},
		{"busy within bound", 2, 3, nil},
		{"busy past bound", 3, 3, pkg.ErrHardwareTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c0 := sim.NewController()
			d, _ := newSim(c0, nil, tt.maxPolls)
			if err := d.Init(hd44780.Ctrl0); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			c0.BusyPolls = tt.busyPolls
			if err := d.WriteToSet(hd44780.Ctrl0, hd44780.InstrHome, false); err != nil {
				t.Fatalf("WriteToSet() error = %v", err)
			}
			if err := d.WaitReady(hd44780.Ctrl0); !errors.Is(err, tt.wantErr) {
				t.Errorf("WaitReady() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWaitReadyStuckBounded(t *testing.T) {
	c0 := sim.NewController()
	d, _ := newSim(c0, sim.NewController(), 10)
	if err := d.Init(hd44780.Both); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	c0.Stuck = true
	if err := d.Command(hd44780.Both, hd44780.InstrClear); !errors.Is(err, pkg.ErrHardwareTimeout) {
		t.Errorf("Command() error = %v, want %v", err, pkg.ErrHardwareTimeout)
	}
}

func TestPutsBothControllers(t *testing.T) {
	c0, c1 := sim.NewController(), sim.NewController()
	d, _ := newSim(c0, c1, 0)
	if err := d.Init(hd44780.Both); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := d.Puts(hd44780.Ctrl0, "LCD2USB"); err != nil {
		t.Fatalf("Puts() error = %v", err)
	}
	if err := d.Puts(hd44780.Both, "!"); err != nil {
		t.Fatalf("Puts() error = %v", err)
	}
	if err := d.Command(hd44780.Ctrl1, hd44780.InstrSetDDRAMAddr|hd44780.Line2Start); err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if err := d.Puts(hd44780.Ctrl1, "two"); err != nil {
		t.Fatalf("Puts() error = %v", err)
	}

	tests := []struct {
		name string
		c    *sim.Controller
		row  int
		want string
	}{
		{"ctrl0 line1", c0, 0, "LCD2USB!"},
		{"ctrl0 line2", c0, 1, "        "},
		{"ctrl1 line1", c1, 0, "!       "},
		{"ctrl1 line2", c1, 1, "two     "},
	}
	for _, tt := range tests {
		if got := tt.c.Row(tt.row, 8); got != tt.want {
			t.Errorf("%s: Row() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestReadData(t *testing.T) {
	c0 := sim.NewController()
	d, _ := newSim(c0, nil, 0)
	if err := d.Init(hd44780.Ctrl0); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := d.Puts(hd44780.Ctrl0, "Hi"); err != nil {
		t.Fatalf("Puts() error = %v", err)
	}
	if err := d.Command(hd44780.Ctrl0, hd44780.InstrHome); err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	for _, want := range []byte("Hi") {
		got, err := d.ReadOne(hd44780.Ctrl0, true)
		if err != nil {
			t.Fatalf("ReadOne() error = %v", err)
		}
		if got != want {
			t.Errorf("ReadOne() = %q, want %q", got, want)
		}
	}
}

func TestMask(t *testing.T) {
	if !hd44780.Ctrl0.Single() || !hd44780.Ctrl1.Single() || hd44780.Both.Single() {
		t.Error("Single() mismatch")
	}
	var seen []hd44780.Mask
	_ = hd44780.Both.Each(func(c hd44780.Mask) error {
		seen = append(seen, c)
		return nil
	})
	if want := []hd44780.Mask{hd44780.Ctrl0, hd44780.Ctrl1}; !reflect.DeepEqual(seen, want) {
		t.Errorf("Each() = %v, want %v", seen, want)
	}
}
