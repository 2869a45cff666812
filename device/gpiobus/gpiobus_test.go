package gpiobus

import (
	"errors"
	"strings"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"

	"github.com/ardnew/lcd2usb/device/analog"
	"github.com/ardnew/lcd2usb/device/hd44780"
	"github.com/ardnew/lcd2usb/pkg"
)

type testPins struct {
	rs, rw, e0, e1 *gpiotest.Pin
	d              [4]*gpiotest.Pin
}

func newTestPins() *testPins {
	tp := &testPins{
		rs: &gpiotest.Pin{N: "RS", Num: 1},
		rw: &gpiotest.Pin{N: "RW", Num: 2},
		e0: &gpiotest.Pin{N: "E0", Num: 3},
		e1: &gpiotest.Pin{N: "E1", Num: 4},
	}
	for i := range tp.d {
		tp.d[i] = &gpiotest.Pin{N: "D" + string(rune('4'+i)), Num: 10 + i}
	}
	return tp
}

func (tp *testPins) pins() Pins {
	return Pins{
		RS: tp.rs, RW: tp.rw, E0: tp.e0, E1: tp.e1,
		D: [4]gpio.PinIO{tp.d[0], tp.d[1], tp.d[2], tp.d[3]},
	}
}

func TestNewBusMissingPin(t *testing.T) {
	tp := newTestPins()
	p := tp.pins()
	p.D[2] = nil
	if _, err := NewBus(p); !errors.Is(err, pkg.ErrNoPin) {
		t.Errorf("NewBus() error = %v, want %v", err, pkg.ErrNoPin)
	}

	// The first missing line is reported, in bus order.
	p = tp.pins()
	p.RW, p.D[0], p.D[3] = nil, nil, nil
	for range 10 {
		_, err := NewBus(p)
		if err == nil || !strings.HasSuffix(err.Error(), ": rw") {
			t.Fatalf("NewBus() error = %v, want missing rw", err)
		}
	}

	// E1 is optional.
	p = tp.pins()
	p.E1 = nil
	if _, err := NewBus(p); err != nil {
		t.Errorf("NewBus() without E1 error = %v", err)
	}
}

func TestBusOutput(t *testing.T) {
	tp := newTestPins()
	b, err := NewBus(tp.pins())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}

	tests := []struct {
		v    byte
		want [4]gpio.Level
	}{
		{0xA0, [4]gpio.Level{gpio.Low, gpio.High, gpio.Low, gpio.High}},
		{0x5F, [4]gpio.Level{gpio.High, gpio.Low, gpio.High, gpio.Low}},
		{0x0F, [4]gpio.Level{gpio.Low, gpio.Low, gpio.Low, gpio.Low}},
	}
	for _, tt := range tests {
		if err := b.Output(tt.v); err != nil {
			t.Fatalf("Output() error = %v", err)
		}
		for i, p := range tp.d {
			if p.L != tt.want[i] {
				t.Errorf("Output(0x%02X): D%d = %v, want %v", tt.v, 4+i, p.L, tt.want[i])
			}
		}
	}
}

func TestBusInputPullsHigh(t *testing.T) {
	tp := newTestPins()
	b, err := NewBus(tp.pins())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	_ = b.Output(0x00)
	if err := b.Input(); err != nil {
		t.Fatalf("Input() error = %v", err)
	}
	for i, p := range tp.d {
		if p.P != gpio.PullUp {
			t.Errorf("D%d pull = %v, want %v", 4+i, p.P, gpio.PullUp)
		}
	}
	v, err := b.Sample()
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if v != 0xF0 {
		t.Errorf("Sample() = 0x%02X, want 0xF0", v)
	}

	// D5 pulled low by a controller.
	tp.d[1].L = gpio.Low
	if v, _ := b.Sample(); v != 0xD0 {
		t.Errorf("Sample() = 0x%02X, want 0xD0", v)
	}
}

func TestBusEnable(t *testing.T) {
	tp := newTestPins()
	b, err := NewBus(tp.pins())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	_ = b.Enable(hd44780.Ctrl1, true)
	if tp.e0.L != gpio.Low || tp.e1.L != gpio.High {
		t.Errorf("Enable(Ctrl1) = E0 %v E1 %v, want Low High", tp.e0.L, tp.e1.L)
	}
	_ = b.Enable(hd44780.Both, true)
	if tp.e0.L != gpio.High {
		t.Errorf("Enable(Both) E0 = %v, want High", tp.e0.L)
	}
	_ = b.Enable(hd44780.Both, false)
	if tp.e0.L != gpio.Low || tp.e1.L != gpio.Low {
		t.Errorf("Enable(Both, false) = E0 %v E1 %v, want Low Low", tp.e0.L, tp.e1.L)
	}
}

func TestDriverOnUnconnectedBus(t *testing.T) {
	// With nothing attached the pull-ups hold every data line high, so the
	// controller reads busy and Init reports it missing.
	tp := newTestPins()
	b, err := NewBus(tp.pins())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	d := hd44780.New(b, hd44780.Options{Delay: func(time.Duration) {}})
	if err := d.Init(hd44780.Ctrl0); !errors.Is(err, pkg.ErrNoController) {
		t.Errorf("Init() error = %v, want %v", err, pkg.ErrNoController)
	}
	if tp.rw.L != gpio.High {
		t.Errorf("RW = %v, want High after status read", tp.rw.L)
	}
}

func TestButtons(t *testing.T) {
	s1 := &gpiotest.Pin{N: "S1", Num: 20}
	s2 := &gpiotest.Pin{N: "S2", Num: 21}
	b, err := NewButtons(s1, s2)
	if err != nil {
		t.Fatalf("NewButtons() error = %v", err)
	}

	tests := []struct {
		name   string
		l1, l2 gpio.Level
		want   byte
	}{
		{"none", gpio.High, gpio.High, 0},
		{"s1", gpio.Low, gpio.High, KeyS1},
		{"s2", gpio.High, gpio.Low, KeyS2},
		{"both", gpio.Low, gpio.Low, KeyS1 | KeyS2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s1.L, s2.L = tt.l1, tt.l2
			got, err := b.Keys()
			if err != nil {
				t.Fatalf("Keys() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Keys() = %02b, want %02b", got, tt.want)
			}
		})
	}
}

func TestButtonsUnwired(t *testing.T) {
	b, err := NewButtons(nil, nil)
	if err != nil {
		t.Fatalf("NewButtons() error = %v", err)
	}
	if got, _ := b.Keys(); got != 0 {
		t.Errorf("Keys() = %d, want 0", got)
	}
}

func TestPWM(t *testing.T) {
	contrast := &gpiotest.Pin{N: "CONTRAST", Num: 30}
	brightness := &gpiotest.Pin{N: "BRIGHTNESS", Num: 31}
	p := NewPWM(contrast, brightness, 0)

	tests := []struct {
		name string
		ch   analog.Channel
		v    byte
		pin  *gpiotest.Pin
		want gpio.Duty
	}{
		{"contrast max", analog.Contrast, 255, contrast, 0},
		{"contrast min", analog.Contrast, 0, contrast, gpio.DutyMax},
		{"brightness max", analog.Brightness, 255, brightness, gpio.DutyMax},
		{"brightness off", analog.Brightness, 0, brightness, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := p.Apply(tt.ch, tt.v); err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if tt.pin.D != tt.want {
				t.Errorf("duty = %v, want %v", tt.pin.D, tt.want)
			}
			if tt.pin.F != DefaultFrequency {
				t.Errorf("frequency = %v, want %v", tt.pin.F, DefaultFrequency)
			}
		})
	}

	if err := p.Apply(analog.Channel(2), 1); !errors.Is(err, pkg.ErrInvalidChannel) {
		t.Errorf("Apply() error = %v, want %v", err, pkg.ErrInvalidChannel)
	}
}

func TestDutyMidScale(t *testing.T) {
	tests := []struct {
		ch   analog.Channel
		v    byte
		want gpio.Duty
	}{
		{analog.Brightness, 128, gpio.Duty(int64(gpio.DutyMax) * 128 / 255)},
		{analog.Contrast, 200, gpio.Duty(int64(gpio.DutyMax) * 55 / 255)},
	}
	for _, tt := range tests {
		if got := Duty(tt.ch, tt.v); got != tt.want {
			t.Errorf("Duty(%s, %d) = %v, want %v", tt.ch, tt.v, got, tt.want)
		}
	}
}

func TestPWMUnwired(t *testing.T) {
	p := NewPWM(nil, nil, physic.KiloHertz)
	if err := p.Apply(analog.Brightness, 10); err != nil {
		t.Errorf("Apply() error = %v", err)
	}
}
