package device

import (
	"errors"
	"testing"

	"github.com/ardnew/lcd2usb/device/analog"
	"github.com/ardnew/lcd2usb/device/hd44780"
	"github.com/ardnew/lcd2usb/device/hd44780/sim"
)

func TestBootDetectsControllers(t *testing.T) {
	stuck := func() *sim.Controller {
		c := sim.NewController()
		c.Stuck = true
		return c
	}

	tests := []struct {
		name   string
		c0, c1 *sim.Controller
		want   hd44780.Mask
	}{
		{"none", nil, nil, 0},
		{"ctrl0", sim.NewController(), nil, hd44780.Ctrl0},
		{"ctrl1", nil, sim.NewController(), hd44780.Ctrl1},
		{"both", sim.NewController(), sim.NewController(), hd44780.Both},
		{"ctrl0 stuck", stuck(), sim.NewController(), hd44780.Ctrl1},
		{"ctrl1 stuck", sim.NewController(), stuck(), hd44780.Ctrl0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.c0, tt.c1, nil)
			if got := f.d.Controllers(); got != tt.want {
				t.Errorf("Controllers() = %02b, want %02b", got, tt.want)
			}
		})
	}
}

func TestBootBanners(t *testing.T) {
	tests := []struct {
		name   string
		c0, c1 *sim.Controller
		row0   string
		row1   string
	}{
		{"single", sim.NewController(), nil, "LCD2USB V1.09   ", ""},
		{"both", sim.NewController(), sim.NewController(), "LCD2USB V1.09 bo", "2nd ctrl both!  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newFixture(t, tt.c0, tt.c1, nil)
			if got := tt.c0.Row(0, 16); got != tt.row0 {
				t.Errorf("ctrl0 row = %q, want %q", got, tt.row0)
			}
			if tt.c1 != nil {
				if got := tt.c1.Row(0, 16); got != tt.row1 {
					t.Errorf("ctrl1 row = %q, want %q", got, tt.row1)
				}
			}
		})
	}
}

func TestBootRestoresAnalog(t *testing.T) {
	f := newFixture(t, sim.NewController(), nil, nil)
	for ch := range analog.Channel(analog.NumChannels) {
		if got := f.out.Level(ch); got != analog.Default {
			t.Errorf("%s = %d, want %d", ch, got, analog.Default)
		}
	}
	if got, _ := f.mem.Load(analog.AddrMarker); got != analog.Marker {
		t.Errorf("marker = 0x%02X, want 0x%02X", got, analog.Marker)
	}
}

func TestBootAnalogError(t *testing.T) {
	errOut := errors.New("pwm")
	sb := sim.NewBus(sim.NewController(), nil)
	drv := hd44780.New(sb, hd44780.Options{Delay: sb.Sleep})
	d := NewDispatcher(drv, analog.New(analog.NewRAM(), &analog.Recorder{Err: errOut}), nil)
	if err := d.Boot(); !errors.Is(err, errOut) {
		t.Errorf("Boot() error = %v, want %v", err, errOut)
	}
}
