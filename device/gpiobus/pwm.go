package gpiobus

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/ardnew/lcd2usb/device/analog"
	"github.com/ardnew/lcd2usb/pkg"
)

// DefaultFrequency is the PWM carrier used when none is configured.
const DefaultFrequency = 20 * physic.KiloHertz

// PWM drives the contrast and brightness channels as PWM outputs. The
// contrast voltage is generated through an inverting stage, so its duty
// cycle runs opposite to the requested level.
type PWM struct {
	pins [analog.NumChannels]gpio.PinOut
	freq physic.Frequency
}

var _ analog.Output = (*PWM)(nil)

// NewPWM creates the outputs. A nil pin accepts and ignores its channel.
func NewPWM(contrast, brightness gpio.PinOut, freq physic.Frequency) *PWM {
	if freq == 0 {
		freq = DefaultFrequency
	}
	return &PWM{
		pins: [analog.NumChannels]gpio.PinOut{contrast, brightness},
		freq: freq,
	}
}

// Duty converts a channel level into a periph duty cycle.
func Duty(ch analog.Channel, v byte) gpio.Duty {
	if ch == analog.Contrast {
		v = 255 - v
	}
	return gpio.Duty(int64(gpio.DutyMax) * int64(v) / 255)
}

// Apply implements analog.Output.
func (p *PWM) Apply(ch analog.Channel, v byte) error {
	if ch >= analog.NumChannels {
		return fmt.Errorf("%w: %d", pkg.ErrInvalidChannel, ch)
	}
	pin := p.pins[ch]
	if pin == nil {
		return nil
	}
	if err := pin.PWM(Duty(ch, v), p.freq); err != nil {
		return fmt.Errorf("%s pwm: %w", ch, err)
	}
	return nil
}
