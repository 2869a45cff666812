// Package device implements the LCD2USB device: a control-only USB function
// that drives up to two HD44780 controllers, two analog outputs and two
// buttons.
//
// It talks to the USB controller through [hal.DeviceHAL] and to the LCD
// through [hd44780.Driver], so the same code runs against GPIO lines
// ([github.com/ardnew/lcd2usb/device/gpiobus]) or the bus simulator
// ([github.com/ardnew/lcd2usb/device/hd44780/sim]).
//
// # Architecture
//
//   - [Dispatcher] executes decoded vendor requests and owns the bitmap of
//     controllers detected by [Dispatcher.Boot]
//   - [Stack] runs the EP0 control loop, answering enumeration requests
//     through [StandardRequestHandler] and passing vendor requests to the
//     dispatcher
//   - [Device] tracks the Default → Address → Configured state machine
//   - [Descriptors] holds the vendor-class descriptor set
//
// # Requests
//
// Every LCD2USB operation is one vendor SETUP packet (see
// [github.com/ardnew/lcd2usb/protocol]). CMD and DATA bytes addressed to an
// undetected controller are dropped without error, and unknown classes or
// reserved subtargets do nothing. Only hardware failures stall EP0.
//
// # Example
//
//	drv := hd44780.New(bus, hd44780.Options{})
//	d := device.NewDispatcher(drv, analog.New(mem, pwm), buttons)
//	if err := d.Boot(); err != nil {
//	    return err
//	}
//	stack := device.NewStack(device.NewDescriptors(), d, h)
//	if err := stack.Start(ctx); err != nil {
//	    return err
//	}
//	defer stack.Stop()
package device
