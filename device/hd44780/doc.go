// Package hd44780 drives one or two HD44780-compatible character LCD
// controllers over a shared 4-bit data bus.
//
// The two controllers share RS, RW and the D4–D7 data lines and differ only
// in their enable line (E0, E1). A write may therefore address both
// controllers at once, while a read must address exactly one.
//
// # Bus
//
// The physical lines are owned by a [Bus], an explicit capability object
// passed to [New]. Nothing in this package touches global hardware state;
// tests run the [Driver] against the simulated bus in
// [github.com/ardnew/lcd2usb/device/hd44780/sim], and the daemon uses the
// periph-backed bus in [github.com/ardnew/lcd2usb/device/gpiobus].
//
// # Nibble Handshake
//
// Every byte crosses the bus as two nibbles, high first. Each nibble is
// presented on D4–D7 (bits 4–7 of the value passed to [Bus.Output]) and
// latched by a pulse on the enable line of every addressed controller.
// Reads sample the same lines, so the second nibble arrives in bits 4–7
// and is shifted right by four when the two samples are merged.
//
// # Busy Flag
//
// [Driver.WaitReady] polls the busy flag of each addressed controller
// individually. With [Options.MaxPolls] zero it blocks until the hardware
// reports ready; a positive bound returns [pkg.ErrHardwareTimeout] instead
// of stalling forever on a wedged controller.
//
// # Initialization
//
// [Driver.Init] runs the cold-start recovery sequence from the HD44780
// datasheet (three 8-bit function sets, then the 4-bit switch) and reports
// [pkg.ErrNoController] when the busy flag does not clear. Unconnected data
// lines are pulled high, so an absent controller reads as permanently busy.
package hd44780
