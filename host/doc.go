// Package host is the computer side of the LCD2USB protocol.
//
// It is platform-agnostic and reaches the device through the [hal.HostHAL]
// interface defined in github.com/ardnew/lcd2usb/host/hal. Two HALs are
// provided: usbfs for real hardware on Linux and named pipes for the
// simulated device daemon.
//
// # Layers
//
//   - [Transport] sends one encoded request as a vendor control transfer
//   - [Batcher] packs consecutive same-class, same-target bytes into
//     requests of up to four payload bytes
//   - [LCD] offers display operations, status queries and analog settings
//   - [Clock] redraws the time on a cron schedule
//
// # Batching
//
// Writing "Hello" to controller 0 costs two transfers, not five:
//
//	DATA ctrl0 len=4 "Hell"
//	DATA ctrl0 len=1 "o"
//
// Any change of class or target flushes the buffer first, and every query
// or setting flushes it before its own transfer, so the device always sees
// operations in call order. A failed flush drops the batch; nothing is
// retried.
//
// # Example
//
//	lcd, err := host.Open(ctx, linux.New(protocol.VendorID, protocol.ProductID))
//	if err != nil {
//	    return err
//	}
//	defer lcd.Close()
//
//	_ = lcd.Clear(ctx)
//	_ = lcd.Write(ctx, "Hello, world")
package host
