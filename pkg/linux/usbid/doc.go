// Package usbid looks up USB vendor and product names in the usb.ids
// database shipped with most Linux distributions.
//
//	db := usbid.New()
//	_ = db.Load() // names fall back to "vvvv:pppp" when missing
//	fmt.Println(db.Describe(0x0403, 0xC630))
//
// The LCD2USB IDs are known even without a database file. All methods are
// safe for concurrent use.
package usbid
