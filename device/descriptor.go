package device

import (
	"github.com/ardnew/lcd2usb/protocol"
)

// String descriptor indices.
const (
	StringLanguages    = 0
	StringManufacturer = 1
	StringProduct      = 2
	numStrings         = 3
)

// Descriptor strings reported by the device.
const (
	Manufacturer = "www.harbaum.org"
	Product      = "LCD2USB Interface"
)

// ConfigurationValue is the value of the only configuration.
const ConfigurationValue = 1

// Descriptors holds the descriptor set served by the standard request
// handler. The device is low speed, vendor class, with one configuration
// holding one interface and no endpoints besides EP0.
type Descriptors struct {
	Device        protocol.DeviceDescriptor
	Configuration protocol.ConfigurationDescriptor
	Interface     protocol.InterfaceDescriptor

	strings [numStrings][]byte
}

// NewDescriptors returns the LCD2USB descriptor set.
func NewDescriptors() *Descriptors {
	d := &Descriptors{
		Device: protocol.DeviceDescriptor{
			USBVersion:        0x0110,
			DeviceClass:       protocol.ClassVendor,
			MaxPacketSize0:    8,
			VendorID:          protocol.VendorID,
			ProductID:         protocol.ProductID,
			DeviceVersion:     uint16(protocol.VersionMajor)<<8 | bcd(protocol.VersionMinor),
			ManufacturerIndex: StringManufacturer,
			ProductIndex:      StringProduct,
			NumConfigurations: 1,
		},
		Configuration: protocol.ConfigurationDescriptor{
			TotalLength:        protocol.ConfigurationDescriptorSize + protocol.InterfaceDescriptorSize,
			NumInterfaces:      1,
			ConfigurationValue: ConfigurationValue,
			MaxPower:           50, // 100 mA
		},
		Interface: protocol.InterfaceDescriptor{
			InterfaceClass: protocol.ClassVendor,
		},
	}
	d.strings[StringLanguages] = protocol.LanguageDescriptor(protocol.LanguageEnglishUS)
	d.strings[StringManufacturer] = protocol.StringDescriptor(Manufacturer)
	d.strings[StringProduct] = protocol.StringDescriptor(Product)
	return d
}

func bcd(v uint8) uint16 {
	return uint16(v/10)<<4 | uint16(v%10)
}

// MarshalConfiguration writes the configuration descriptor followed by its
// interface descriptor to buf. It returns 0 if buf is too small.
func (d *Descriptors) MarshalConfiguration(buf []byte) int {
	if len(buf) < int(d.Configuration.TotalLength) {
		return 0
	}
	n := d.Configuration.MarshalTo(buf)
	n += d.Interface.MarshalTo(buf[n:])
	return n
}

// String returns the encoded string descriptor at index, or nil.
func (d *Descriptors) String(index uint8) []byte {
	if int(index) >= len(d.strings) {
		return nil
	}
	return d.strings[index]
}
