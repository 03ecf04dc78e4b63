// Package classify decides whether an input device is an M720-family mouse.
//
// No single identifier is present in every connection mode (USB receiver,
// Bluetooth, Unifying dongle), so the match is layered: name hint first,
// then USB ancestry, then HID ancestry, then a button-layout fallback.
package classify

import (
	"log/slog"
	"strings"

	"github.com/holoplot/go-evdev"
)

// Identifiers of the M720 family across its connection modes.
const (
	LogitechVendorID uint16 = 0x046d

	ProductUSBReceiver uint16 = 0x405e
	ProductBluetooth   uint16 = 0xb015
	ProductUnifying    uint16 = 0xb013
)

// nameHints are the name substrings associated with the target product
// family. A device whose name contains none of these is rejected outright.
var nameHints = []string{
	"M720",
	"Logitech MX Master",
	"Logitech Wireless Mouse",
}

// CapSet is the set of key codes a device advertises.
type CapSet map[evdev.EvCode]struct{}

func NewCapSet(codes ...evdev.EvCode) CapSet {
	s := make(CapSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s CapSet) Has(code evdev.EvCode) bool {
	_, ok := s[code]
	return ok
}

// BusID identifies a device on its upstream bus.
type BusID struct {
	Vendor  uint16
	Product uint16
}

// Descriptor is everything the classifier needs to know about a candidate
// device. It is a plain value so the decision can be exercised without
// hardware.
type Descriptor struct {
	Name string
	Phys string
	Path string
	USB  *BusID // upstream USB device, if resolvable
	HID  *BusID // upstream HID device, if resolvable
	Keys CapSet
}

// Classifier applies the layered match heuristics.
type Classifier struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Match reports whether the described device is an M720-family mouse.
// Rejection is a normal outcome, not an error; it is only ever traced at
// debug level.
func (c *Classifier) Match(d Descriptor) bool {
	if !nameMatches(d.Name) {
		return false
	}
	c.logger.Debug("device name matches target family", "name", d.Name, "path", d.Path)

	if d.USB != nil && d.USB.Vendor == LogitechVendorID {
		c.logger.Debug("usb ancestor",
			"vendor", d.USB.Vendor, "product", d.USB.Product)
		switch d.USB.Product {
		case ProductUSBReceiver, ProductBluetooth, ProductUnifying:
			return true
		}
	}

	if d.HID != nil && d.HID.Vendor == LogitechVendorID {
		c.logger.Debug("hid ancestor",
			"vendor", d.HID.Vendor, "product", d.HID.Product)
		return true
	}

	// Name plus the expected thumb-button layout is enough evidence when
	// the bus ancestry is unavailable.
	if d.Keys.Has(evdev.BTN_SIDE) && d.Keys.Has(evdev.BTN_EXTRA) {
		c.logger.Debug("device has required buttons, assuming M720", "name", d.Name)
		return true
	}

	return false
}

func nameMatches(name string) bool {
	for _, hint := range nameHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}
