//go:build linux

package classify

import (
	"strconv"
	"strings"

	"github.com/holoplot/go-evdev"
	"github.com/jochenvg/go-udev"
)

// Describe builds a Descriptor for an opened evdev device, resolving bus
// ancestry through udev when a udev device is available.
func Describe(dev *evdev.InputDevice, ud *udev.Device) Descriptor {
	d := Descriptor{
		Path: dev.Path(),
		Keys: NewCapSet(dev.CapableEvents(evdev.EV_KEY)...),
	}
	if name, err := dev.Name(); err == nil {
		d.Name = name
	}
	if phys, err := dev.PhysicalLocation(); err == nil {
		d.Phys = phys
	}
	if ud != nil {
		d.USB = usbAncestor(ud)
		d.HID = hidAncestor(ud)
	}
	return d
}

func usbAncestor(d *udev.Device) *BusID {
	usb := d.ParentWithSubsystemDevtype("usb", "usb_device")
	if usb == nil {
		return nil
	}
	vendor, okV := parseHex16(usb.SysattrValue("idVendor"))
	product, okP := parseHex16(usb.SysattrValue("idProduct"))
	if !okV || !okP {
		return nil
	}
	return &BusID{Vendor: vendor, Product: product}
}

func hidAncestor(d *udev.Device) *BusID {
	for p := d.Parent(); p != nil; p = p.Parent() {
		if p.Subsystem() != "hid" {
			continue
		}
		// HID_ID has the form "0003:0000046D:0000B015".
		parts := strings.Split(p.PropertyValue("HID_ID"), ":")
		if len(parts) != 3 {
			return nil
		}
		vendor, okV := parseHex16(parts[1])
		product, okP := parseHex16(parts[2])
		if !okV || !okP {
			return nil
		}
		return &BusID{Vendor: vendor, Product: product}
	}
	return nil
}

func parseHex16(s string) (uint16, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 16, 32)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}
