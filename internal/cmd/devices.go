package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holoplot/go-evdev"

	"github.com/m720d/m720d/internal/classify"
	"github.com/m720d/m720d/internal/session"
)

// Devices lists the input devices visible to the daemon together with the
// classifier's verdict for each. Useful to check why a mouse is (not)
// being picked up.
type Devices struct{}

func (c *Devices) Run(logger *slog.Logger) error {
	src := session.NewUdevSource(logger)
	candidates, err := src.Existing(context.Background())
	if err != nil {
		return err
	}

	classifier := classify.New(logger)
	for _, cand := range candidates {
		dev, desc, err := cand.Open()
		if err != nil {
			fmt.Printf("%-20s  (unreadable: %v)\n", cand.Path(), err)
			continue
		}
		_ = dev.Close()

		verdict := ""
		if classifier.Match(desc) {
			verdict = "  [target]"
		}
		fmt.Printf("%-20s  %s%s\n", desc.Path, desc.Name, verdict)
		if desc.Phys != "" {
			fmt.Printf("%-20s    phys: %s\n", "", desc.Phys)
		}
		if desc.USB != nil {
			fmt.Printf("%-20s    usb: vendor=0x%04x product=0x%04x\n", "", desc.USB.Vendor, desc.USB.Product)
		}
		if desc.HID != nil {
			fmt.Printf("%-20s    hid: vendor=0x%04x product=0x%04x\n", "", desc.HID.Vendor, desc.HID.Product)
		}
		if buttons := mouseButtons(desc.Keys); len(buttons) > 0 {
			fmt.Printf("%-20s    buttons: %v\n", "", buttons)
		}
	}
	return nil
}

func mouseButtons(keys classify.CapSet) []string {
	candidates := []evdev.EvCode{
		evdev.BTN_LEFT, evdev.BTN_RIGHT, evdev.BTN_MIDDLE,
		evdev.BTN_SIDE, evdev.BTN_EXTRA, evdev.BTN_FORWARD, evdev.BTN_BACK,
	}
	var out []string
	for _, b := range candidates {
		if keys.Has(b) {
			out = append(out, evdev.CodeName(evdev.EV_KEY, b))
		}
	}
	return out
}
