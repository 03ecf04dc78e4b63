package classify_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"

	"github.com/m720d/m720d/internal/classify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassifierMatch(t *testing.T) {
	thumbButtons := classify.NewCapSet(evdev.BTN_LEFT, evdev.BTN_SIDE, evdev.BTN_EXTRA)
	plainButtons := classify.NewCapSet(evdev.BTN_LEFT, evdev.BTN_RIGHT, evdev.BTN_MIDDLE)

	tests := []struct {
		name  string
		desc  classify.Descriptor
		match bool
	}{
		{
			name: "usb receiver variant",
			desc: classify.Descriptor{
				Name: "Logitech M720 Triathlon",
				USB:  &classify.BusID{Vendor: 0x046d, Product: 0x405e},
			},
			match: true,
		},
		{
			name: "bluetooth variant",
			desc: classify.Descriptor{
				Name: "M720 Triathlon Mouse",
				USB:  &classify.BusID{Vendor: 0x046d, Product: 0xb015},
			},
			match: true,
		},
		{
			name: "unifying variant",
			desc: classify.Descriptor{
				Name: "Logitech Wireless Mouse",
				USB:  &classify.BusID{Vendor: 0x046d, Product: 0xb013},
			},
			match: true,
		},
		{
			name: "name mismatch rejects despite matching ids",
			desc: classify.Descriptor{
				Name: "Some Other Mouse",
				USB:  &classify.BusID{Vendor: 0x046d, Product: 0x405e},
				Keys: thumbButtons,
			},
			match: false,
		},
		{
			name: "wrong usb vendor falls through to capability check",
			desc: classify.Descriptor{
				Name: "M720",
				USB:  &classify.BusID{Vendor: 0x1234, Product: 0x405e},
				Keys: plainButtons,
			},
			match: false,
		},
		{
			name: "unknown usb product falls through and capability check accepts",
			desc: classify.Descriptor{
				Name: "M720",
				USB:  &classify.BusID{Vendor: 0x046d, Product: 0xffff},
				Keys: thumbButtons,
			},
			match: true,
		},
		{
			name: "hid ancestor with logitech vendor accepts",
			desc: classify.Descriptor{
				Name: "Logitech MX Master",
				HID:  &classify.BusID{Vendor: 0x046d, Product: 0x4069},
			},
			match: true,
		},
		{
			name: "hid ancestor with foreign vendor falls through",
			desc: classify.Descriptor{
				Name: "M720",
				HID:  &classify.BusID{Vendor: 0x05ac, Product: 0x0001},
				Keys: plainButtons,
			},
			match: false,
		},
		{
			name: "no ancestry but both thumb buttons present",
			desc: classify.Descriptor{
				Name: "M720 Mouse",
				Keys: thumbButtons,
			},
			match: true,
		},
		{
			name: "no ancestry and only one thumb button",
			desc: classify.Descriptor{
				Name: "M720 Mouse",
				Keys: classify.NewCapSet(evdev.BTN_LEFT, evdev.BTN_SIDE),
			},
			match: false,
		},
		{
			name:  "empty descriptor",
			desc:  classify.Descriptor{},
			match: false,
		},
	}

	c := classify.New(discardLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, c.Match(tt.desc))
		})
	}
}

func TestCapSet(t *testing.T) {
	s := classify.NewCapSet(evdev.BTN_SIDE, evdev.BTN_EXTRA)
	assert.True(t, s.Has(evdev.BTN_SIDE))
	assert.True(t, s.Has(evdev.BTN_EXTRA))
	assert.False(t, s.Has(evdev.BTN_FORWARD))
	assert.False(t, classify.NewCapSet().Has(evdev.BTN_SIDE))
}
