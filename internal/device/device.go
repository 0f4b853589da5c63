// Package device derives a device identity from a user-agent string. The
// identity tuple keys session upserts, so parsing is kept behind the Parser
// type to stay deterministic and swappable in tests.
package device

import (
	"strings"

	"github.com/mileusna/useragent"

	"github.com/kalpintel/authd/domain"
)

// Parser is a pure function mapping a user-agent string to a device identity.
type Parser func(userAgent string) domain.DeviceInfo

// Parse extracts the (device, browser, os) tuple from a user-agent string.
// Unparsable fields fall back to their defaults; a desktop browser with no
// device model reports "Desktop".
func Parse(userAgent string) domain.DeviceInfo {
	ua := useragent.Parse(userAgent)

	dev := ua.Device
	if dev == "" {
		switch {
		case ua.Mobile:
			dev = "Mobile"
		case ua.Tablet:
			dev = "Tablet"
		default:
			dev = domain.DefaultDevice
		}
	}

	browser := ua.Name
	if browser == "" {
		browser = domain.DefaultBrowser
	}

	os := domain.DefaultOS
	if ua.OS != "" {
		os = strings.TrimSpace(ua.OS + " " + ua.OSVersion)
	}

	return domain.DeviceInfo{Device: dev, Browser: browser, OS: os}
}

var _ Parser = Parse
