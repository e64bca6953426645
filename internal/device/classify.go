package device

import "strings"

// Class is the coarse device category a challenge session is evaluated
// under. It is determined once at session creation and never re-evaluated:
// behavioral pointer checks are meaningless on touch devices, so the
// validator branches on this value.
type Class string

const (
	Desktop Class = "desktop"
	Mobile  Class = "mobile"
)

// mobileMarkers are user-agent substrings that indicate a touch-first device.
var mobileMarkers = []string{
	"android",
	"iphone",
	"ipad",
	"ipod",
	"mobile",
	"windows phone",
	"webos",
	"blackberry",
	"opera mini",
}

// Classify derives a device class from the platform signals the hosting
// client can provide: its user-agent string and reported touch point count.
// Sniffing is inherently heuristic; callers treat the result as a fixed
// input to validation rather than a ground truth.
func Classify(userAgent string, maxTouchPoints int) Class {
	if maxTouchPoints > 0 {
		return Mobile
	}

	ua := strings.ToLower(userAgent)
	for _, marker := range mobileMarkers {
		if strings.Contains(ua, marker) {
			return Mobile
		}
	}

	return Desktop
}
