package routing

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// ScreenInfo is the viewport/device profile a browser reports via its
// screen_info cookie.
type ScreenInfo struct {
	Width          uint32  `json:"width"`
	Height         uint32  `json:"height"`
	DPR            float32 `json:"dpr"`
	ViewportWidth  uint32  `json:"viewport_width"`
	ViewportHeight uint32  `json:"viewport_height"`
	ActiveVoices   uint32  `json:"active_voices"`
}

// ClientInfo is the fully resolved client profile for one request,
// carried into the template context.
type ClientInfo struct {
	Lang            string
	InteractionMode string
	DeviceType      string
	Breakpoint      string
	ScreenInfo      *ScreenInfo
	IsBot           bool
}

// DetectClientInfo resolves device type, CSS breakpoint, and interaction
// mode (mouse/touch/reader) for req, using the screen_info cookie when
// present and falling back to a User-Agent heuristic otherwise.
func DetectClientInfo(req *http.Request, lang string) ClientInfo {
	screenInfo := parseScreenInfoCookie(req)
	isBot := isBotRequest(req)
	deviceType := detectDeviceType(req, screenInfo)
	breakpoint := detectBreakpoint(screenInfo, deviceType)
	mode := detectInteractionMode(screenInfo, deviceType, breakpoint, isBot)

	return ClientInfo{
		Lang:            lang,
		InteractionMode: mode,
		DeviceType:      deviceType,
		Breakpoint:      breakpoint,
		ScreenInfo:      screenInfo,
		IsBot:           isBot,
	}
}

func parseScreenInfoCookie(req *http.Request) *ScreenInfo {
	cookie, err := req.Cookie("screen_info")
	if err != nil {
		return nil
	}
	decoded, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	var info ScreenInfo
	if err := json.Unmarshal([]byte(decoded), &info); err != nil {
		return nil
	}
	return &info
}

func detectDeviceType(req *http.Request, info *ScreenInfo) string {
	if info != nil {
		switch {
		case info.ViewportWidth < 560:
			return "mobile"
		case info.ViewportWidth < 960:
			return "tablet"
		default:
			return "desktop"
		}
	}

	ua := strings.ToLower(req.Header.Get("User-Agent"))
	switch {
	case ua == "":
		return "desktop"
	case containsAny(ua, "bot", "crawler", "spider", "googlebot"):
		return "bot"
	case containsAny(ua, "mobile", "android", "iphone", "windows phone", "blackberry"):
		return "mobile"
	case containsAny(ua, "ipad", "tablet", "kindle"):
		return "tablet"
	default:
		return "desktop"
	}
}

func detectBreakpoint(info *ScreenInfo, deviceType string) string {
	if info != nil {
		switch {
		case info.ViewportWidth <= 559:
			return "phone"
		case info.ViewportWidth <= 959:
			return "tablet"
		case info.ViewportWidth <= 1259:
			return "screen"
		default:
			return "wide"
		}
	}
	switch deviceType {
	case "mobile":
		return "phone"
	case "tablet":
		return "tablet"
	default:
		return "screen"
	}
}

func detectInteractionMode(info *ScreenInfo, deviceType, breakpoint string, isBot bool) string {
	if info == nil || isBot || deviceType == "bot" ||
		(info != nil && (info.ViewportWidth < 1 || info.ActiveVoices > 0)) {
		return "reader"
	}

	switch breakpoint {
	case "phone", "tablet":
		return "touch"
	case "screen", "wide":
		return "mouse"
	default:
		if deviceType == "mobile" || deviceType == "tablet" {
			return "touch"
		}
		return "mouse"
	}
}

func isBotRequest(req *http.Request) bool {
	ua := strings.ToLower(req.Header.Get("User-Agent"))
	return containsAny(ua, "bot", "crawler", "spider")
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
