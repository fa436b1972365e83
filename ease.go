package lyra

import (
	"strings"

	"github.com/tanema/gween/ease"
)

// EasingByName returns the easing function for a name such as "outQuad",
// "easeInOutCubic", or "out-elastic". Matching is case-insensitive and
// ignores an "ease" prefix and separators. Unknown names fall back to
// Linear.
func EasingByName(name string) ease.TweenFunc {
	key := strings.ToLower(name)
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, "_", "")
	key = strings.TrimPrefix(key, "ease")
	switch key {
	case "inquad":
		return ease.InQuad
	case "outquad":
		return ease.OutQuad
	case "inoutquad":
		return ease.InOutQuad
	case "incubic":
		return ease.InCubic
	case "outcubic":
		return ease.OutCubic
	case "inoutcubic":
		return ease.InOutCubic
	case "insine":
		return ease.InSine
	case "outsine":
		return ease.OutSine
	case "inoutsine":
		return ease.InOutSine
	case "inexpo":
		return ease.InExpo
	case "outexpo":
		return ease.OutExpo
	case "inoutexpo":
		return ease.InOutExpo
	case "inelastic":
		return ease.InElastic
	case "outelastic":
		return ease.OutElastic
	case "inoutelastic":
		return ease.InOutElastic
	case "inbounce":
		return ease.InBounce
	case "outbounce":
		return ease.OutBounce
	case "inoutbounce":
		return ease.InOutBounce
	case "inback":
		return ease.InBack
	case "outback":
		return ease.OutBack
	case "inoutback":
		return ease.InOutBack
	default:
		return ease.Linear
	}
}

// Ease applies a named easing to a progress value in [0, 1].
// Endpoints are pinned: Ease(name, 0) == 0 and Ease(name, 1) == 1 for every
// supported name, so segment boundaries land exactly.
func Ease(name string, p float64) float64 {
	return applyEase(EasingByName(name), p)
}

// applyEase bridges a gween ease.TweenFunc (float32, Penner b/c/d form)
// to the engine's float64 progress domain.
func applyEase(fn ease.TweenFunc, p float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	return float64(fn(float32(p), 0, 1, 1))
}
