package source

import (
	"strings"

	"github.com/gameradar/dealwatch/internal/model"
)

// VR titles on Steam carry no platform field of their own; they are detected
// from the title so the orchestrator can route them to the vr channel.
var vrMarkers = []string{" vr", "vr ", "virtual reality", "oculus", "quest"}

func steamPlatform(title string) model.Platform {
	lower := " " + strings.ToLower(title) + " "
	for _, m := range vrMarkers {
		if strings.Contains(lower, m) {
			return model.PlatformVR
		}
	}
	return model.PlatformPC
}
