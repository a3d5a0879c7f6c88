package utils

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ParseHexColor parses a hex color string (like "#FAF317") into an integer
// for Discord embeds. It returns fallback if parsing fails.
func ParseHexColor(hexColor string, fallback int) int {
	if hexColor == "" {
		return fallback
	}

	hexColor = strings.TrimPrefix(hexColor, "#")
	colorInt, err := strconv.ParseInt(hexColor, 16, 32)
	if err != nil || colorInt < 0 || colorInt > 0xFFFFFF {
		logrus.WithField("color", hexColor).Warn("Invalid embed color, using default")
		return fallback
	}
	return int(colorInt)
}
