package models

import (
	"fmt"
	"strings"
)

// Mode selects which telemetry a run evaluates.
type Mode string

const (
	ModeLogs  Mode = "logs"
	ModeFlows Mode = "flows"
)

// ParseMode accepts "logs" or "flows" in any casing.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeLogs:
		return ModeLogs, nil
	case ModeFlows:
		return ModeFlows, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want logs or flows)", value)
	}
}
