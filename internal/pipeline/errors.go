package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classify stage failures. Configuration errors indicate
// caller programming mistakes and propagate immediately; the others are
// raised at stage entry (no input) or caught at per-unit loops.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrNoInput       = errors.New("no input")
	ErrDecode        = errors.New("decode failure")
	ErrProcess       = errors.New("processing failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProcess
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTerminal reports whether a stage error should halt the remaining stages.
// Absent input and misconfiguration are terminal; per-unit failures are
// handled inside the stage loops and never reach this check.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrNoInput) || errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
