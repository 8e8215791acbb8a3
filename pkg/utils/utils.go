package utils

import (
	"context"
	"fmt"
	"runtime/debug"
	"strategy-lab/pkg/logger"
	"strings"
)

// GoSafe runs fn in a new goroutine and logs a recovered panic instead of crashing the
// process.
func GoSafe(ctx context.Context, log *logger.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "panic recovered",
					logger.StringField("panic", fmt.Sprint(r)),
					logger.StringField("stack", string(debug.Stack())),
				)
			}
		}()
		fn()
	}()
}

func ToPointer[T any](value T) *T {
	return &value
}

// ShouldContinue is false once ctx is done.
func ShouldContinue(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		return true
	}
}

// StripCodeFence removes markdown code fences an LLM may wrap around a JSON answer.
func StripCodeFence(text string) string {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// Truncate shortens s to at most n runes, used to keep upstream bodies out of huge logs.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
