package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrExternalTool  = errors.New("external tool error")
	ErrDecode        = errors.New("decode failure")
	ErrEncode        = errors.New("encode failure")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Describe returns a short reviewer-facing explanation of err. All failures are
// terminal for the operation that produced them; the text only says which kind
// of failure happened.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var prefix string
	switch {
	case errors.Is(err, ErrDecode):
		prefix = "A source could not be decoded"
	case errors.Is(err, ErrEncode):
		prefix = "The composite could not be encoded"
	case errors.Is(err, ErrTimeout):
		prefix = "The operation timed out"
	case errors.Is(err, ErrExternalTool):
		prefix = "An external tool failed"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		prefix = "The request is invalid"
	case errors.Is(err, ErrNotFound):
		prefix = "Something required was not found"
	default:
		return err.Error()
	}
	return prefix + ": " + err.Error()
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
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
