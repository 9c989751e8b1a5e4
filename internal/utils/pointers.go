package utils

import (
	"fmt"
	"time"
)

func StringPtr(s string) *string {
	return &s
}

func IntPtr(i int) *int {
	return &i
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

// StringPtrOrNil returns nil for the empty string.
func StringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func IntPtrOrNil(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func PtrInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func WrapErrorf(err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", fmt.Sprintf(msg, args...), err)
}
