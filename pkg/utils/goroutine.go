package utils

import (
	"runtime/debug"

	"go.uber.org/zap"
)

// GoSafe runs fn on a new goroutine and logs instead of crashing on panic.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("Recovered from panic in goroutine",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
			}
		}()
		fn()
	}()
}
