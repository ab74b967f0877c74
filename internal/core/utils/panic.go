package utils

import (
	"context"
	"log"
	"runtime"
)

func logPanic(rec any) {
	stack := make([]byte, 8096)
	stack = stack[:runtime.Stack(stack, false)]
	log.Printf("recovered panic: %v\n%s", rec, stack)
}

// CatchPanicWithCancel must be deferred. It stops the node after a goroutine panicked.
func CatchPanicWithCancel(cancel context.CancelFunc) {
	if err := recover(); err != nil {
		logPanic(err)
		cancel()
	}
}

// CatchPanicWithFallback must be deferred. onPanic receives the recovered value.
func CatchPanicWithFallback(onPanic func(any)) {
	if err := recover(); err != nil {
		logPanic(err)
		onPanic(err)
	}
}
