// Package plog is the engine's ambient logger. Most of the core does
// not return structured errors for user-driven misuse (out-of-range
// indices, resource exhaustion) — it logs through here and no-ops,
// keeping call sites free of error-checking boilerplate for conditions
// that are never supposed to stop a running plot. The exception is
// internal/axis, whose slot operations return sentinel errors (for
// example ErrNoFreeSlot when no axis or figure slot is free).
package plog

import (
	"log"
	"os"
	"sync/atomic"
)

// Level is the severity of a log line.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var currentLevel int32 = int32(LevelInfo)

var base = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

// SetLevel sets the global gate. Lines below it are dropped without
// formatting their arguments.
func SetLevel(l Level) {
	atomic.StoreInt32(&currentLevel, int32(l))
}

func enabled(l Level) bool {
	return int32(l) >= atomic.LoadInt32(&currentLevel)
}

func Debugf(format string, args ...interface{}) {
	if enabled(LevelDebug) {
		base.Printf("[debug] "+format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled(LevelInfo) {
		base.Printf("[info] "+format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if enabled(LevelWarn) {
		base.Printf("[warn] "+format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if enabled(LevelError) {
		base.Printf("[error] "+format, args...)
	}
}
