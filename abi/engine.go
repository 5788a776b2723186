package main

/*
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"

	"github.com/mnj/dupdupninja-v2/internal/scan"
)

// engineState is the Go value behind an opaque DupdupEngine* handle. It
// owns a scan.Manager, which enforces that one engine handle runs one
// scan at a time — the same Manager type internal/scan's async
// Start/Cancel pair uses, so there is exactly one implementation of that
// invariant rather than a second one reimplemented at the ABI boundary.
type engineState struct {
	manager *scan.Manager
}

// dupdupninja_engine_new allocates an engine handle.
//
//export dupdupninja_engine_new
func dupdupninja_engine_new() C.uintptr_t {
	clearLastError()
	h := cgo.NewHandle(&engineState{manager: scan.NewManager()})
	return C.uintptr_t(h)
}

// dupdupninja_engine_free releases a handle returned by
// dupdupninja_engine_new. A zero handle is a no-op.
//
//export dupdupninja_engine_free
func dupdupninja_engine_free(handle C.uintptr_t) {
	clearLastError()
	if handle == 0 {
		return
	}
	cgo.Handle(handle).Delete()
}

func engineFromHandle(handle C.uintptr_t) (*engineState, bool) {
	if handle == 0 {
		return nil, false
	}
	defer func() { recover() }() // an already-freed or foreign handle panics on Value()
	e, ok := cgo.Handle(handle).Value().(*engineState)
	return e, ok
}
