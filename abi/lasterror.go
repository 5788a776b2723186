package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"sync"
	"unsafe"
)

// lastErrorMu and lastErrorMsg implement a thread-local-style LAST_ERROR
// slot. Go has no per-OS-thread storage that survives across a cgo call,
// and a goroutine calling back into Go is not guaranteed to stay pinned
// to one OS thread either. This package instead keeps one process-wide
// slot behind a mutex: the documented usage pattern (one engine, calls
// made one at a time, error message read immediately after the call that
// set it) sees correct behaviour; a caller running multiple engines
// concurrently on the same process would see a race between their error
// messages, a real, deliberate narrowing of what this boundary guarantees.
var lastErrorMu sync.Mutex
var lastErrorMsg *C.char

// setLastError replaces the last-error slot's contents.
func setLastError(msg string) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if lastErrorMsg != nil {
		C.free(unsafe.Pointer(lastErrorMsg))
	}
	lastErrorMsg = C.CString(msg)
}

// clearLastError empties the slot; every exported entry point calls this
// first so a stale message never outlives the call that produced it.
func clearLastError() {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if lastErrorMsg != nil {
		C.free(unsafe.Pointer(lastErrorMsg))
		lastErrorMsg = nil
	}
}

// dupdupninja_last_error_message returns the message set by the most
// recent failing call on this process, or NULL if none. The returned
// pointer is owned by this package and is only valid until the next ABI
// call; callers that need to keep it must copy it immediately.
//
//export dupdupninja_last_error_message
func dupdupninja_last_error_message() *C.char {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastErrorMsg
}
