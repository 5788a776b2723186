package main

/*
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
)

// dupdupninja_cancel_token_new allocates a fresh, not-yet-cancelled token.
//
//export dupdupninja_cancel_token_new
func dupdupninja_cancel_token_new() C.uintptr_t {
	clearLastError()
	h := cgo.NewHandle(cancel.New())
	return C.uintptr_t(h)
}

// dupdupninja_cancel_token_free releases a token handle. A zero handle is
// a no-op.
//
//export dupdupninja_cancel_token_free
func dupdupninja_cancel_token_free(handle C.uintptr_t) {
	clearLastError()
	if handle == 0 {
		return
	}
	cgo.Handle(handle).Delete()
}

// dupdupninja_cancel_token_cancel requests cancellation of any scan using
// this token. Safe to call from any thread, any number of times.
//
//export dupdupninja_cancel_token_cancel
func dupdupninja_cancel_token_cancel(handle C.uintptr_t) {
	clearLastError()
	tok, ok := tokenFromHandle(handle)
	if !ok {
		return
	}
	tok.Cancel()
}

func tokenFromHandle(handle C.uintptr_t) (tok *cancel.Token, ok bool) {
	if handle == 0 {
		return nil, false
	}
	defer func() { recover() }()
	tok, ok = cgo.Handle(handle).Value().(*cancel.Token)
	return tok, ok
}
