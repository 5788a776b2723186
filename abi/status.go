// Command dupdupninja-abi is not run directly; it is built with
// `go build -buildmode=c-shared` (or c-archive) to produce a C ABI over
// the scan engine, fileset store, and query engine, so non-Go callers can
// drive a scan and read its results without linking Go directly.
package main

/*
#include <stdint.h>
*/
import "C"

import "github.com/mnj/dupdupninja-v2/internal/scanerr"

// Status codes form a four-value DupdupStatus enum. There is no dedicated
// Cancelled code: a cancelled scan reports
// StatusError with "Cancelled: ..." in the last-error message, so callers
// that care distinguish it by string rather than by a fifth code.
const (
	StatusOk              C.int = 0
	StatusError           C.int = 1
	StatusInvalidArgument C.int = 2
	StatusNullPointer     C.int = 3
)

// statusFor maps an internal error onto one of the four ABI statuses.
func statusFor(err error) C.int {
	if err == nil {
		return StatusOk
	}
	if scanerr.Of(err, scanerr.InvalidArgument) {
		return StatusInvalidArgument
	}
	return StatusError
}

func main() {}
