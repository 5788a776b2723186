package main

/*
#include <stdint.h>
*/
import "C"

// ABI version constants exposed to callers for compatibility checks
// before they link against this boundary.
const (
	ffiABIMajor = 1
	ffiABIMinor = 3
	ffiABIPatch = 0
)

//export dupdupninja_ffi_abi_major
func dupdupninja_ffi_abi_major() C.uint32_t { return C.uint32_t(ffiABIMajor) }

//export dupdupninja_ffi_version_major
func dupdupninja_ffi_version_major() C.uint32_t { return C.uint32_t(ffiABIMajor) }

//export dupdupninja_ffi_version_minor
func dupdupninja_ffi_version_minor() C.uint32_t { return C.uint32_t(ffiABIMinor) }

//export dupdupninja_ffi_version_patch
func dupdupninja_ffi_version_patch() C.uint32_t { return C.uint32_t(ffiABIPatch) }
