package main

/*
#include <stdint.h>
*/
import "C"

import (
	"testing"
	"unsafe"

	"github.com/mnj/dupdupninja-v2/internal/query"
	"github.com/mnj/dupdupninja-v2/internal/scanerr"
)

func TestStatusForMapsInvalidArgument(t *testing.T) {
	err := scanerr.New("abi.test", scanerr.InvalidArgument, nil)
	if got := statusFor(err); got != StatusInvalidArgument {
		t.Errorf("statusFor(InvalidArgument) = %d, want %d", got, StatusInvalidArgument)
	}
	if got := statusFor(nil); got != StatusOk {
		t.Errorf("statusFor(nil) = %d, want %d", got, StatusOk)
	}
	if got := statusFor(scanerr.New("abi.test", scanerr.Internal, nil)); got != StatusError {
		t.Errorf("statusFor(Internal) = %d, want %d", got, StatusError)
	}
}

func TestCExactFilesRoundTrip(t *testing.T) {
	files := []query.ExactFile{{FileID: 1, Path: "/a"}, {FileID: 2, Path: "/b"}}
	ptr, n := cExactFiles(files)
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	arr := unsafe.Slice(ptr, int(n))
	if C.GoString(arr[0].path) != "/a" || int64(arr[0].file_id) != 1 {
		t.Errorf("arr[0] = %+v", arr[0])
	}
	if C.GoString(arr[1].path) != "/b" || int64(arr[1].file_id) != 2 {
		t.Errorf("arr[1] = %+v", arr[1])
	}
	freeExactFiles(ptr, n)
}

func TestCExactFilesEmpty(t *testing.T) {
	ptr, n := cExactFiles(nil)
	if ptr != nil || n != 0 {
		t.Errorf("cExactFiles(nil) = (%v, %d), want (nil, 0)", ptr, n)
	}
}

func TestCSimilarMembersRoundTrip(t *testing.T) {
	members := []query.SimilarMember{
		{FileID: 1, Path: "/img", IsBase: true},
		{FileID: 2, Path: "/vid", IsSnapshot: true, SnapshotIndex: 3, PHashDistance: 4},
	}
	ptr, n := cSimilarMembers(members)
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	arr := unsafe.Slice(ptr, int(n))
	if arr[0].is_base != 1 || arr[0].is_snapshot != 0 {
		t.Errorf("arr[0] = %+v, want is_base=1 is_snapshot=0", arr[0])
	}
	if arr[1].is_snapshot != 1 || int(arr[1].snapshot_idx) != 3 {
		t.Errorf("arr[1] = %+v, want is_snapshot=1 snapshot_idx=3", arr[1])
	}
	C.free(unsafe.Pointer(arr[0].path))
	C.free(unsafe.Pointer(arr[1].path))
	C.free(unsafe.Pointer(ptr))
}
