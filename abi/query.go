package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef struct {
    int64_t file_id;
    char *path;
} dupdup_exact_file;

typedef struct {
    char *label;
    int64_t size_bytes;
    char *blake3_hex;
    dupdup_exact_file *files;
    size_t files_len;
} dupdup_exact_group;

typedef struct {
    int64_t file_id;
    char *path;
    int is_snapshot;
    int snapshot_idx;
    int phash_distance;
    int dhash_distance;
    int ahash_distance;
    double confidence_percent;
    int is_base;
} dupdup_similar_member;

typedef struct {
    int64_t base_file_id;
    dupdup_similar_member *members;
    size_t members_len;
} dupdup_similar_group;

typedef struct {
    char *name;
    char *description;
    char *notes;
    char *status;
} dupdup_fileset_metadata;

typedef struct {
    int64_t file_id;
    char *path;
    int64_t size_bytes;
    char *file_type;
    char *blake3_hex;
    char *sha256_hex;
    int64_t mtime_ms;
    int64_t ingested_at_ms;
    int is_duplicate;
} dupdup_file_row;

typedef struct {
    int idx;
    int cnt;
    int64_t at_ms;
    int64_t duration_ms;
    int has_duration_ms;
    uint64_t ahash;
    int has_ahash;
    uint64_t dhash;
    int has_dhash;
    uint64_t phash;
    int has_phash;
} dupdup_snapshot_row;
*/
import "C"

import (
	"unsafe"

	"github.com/mnj/dupdupninja-v2/internal/db"
	"github.com/mnj/dupdupninja-v2/internal/query"
)

func cExactFiles(files []query.ExactFile) (*C.dupdup_exact_file, C.size_t) {
	n := len(files)
	if n == 0 {
		return nil, 0
	}
	mem := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.dupdup_exact_file{})))
	arr := unsafe.Slice((*C.dupdup_exact_file)(mem), n)
	for i, f := range files {
		arr[i].file_id = C.int64_t(f.FileID)
		arr[i].path = C.CString(f.Path)
	}
	return (*C.dupdup_exact_file)(mem), C.size_t(n)
}

func freeExactFiles(ptr *C.dupdup_exact_file, n C.size_t) {
	if ptr == nil {
		return
	}
	arr := unsafe.Slice(ptr, int(n))
	for i := range arr {
		C.free(unsafe.Pointer(arr[i].path))
	}
	C.free(unsafe.Pointer(ptr))
}

// dupdupninja_fileset_list_exact_groups opens db_path, runs the exact-
// duplicate-group query, and writes a freshly allocated array of
// dupdup_exact_group into *out_groups / *out_groups_len. The caller must
// release it with dupdupninja_fileset_free_exact_groups.
//
//export dupdupninja_fileset_list_exact_groups
func dupdupninja_fileset_list_exact_groups(
	dbPath *C.char, limit, offset C.int,
	outGroups **C.dupdup_exact_group, outGroupsLen *C.size_t,
) C.int {
	clearLastError()
	if dbPath == nil || outGroups == nil || outGroupsLen == nil {
		setLastError("db_path and output pointers must not be null")
		return StatusNullPointer
	}

	store, err := db.OpenReadOnly(C.GoString(dbPath))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	defer store.Close()

	groups, err := query.ExactGroups(store.DB(), int(limit), int(offset))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}

	n := len(groups)
	*outGroupsLen = C.size_t(n)
	if n == 0 {
		*outGroups = nil
		return StatusOk
	}

	mem := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.dupdup_exact_group{})))
	arr := unsafe.Slice((*C.dupdup_exact_group)(mem), n)
	for i, g := range groups {
		arr[i].label = C.CString(g.Label)
		arr[i].size_bytes = C.int64_t(g.SizeBytes)
		arr[i].blake3_hex = C.CString(g.Blake3Hex)
		arr[i].files, arr[i].files_len = cExactFiles(g.Files)
	}
	*outGroups = (*C.dupdup_exact_group)(mem)
	return StatusOk
}

// dupdupninja_fileset_free_exact_groups releases an array returned by
// dupdupninja_fileset_list_exact_groups.
//
//export dupdupninja_fileset_free_exact_groups
func dupdupninja_fileset_free_exact_groups(groups *C.dupdup_exact_group, n C.size_t) {
	if groups == nil {
		return
	}
	arr := unsafe.Slice(groups, int(n))
	for i := range arr {
		C.free(unsafe.Pointer(arr[i].label))
		C.free(unsafe.Pointer(arr[i].blake3_hex))
		freeExactFiles(arr[i].files, arr[i].files_len)
	}
	C.free(unsafe.Pointer(groups))
}

// dupdupninja_fileset_list_direct_matches returns every other file sharing
// file_id's content hash.
//
//export dupdupninja_fileset_list_direct_matches
func dupdupninja_fileset_list_direct_matches(
	dbPath *C.char, fileID C.int64_t,
	outFiles **C.dupdup_exact_file, outFilesLen *C.size_t,
) C.int {
	clearLastError()
	if dbPath == nil || outFiles == nil || outFilesLen == nil {
		setLastError("db_path and output pointers must not be null")
		return StatusNullPointer
	}

	store, err := db.OpenReadOnly(C.GoString(dbPath))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	defer store.Close()

	matches, err := query.DirectMatches(store.DB(), int64(fileID))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}

	ptr, n := cExactFiles(matches)
	*outFiles = ptr
	*outFilesLen = n
	return StatusOk
}

// dupdupninja_fileset_free_files releases an array returned by
// dupdupninja_fileset_list_direct_matches.
//
//export dupdupninja_fileset_free_files
func dupdupninja_fileset_free_files(files *C.dupdup_exact_file, n C.size_t) {
	freeExactFiles(files, n)
}

// dupdupninja_fileset_list_similar_groups clusters near-duplicate images
// and video snapshots within the given thresholds (each clamped to
// [1,32]), paginated by (limit, offset) over groups. The caller must
// release the result with dupdupninja_fileset_free_similar_groups.
//
//export dupdupninja_fileset_list_similar_groups
func dupdupninja_fileset_list_similar_groups(
	dbPath *C.char, limit, offset C.int,
	phashMaxDistance, dhashMaxDistance, ahashMaxDistance C.int,
	outGroups **C.dupdup_similar_group, outGroupsLen *C.size_t,
) C.int {
	clearLastError()
	if dbPath == nil || outGroups == nil || outGroupsLen == nil {
		setLastError("db_path and output pointers must not be null")
		return StatusNullPointer
	}

	store, err := db.OpenReadOnly(C.GoString(dbPath))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	defer store.Close()

	groups, err := query.SimilarGroups(store.DB(), int(limit), int(offset), query.SimilarOptions{
		PHashMaxDistance: int(phashMaxDistance),
		DHashMaxDistance: int(dhashMaxDistance),
		AHashMaxDistance: int(ahashMaxDistance),
	})
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}

	n := len(groups)
	*outGroupsLen = C.size_t(n)
	if n == 0 {
		*outGroups = nil
		return StatusOk
	}

	mem := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.dupdup_similar_group{})))
	arr := unsafe.Slice((*C.dupdup_similar_group)(mem), n)
	for i, g := range groups {
		arr[i].base_file_id = C.int64_t(g.BaseFileID)
		arr[i].members, arr[i].members_len = cSimilarMembers(g.Members)
	}
	*outGroups = (*C.dupdup_similar_group)(mem)
	return StatusOk
}

func cSimilarMembers(members []query.SimilarMember) (*C.dupdup_similar_member, C.size_t) {
	n := len(members)
	if n == 0 {
		return nil, 0
	}
	mem := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.dupdup_similar_member{})))
	arr := unsafe.Slice((*C.dupdup_similar_member)(mem), n)
	for i, m := range members {
		arr[i].file_id = C.int64_t(m.FileID)
		arr[i].path = C.CString(m.Path)
		if m.IsSnapshot {
			arr[i].is_snapshot = 1
		}
		arr[i].snapshot_idx = C.int(m.SnapshotIndex)
		arr[i].phash_distance = C.int(m.PHashDistance)
		arr[i].dhash_distance = C.int(m.DHashDistance)
		arr[i].ahash_distance = C.int(m.AHashDistance)
		arr[i].confidence_percent = C.double(m.ConfidencePct)
		if m.IsBase {
			arr[i].is_base = 1
		}
	}
	return (*C.dupdup_similar_member)(mem), C.size_t(n)
}

// dupdupninja_fileset_free_similar_groups releases an array returned by
// dupdupninja_fileset_list_similar_groups.
//
//export dupdupninja_fileset_free_similar_groups
func dupdupninja_fileset_free_similar_groups(groups *C.dupdup_similar_group, n C.size_t) {
	if groups == nil {
		return
	}
	arr := unsafe.Slice(groups, int(n))
	for i := range arr {
		if arr[i].members == nil {
			continue
		}
		members := unsafe.Slice(arr[i].members, int(arr[i].members_len))
		for j := range members {
			C.free(unsafe.Pointer(members[j].path))
		}
		C.free(unsafe.Pointer(arr[i].members))
	}
	C.free(unsafe.Pointer(groups))
}

// dupdupninja_fileset_get_metadata reads the fileset's singleton metadata
// row. The caller must release the result with
// dupdupninja_fileset_free_metadata.
//
//export dupdupninja_fileset_get_metadata
func dupdupninja_fileset_get_metadata(dbPath *C.char, out *C.dupdup_fileset_metadata) C.int {
	clearLastError()
	if dbPath == nil || out == nil {
		setLastError("db_path and out must not be null")
		return StatusNullPointer
	}

	store, err := db.OpenReadOnly(C.GoString(dbPath))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	defer store.Close()

	meta, err := store.GetMetadata()
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}

	out.name = C.CString(meta.Name)
	out.description = C.CString(meta.Description)
	out.notes = C.CString(meta.Notes)
	out.status = C.CString(meta.Status)
	return StatusOk
}

// dupdupninja_fileset_free_metadata releases the string fields populated
// by dupdupninja_fileset_get_metadata. The struct itself is owned by the
// caller (it is filled in place, not allocated by this package).
//
//export dupdupninja_fileset_free_metadata
func dupdupninja_fileset_free_metadata(m *C.dupdup_fileset_metadata) {
	if m == nil {
		return
	}
	C.free(unsafe.Pointer(m.name))
	C.free(unsafe.Pointer(m.description))
	C.free(unsafe.Pointer(m.notes))
	C.free(unsafe.Pointer(m.status))
	m.name, m.description, m.notes, m.status = nil, nil, nil, nil
}

// dupdupninja_fileset_set_metadata updates the fileset's mutable metadata
// fields.
//
//export dupdupninja_fileset_set_metadata
func dupdupninja_fileset_set_metadata(dbPath, name, description, notes, status *C.char) C.int {
	clearLastError()
	if dbPath == nil || name == nil || description == nil || notes == nil || status == nil {
		setLastError("all arguments must be non-null")
		return StatusNullPointer
	}

	store, err := db.Open(C.GoString(dbPath))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	defer store.Close()

	if err := store.SetMetadata(C.GoString(name), C.GoString(description), C.GoString(notes), C.GoString(status)); err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	return StatusOk
}

// dupdupninja_fileset_delete_file_by_path removes one file row (and its
// hash/snapshot children, via cascade) from the fileset. It is not an
// error if no row matches.
//
//export dupdupninja_fileset_delete_file_by_path
func dupdupninja_fileset_delete_file_by_path(dbPath, path *C.char) C.int {
	clearLastError()
	if dbPath == nil || path == nil {
		setLastError("db_path and path must not be null")
		return StatusNullPointer
	}

	store, err := db.Open(C.GoString(dbPath))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	defer store.Close()

	if err := store.DeleteFileByPath(C.GoString(path)); err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	return StatusOk
}

// dupdupninja_fileset_list_rows returns a flat, paginated view of every
// ingested file, optionally restricted to files that share their
// (size_bytes, blake3_hex) with at least one other file. The caller must
// release the result with dupdupninja_fileset_free_rows.
//
//export dupdupninja_fileset_list_rows
func dupdupninja_fileset_list_rows(
	dbPath *C.char, duplicatesOnly C.int, limit, offset C.int,
	outRows **C.dupdup_file_row, outRowsLen *C.size_t,
) C.int {
	clearLastError()
	if dbPath == nil || outRows == nil || outRowsLen == nil {
		setLastError("db_path and output pointers must not be null")
		return StatusNullPointer
	}

	store, err := db.OpenReadOnly(C.GoString(dbPath))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	defer store.Close()

	rows, err := query.ListRows(store.DB(), duplicatesOnly != 0, int(limit), int(offset))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}

	n := len(rows)
	*outRowsLen = C.size_t(n)
	if n == 0 {
		*outRows = nil
		return StatusOk
	}

	mem := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.dupdup_file_row{})))
	arr := unsafe.Slice((*C.dupdup_file_row)(mem), n)
	for i, r := range rows {
		arr[i].file_id = C.int64_t(r.FileID)
		arr[i].path = C.CString(r.Path)
		arr[i].size_bytes = C.int64_t(r.SizeBytes)
		arr[i].file_type = C.CString(r.MediaClass)
		arr[i].blake3_hex = C.CString(r.Blake3Hex)
		arr[i].sha256_hex = C.CString(r.SHA256Hex)
		arr[i].mtime_ms = C.int64_t(r.MTimeMs)
		arr[i].ingested_at_ms = C.int64_t(r.IngestedAtMs)
		if r.IsDuplicate {
			arr[i].is_duplicate = 1
		}
	}
	*outRows = (*C.dupdup_file_row)(mem)
	return StatusOk
}

// dupdupninja_fileset_free_rows releases an array returned by
// dupdupninja_fileset_list_rows.
//
//export dupdupninja_fileset_free_rows
func dupdupninja_fileset_free_rows(rows *C.dupdup_file_row, n C.size_t) {
	if rows == nil {
		return
	}
	arr := unsafe.Slice(rows, int(n))
	for i := range arr {
		C.free(unsafe.Pointer(arr[i].path))
		C.free(unsafe.Pointer(arr[i].file_type))
		C.free(unsafe.Pointer(arr[i].blake3_hex))
		C.free(unsafe.Pointer(arr[i].sha256_hex))
	}
	C.free(unsafe.Pointer(rows))
}

// dupdupninja_fileset_list_snapshots_by_path returns every snapshot row
// for the file at path, ordered by snapshot index ascending. The caller
// must release the result with dupdupninja_fileset_free_snapshots.
//
//export dupdupninja_fileset_list_snapshots_by_path
func dupdupninja_fileset_list_snapshots_by_path(
	dbPath, path *C.char,
	outRows **C.dupdup_snapshot_row, outRowsLen *C.size_t,
) C.int {
	clearLastError()
	if dbPath == nil || path == nil || outRows == nil || outRowsLen == nil {
		setLastError("db_path, path, and output pointers must not be null")
		return StatusNullPointer
	}

	store, err := db.OpenReadOnly(C.GoString(dbPath))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	defer store.Close()

	rows, err := query.SnapshotsByPath(store.DB(), C.GoString(path))
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}

	n := len(rows)
	*outRowsLen = C.size_t(n)
	if n == 0 {
		*outRows = nil
		return StatusOk
	}

	mem := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.dupdup_snapshot_row{})))
	arr := unsafe.Slice((*C.dupdup_snapshot_row)(mem), n)
	for i, r := range rows {
		arr[i].idx = C.int(r.Idx)
		arr[i].cnt = C.int(r.Count)
		arr[i].at_ms = C.int64_t(r.AtMs)
		if r.DurationMs != nil {
			arr[i].duration_ms = C.int64_t(*r.DurationMs)
			arr[i].has_duration_ms = 1
		}
		if r.AHash != nil {
			arr[i].ahash = C.uint64_t(*r.AHash)
			arr[i].has_ahash = 1
		}
		if r.DHash != nil {
			arr[i].dhash = C.uint64_t(*r.DHash)
			arr[i].has_dhash = 1
		}
		if r.PHash != nil {
			arr[i].phash = C.uint64_t(*r.PHash)
			arr[i].has_phash = 1
		}
	}
	*outRows = (*C.dupdup_snapshot_row)(mem)
	return StatusOk
}

// dupdupninja_fileset_free_snapshots releases an array returned by
// dupdupninja_fileset_list_snapshots_by_path.
//
//export dupdupninja_fileset_free_snapshots
func dupdupninja_fileset_free_snapshots(rows *C.dupdup_snapshot_row, n C.size_t) {
	if rows == nil {
		return
	}
	C.free(unsafe.Pointer(rows))
}
