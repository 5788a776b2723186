// Package query implements exact-duplicate groups keyed on
// (size_bytes, blake3_hex), and near-duplicate groups clustered over
// perceptual hash distance.
package query

import (
	"database/sql"
	"fmt"

	"github.com/mnj/dupdupninja-v2/internal/scanerr"
)

// ExactFile is one member of an exact-duplicate group.
type ExactFile struct {
	FileID int64
	Path   string
}

// ExactGroup is a set of files sharing identical size and BLAKE3 content
// hash. Label follows a "{size} bytes · {hash[0..12]}" format.
type ExactGroup struct {
	Label     string
	SizeBytes int64
	Blake3Hex string
	Files     []ExactFile
}

// ExactGroups returns duplicate groups ordered by reclaimable size
// (size*count) descending, then hash ascending, paginated by
// (limit, offset); limit<=0 returns every group. Groups with fewer than
// two members are never returned.
func ExactGroups(db *sql.DB, limit, offset int) ([]ExactGroup, error) {
	rows, err := db.Query(`
		SELECT size_bytes, blake3_hex, COUNT(*) AS cnt
		FROM file
		GROUP BY size_bytes, blake3_hex
		HAVING COUNT(*) >= 2
		ORDER BY size_bytes * COUNT(*) DESC, blake3_hex ASC
		LIMIT ? OFFSET ?`, sqlLimit(limit), offset)
	if err != nil {
		return nil, scanerr.New("query.ExactGroups", scanerr.Internal, err)
	}
	defer rows.Close()

	type key struct {
		size int64
		hash string
	}
	var keys []key
	for rows.Next() {
		var k key
		var cnt int
		if err := rows.Scan(&k.size, &k.hash, &cnt); err != nil {
			return nil, scanerr.New("query.ExactGroups", scanerr.Internal, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, scanerr.New("query.ExactGroups", scanerr.Internal, err)
	}

	groups := make([]ExactGroup, 0, len(keys))
	for _, k := range keys {
		members, err := exactGroupMembers(db, k.size, k.hash)
		if err != nil {
			return nil, err
		}
		groups = append(groups, ExactGroup{
			Label:     exactLabel(k.size, k.hash),
			SizeBytes: k.size,
			Blake3Hex: k.hash,
			Files:     members,
		})
	}
	return groups, nil
}

func exactGroupMembers(db *sql.DB, size int64, hash string) ([]ExactFile, error) {
	rows, err := db.Query(`
		SELECT id, path FROM file WHERE size_bytes = ? AND blake3_hex = ? ORDER BY path ASC`,
		size, hash)
	if err != nil {
		return nil, scanerr.New("query.exactGroupMembers", scanerr.Internal, err)
	}
	defer rows.Close()

	var files []ExactFile
	for rows.Next() {
		var f ExactFile
		if err := rows.Scan(&f.FileID, &f.Path); err != nil {
			return nil, scanerr.New("query.exactGroupMembers", scanerr.Internal, err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// sqlLimit translates the package's "limit<=0 means all" convention into
// SQLite's own: a negative LIMIT disables the clause entirely.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func exactLabel(size int64, hash string) string {
	prefix := hash
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	return fmt.Sprintf("%d bytes · %s", size, prefix)
}

// Row is one `file` row as returned by the flat listing query,
// independent of any duplicate grouping.
type Row struct {
	FileID       int64
	Path         string
	SizeBytes    int64
	MediaClass   string
	Blake3Hex    string
	SHA256Hex    string
	MTimeMs      int64
	IngestedAtMs int64
	IsDuplicate  bool
}

// ListRows returns a flat, paginated view of every ingested file, ordered
// by path ascending; limit<=0 returns every row. When duplicatesOnly is
// true, only files whose (size_bytes, blake3_hex) is shared by at least
// one other file are returned — a file unique in its own right is present
// in this view with duplicatesOnly unset, but drops out once it is set.
func ListRows(db *sql.DB, duplicatesOnly bool, limit, offset int) ([]Row, error) {
	query := `
		SELECT f.id, f.path, f.size_bytes, f.file_type, f.blake3_hex, f.sha256_hex,
		       f.mtime_ms, f.ingested_at_ms,
		       EXISTS (
		           SELECT 1 FROM file f2
		           WHERE f2.size_bytes = f.size_bytes AND f2.blake3_hex = f.blake3_hex AND f2.id != f.id
		       ) AS is_duplicate
		FROM file f`
	if duplicatesOnly {
		query += ` WHERE EXISTS (
			SELECT 1 FROM file f2
			WHERE f2.size_bytes = f.size_bytes AND f2.blake3_hex = f.blake3_hex AND f2.id != f.id
		)`
	}
	query += ` ORDER BY f.path ASC LIMIT ? OFFSET ?`

	rows, err := db.Query(query, sqlLimit(limit), offset)
	if err != nil {
		return nil, scanerr.New("query.ListRows", scanerr.Internal, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var isDup int
		if err := rows.Scan(&r.FileID, &r.Path, &r.SizeBytes, &r.MediaClass, &r.Blake3Hex, &r.SHA256Hex,
			&r.MTimeMs, &r.IngestedAtMs, &isDup); err != nil {
			return nil, scanerr.New("query.ListRows", scanerr.Internal, err)
		}
		r.IsDuplicate = isDup != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// SnapshotRow is one `snapshot` row as returned by
// fileset_list_snapshots_by_path.
type SnapshotRow struct {
	Idx        int
	Count      int
	AtMs       int64
	DurationMs *int64
	AHash      *uint64
	DHash      *uint64
	PHash      *uint64
}

// SnapshotsByPath returns every snapshot row for the file at path,
// ordered by snapshot index ascending. A path matching no file, or a
// file with no snapshots, returns an empty slice.
func SnapshotsByPath(db *sql.DB, path string) ([]SnapshotRow, error) {
	var fileID int64
	err := db.QueryRow(`SELECT id FROM file WHERE path = ?`, path).Scan(&fileID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, scanerr.New("query.SnapshotsByPath", scanerr.Internal, err)
	}

	rows, err := db.Query(`
		SELECT idx, cnt, at_ms, duration_ms, ahash, dhash, phash
		FROM snapshot WHERE file_id = ? ORDER BY idx ASC`, fileID)
	if err != nil {
		return nil, scanerr.New("query.SnapshotsByPath", scanerr.Internal, err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var durationMs sql.NullInt64
		var ahash, dhash, phash sql.NullInt64
		if err := rows.Scan(&r.Idx, &r.Count, &r.AtMs, &durationMs, &ahash, &dhash, &phash); err != nil {
			return nil, scanerr.New("query.SnapshotsByPath", scanerr.Internal, err)
		}
		if durationMs.Valid {
			r.DurationMs = &durationMs.Int64
		}
		r.AHash = nullableHash(ahash)
		r.DHash = nullableHash(dhash)
		r.PHash = nullableHash(phash)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DirectMatches returns every other file sharing fileID's content hash
// (blake3 preferred, falling back to sha256), ordered by path — the
// single-file "what else matches this one" query.
func DirectMatches(db *sql.DB, fileID int64) ([]ExactFile, error) {
	var blake3Hex, sha256Hex string
	err := db.QueryRow(`SELECT blake3_hex, sha256_hex FROM file WHERE id = ?`, fileID).Scan(&blake3Hex, &sha256Hex)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, scanerr.New("query.DirectMatches", scanerr.Internal, err)
	}

	column, hash := "blake3_hex", blake3Hex
	if hash == "" {
		column, hash = "sha256_hex", sha256Hex
	}
	if hash == "" {
		return nil, nil
	}

	rows, err := db.Query(
		`SELECT id, path FROM file WHERE `+column+` = ? AND id != ? ORDER BY path ASC`,
		hash, fileID)
	if err != nil {
		return nil, scanerr.New("query.DirectMatches", scanerr.Internal, err)
	}
	defer rows.Close()

	var files []ExactFile
	for rows.Next() {
		var f ExactFile
		if err := rows.Scan(&f.FileID, &f.Path); err != nil {
			return nil, scanerr.New("query.DirectMatches", scanerr.Internal, err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
