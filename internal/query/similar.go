package query

import (
	"database/sql"
	"sort"

	"github.com/mnj/dupdupninja-v2/internal/scanerr"
)

// SimilarOptions bounds the near-duplicate clustering.
type SimilarOptions struct {
	// PHashMaxDistance gates cluster membership, clamped to [1,32].
	// Default 8.
	PHashMaxDistance int
	// DHashMaxDistance and AHashMaxDistance additionally filter a pHash-
	// qualifying pair: a pair missing either hash on either side passes
	// that check by default. Both clamped to [1,32], default 8.
	DHashMaxDistance int
	AHashMaxDistance int
}

func (o SimilarOptions) clamped() SimilarOptions {
	clamp := func(v int) int {
		if v < 1 {
			return 8
		}
		if v > 32 {
			return 32
		}
		return v
	}
	return SimilarOptions{
		PHashMaxDistance: clamp(o.PHashMaxDistance),
		DHashMaxDistance: clamp(o.DHashMaxDistance),
		AHashMaxDistance: clamp(o.AHashMaxDistance),
	}
}

// SimilarMember is one record (an image file, or one video snapshot) in a
// near-duplicate cluster, with its distances and confidence relative to
// the cluster's base record. Candidates are built from image_hash.phash
// and each snapshot's phash.
type SimilarMember struct {
	FileID        int64
	Path          string
	IsSnapshot    bool
	SnapshotIndex int // meaningful only when IsSnapshot
	PHashDistance int
	DHashDistance int
	AHashDistance int
	ConfidencePct float64
	IsBase        bool
}

// SimilarGroup is one cluster of near-duplicate images and/or video
// snapshots.
type SimilarGroup struct {
	BaseFileID int64
	Members    []SimilarMember
}

// phashRow is one candidate record for similar-group clustering: either an
// image_hash row (SnapshotIndex < 0) or a snapshot row.
type phashRow struct {
	fileID        int64
	path          string
	snapshotIndex int
	ahash         *uint64
	dhash         *uint64
	phash         *uint64
}

func (r phashRow) isSnapshot() bool { return r.snapshotIndex >= 0 }

// SimilarGroups clusters every image file and video snapshot with a
// non-null pHash into connected components under the given thresholds,
// using a BK-tree to avoid an all-pairs scan. Confidence follows
// `min(99.99, (64-dist)/64*100)` applied to each
// member's pHash distance from its cluster's base record. Results are
// ordered by base file id ascending and paginated by (limit, offset) over
// groups, mirroring ExactGroups' pagination contract.
func SimilarGroups(db *sql.DB, limit, offset int, opts SimilarOptions) ([]SimilarGroup, error) {
	opts = opts.clamped()

	rows, err := loadPHashRows(db)
	if err != nil {
		return nil, err
	}

	tree := newBKTree()
	for i, r := range rows {
		if r.phash != nil {
			tree.insert(*r.phash, i)
		}
	}

	uf := newUnionFind(len(rows))
	for i, r := range rows {
		if r.phash == nil {
			continue
		}
		for _, j := range tree.query(*r.phash, opts.PHashMaxDistance) {
			if j <= i {
				continue
			}
			if pairQualifies(r, rows[j], opts) {
				uf.union(i, j)
			}
		}
	}

	clusters := make(map[int][]int)
	for i, r := range rows {
		if r.phash == nil {
			continue
		}
		root := uf.find(i)
		clusters[root] = append(clusters[root], i)
	}

	var groups []SimilarGroup
	for _, members := range clusters {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(a, b int) bool {
			ra, rb := rows[members[a]], rows[members[b]]
			if ra.fileID != rb.fileID {
				return ra.fileID < rb.fileID
			}
			return ra.snapshotIndex < rb.snapshotIndex
		})
		baseIdx := medoid(members, rows)
		base := rows[baseIdx]
		group := SimilarGroup{BaseFileID: base.fileID}
		for _, idx := range members {
			r := rows[idx]
			m := SimilarMember{
				FileID:        r.fileID,
				Path:          r.path,
				IsSnapshot:    r.isSnapshot(),
				SnapshotIndex: r.snapshotIndex,
				IsBase:        idx == baseIdx,
			}
			m.PHashDistance = hashDistance(base.phash, r.phash)
			m.DHashDistance = hashDistance(base.dhash, r.dhash)
			m.AHashDistance = hashDistance(base.ahash, r.ahash)
			m.ConfidencePct = confidencePercent(m.PHashDistance)
			group.Members = append(group.Members, m)
		}
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].BaseFileID < groups[j].BaseFileID })

	if offset > len(groups) {
		offset = len(groups)
	}
	groups = groups[offset:]
	if limit > 0 && limit < len(groups) {
		groups = groups[:limit]
	}
	return groups, nil
}

// medoid picks the cluster representative: the row with the smallest
// summed pHash distance to every other member, not merely the lowest
// (fileID, snapshotIndex). members is already sorted by
// (fileID, snapshotIndex), which only breaks ties among equally-central
// rows, keeping the result deterministic.
func medoid(members []int, rows []phashRow) int {
	best := members[0]
	bestSum := -1
	for _, i := range members {
		sum := 0
		for _, j := range members {
			if i == j {
				continue
			}
			sum += hashDistance(rows[i].phash, rows[j].phash)
		}
		if bestSum == -1 || sum < bestSum {
			bestSum = sum
			best = i
		}
	}
	return best
}

func pairQualifies(a, b phashRow, opts SimilarOptions) bool {
	if a.dhash != nil && b.dhash != nil {
		if hamming64(*a.dhash, *b.dhash) > opts.DHashMaxDistance {
			return false
		}
	}
	if a.ahash != nil && b.ahash != nil {
		if hamming64(*a.ahash, *b.ahash) > opts.AHashMaxDistance {
			return false
		}
	}
	return true
}

// hashDistance returns the Hamming distance between two optional hashes,
// or 64 (maximally dissimilar) when either side is missing.
func hashDistance(a, b *uint64) int {
	if a == nil || b == nil {
		return 64
	}
	return hamming64(*a, *b)
}

// confidencePercent implements `min(99.99, (64-dist)/64*100)`,
// left-to-right.
func confidencePercent(dist int) float64 {
	similarity := float64(64-dist) / 64.0 * 100.0
	if similarity > 99.99 {
		return 99.99
	}
	if similarity < 0 {
		return 0
	}
	return similarity
}

// loadPHashRows loads every candidate record for clustering: one row per
// image file (snapshotIndex -1) plus one row per video snapshot that has
// a non-null pHash.
func loadPHashRows(db *sql.DB) ([]phashRow, error) {
	imageRows, err := loadImageRows(db)
	if err != nil {
		return nil, err
	}
	snapRows, err := loadSnapshotPHashRows(db)
	if err != nil {
		return nil, err
	}
	return append(imageRows, snapRows...), nil
}

func loadImageRows(db *sql.DB) ([]phashRow, error) {
	rows, err := db.Query(`
		SELECT f.id, f.path, ih.ahash, ih.dhash, ih.phash
		FROM file f
		JOIN image_hash ih ON ih.file_id = f.id
		WHERE ih.phash IS NOT NULL`)
	if err != nil {
		return nil, scanerr.New("query.loadImageRows", scanerr.Internal, err)
	}
	defer rows.Close()

	var out []phashRow
	for rows.Next() {
		r := phashRow{snapshotIndex: -1}
		var ahash, dhash, phash sql.NullInt64
		if err := rows.Scan(&r.fileID, &r.path, &ahash, &dhash, &phash); err != nil {
			return nil, scanerr.New("query.loadImageRows", scanerr.Internal, err)
		}
		r.ahash = nullableHash(ahash)
		r.dhash = nullableHash(dhash)
		r.phash = nullableHash(phash)
		out = append(out, r)
	}
	return out, rows.Err()
}

func loadSnapshotPHashRows(db *sql.DB) ([]phashRow, error) {
	rows, err := db.Query(`
		SELECT f.id, f.path, s.idx, s.ahash, s.dhash, s.phash
		FROM file f
		JOIN snapshot s ON s.file_id = f.id
		WHERE s.phash IS NOT NULL`)
	if err != nil {
		return nil, scanerr.New("query.loadSnapshotPHashRows", scanerr.Internal, err)
	}
	defer rows.Close()

	var out []phashRow
	for rows.Next() {
		var r phashRow
		var ahash, dhash, phash sql.NullInt64
		if err := rows.Scan(&r.fileID, &r.path, &r.snapshotIndex, &ahash, &dhash, &phash); err != nil {
			return nil, scanerr.New("query.loadSnapshotPHashRows", scanerr.Internal, err)
		}
		r.ahash = nullableHash(ahash)
		r.dhash = nullableHash(dhash)
		r.phash = nullableHash(phash)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullableHash(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}

// unionFind is a standard disjoint-set forest with path compression and
// union by rank, used to merge pHash-qualifying pairs into clusters.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
