// Package contenthash implements a single streaming pass over a file's
// bytes that produces lowercase-hex BLAKE3-256 and SHA-256 digests.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/scanerr"
)

// bufferSize is the fixed read-chunk size used for streaming hashes.
const bufferSize = 256 * 1024

// Digest holds the two lowercase-hex content hashes of a file.
type Digest struct {
	Blake3Hex string
	SHA256Hex string
}

// File streams path's bytes through BLAKE3 and SHA-256 in one pass, checking
// tok between chunks. It never grows the heap per chunk beyond the fixed
// read buffer.
func File(path string, tok *cancel.Token) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, scanerr.New("contenthash.File", scanerr.Io, err)
	}
	defer f.Close()
	return Reader(f, tok)
}

// Reader streams r through BLAKE3 and SHA-256, checking tok between chunks.
func Reader(r io.Reader, tok *cancel.Token) (Digest, error) {
	b3 := blake3.New()
	sh := sha256.New()
	buf := make([]byte, bufferSize)

	for {
		if tok.Cancelled() {
			return Digest{}, scanerr.New("contenthash.Reader", scanerr.Cancelled, nil)
		}

		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			b3.Write(chunk) //nolint:errcheck // hash.Hash.Write never fails
			sh.Write(chunk) //nolint:errcheck
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Digest{}, scanerr.New("contenthash.Reader", scanerr.Io, err)
		}
	}

	return Digest{
		Blake3Hex: hex.EncodeToString(b3.Sum(nil)),
		SHA256Hex: hex.EncodeToString(sh.Sum(nil)),
	}, nil
}

// EmptyDigest is the known BLAKE3-256/SHA-256 pair for zero-byte input,
// used by boundary-behaviour tests.
func EmptyDigest() Digest {
	b3 := blake3.New()
	sh := sha256.New()
	return Digest{
		Blake3Hex: hex.EncodeToString(b3.Sum(nil)),
		SHA256Hex: hex.EncodeToString(sh.Sum(nil)),
	}
}

func (d Digest) String() string {
	return fmt.Sprintf("blake3:%s sha256:%s", d.Blake3Hex, d.SHA256Hex)
}
