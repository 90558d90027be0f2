package wire

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// DigestPrefix names the hash in the printed form of a Digest.
const DigestPrefix = "blake3:"

// Digest is a BLAKE3-256 content digest of an encoded file.
type Digest [32]byte

// Sum computes the digest of data.
func Sum(data []byte) Digest {
	return blake3.Sum256(data)
}

// String returns the digest as lowercase hex, without DigestPrefix.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses a hex digest as printed by the compiler. The
// DigestPrefix is optional; any other prefix is rejected.
func ParseDigest(s string) (Digest, bool) {
	var d Digest
	s = strings.TrimPrefix(s, DigestPrefix)
	if hex.DecodedLen(len(s)) != len(d) {
		return d, false
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return Digest{}, false
	}
	return d, true
}
