package game

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/magefree/solitaire-server-go/internal/game/pile"
	"golang.org/x/crypto/blake2b"
)

// Checksum is a deterministic BLAKE2b-256 fingerprint of s, hex encoded. Clients compare it
// with their local copy to detect a diverged board.
func (s *State) Checksum() string {
	sum := blake2b.Sum256(s.canonicalRepresentation())
	return hex.EncodeToString(sum[:])
}

// canonicalRepresentation writes every pile in table order. Pile order is significant, so
// unlike map-backed state nothing is sorted here.
func (s *State) canonicalRepresentation() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "SCORE:%d\n", s.Score)
	s.eachPile(func(ref pile.Ref, p pile.Pile) {
		buf.WriteString(ref.String())
		buf.WriteByte(':')
		for i, c := range p {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(c.ID())
			if c.FaceUp {
				buf.WriteString("+")
			} else {
				buf.WriteString("-")
			}
		}
		buf.WriteByte('\n')
	})
	return buf.Bytes()
}
