package game

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"tunnelrun.ai/internal/sim/kernel/model"
)

// Digest hashes the observable match state. Two games fed the same keys from the
// same seed produce the same digest every tick.
func (g *Game) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, int64(g.state))
	digestWriteI64(h, &tmp, int64(g.level))
	digestWriteI64(h, &tmp, int64(g.step))
	digestWriteI64(h, &tmp, int64(g.score))
	if g.player != nil {
		digestWriteI64(h, &tmp, int64(g.player.Lives()))
		digestWritePoint(h, &tmp, g.player.Pos())
		digestWriteI64(h, &tmp, int64(g.player.Direction()))
	}

	digestWriteI64(h, &tmp, int64(len(g.enemies)))
	for _, e := range g.enemies {
		h.Write([]byte(e.ID()))
		h.Write([]byte(e.Kind()))
		digestWritePoint(h, &tmp, e.Pos())
	}
	digestWriteI64(h, &tmp, int64(len(g.rocks)))
	for _, r := range g.rocks {
		h.Write([]byte(r.ID()))
		digestWritePoint(h, &tmp, r.Pos())
	}

	digestWriteI64(h, &tmp, int64(g.rope.Direction()))
	for _, p := range g.rope.cells {
		digestWritePoint(h, &tmp, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	h.Write(tmp[:])
}

func digestWritePoint(h hash.Hash, tmp *[8]byte, p model.Point) {
	digestWriteI64(h, tmp, int64(p.X))
	digestWriteI64(h, tmp, int64(p.Y))
}
