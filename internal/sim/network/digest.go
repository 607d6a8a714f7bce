package network

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"shipsim.dev/internal/sim/value"
)

func (ns *Networks) stateDigest(tick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, tick)
	for _, name := range ns.names {
		n := ns.nets[name]
		digestWriteString(h, &tmp, name)
		digestWriteU64(h, &tmp, uint64(len(n.bus)))
		for _, g := range n.bus {
			digestWriteString(h, &tmp, g.Key())
			digestWriteValue(h, &tmp, g.Value)
		}
	}
	for _, r := range ns.relays {
		digestWriteString(h, &tmp, r.Src)
		digestWriteString(h, &tmp, r.Dst)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteString(h hash.Hash, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func digestWriteValue(h hash.Hash, tmp *[8]byte, v value.Value) {
	if s, ok := v.AsText(); ok {
		h.Write([]byte{1})
		digestWriteString(h, tmp, s)
		return
	}
	n, _ := v.AsInt()
	h.Write([]byte{0})
	digestWriteU64(h, tmp, uint64(n.Raw()))
}
