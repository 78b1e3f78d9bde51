package kitchen

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// stateDigest hashes everything that affects future ticks. Resume tokens,
// client connections and highlight flags are presentation state and left out.
func (k *Kitchen) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	k.digestHeader(h, &tmp, nowTick)
	k.digestEntities(h, &tmp)
	k.digestPlayers(h, &tmp)
	k.digestStations(h, &tmp)
	k.digestCustomers(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteVec(h hashWriter, tmp *[8]byte, v [2]float64) {
	digestWriteF64(h, tmp, v[0])
	digestWriteF64(h, tmp, v[1])
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (k *Kitchen) digestHeader(h hashWriter, tmp *[8]byte, nowTick uint64) {
	digestWriteU64(h, tmp, nowTick)
	digestWriteI64(h, tmp, k.cfg.Seed)
	digestWriteU64(h, tmp, k.rng.State)
	digestWriteU64(h, tmp, k.clock)

	s := k.session
	digestWriteI64(h, tmp, int64(s.Score.Total()))
	h.Write([]byte{boolByte(s.Paused), boolByte(s.Timer.Over)})
	digestWriteU64(h, tmp, s.Timer.Remaining)
	digestWriteString(h, tmp, s.Timer.Outcome)
	for _, c := range s.Limits.Counts() {
		digestWriteString(h, tmp, c.Item)
		digestWriteI64(h, tmp, int64(c.Count))
	}

	digestWriteU64(h, tmp, k.nextEntityNum)
	digestWriteU64(h, tmp, k.nextPlayerNum)
	digestWriteU64(h, tmp, k.nextCustomerNum)
	digestWriteU64(h, tmp, k.spawnTask)
	digestWriteU64(h, tmp, k.sched.NextID())
	for _, t := range k.sched.Pending() {
		digestWriteU64(h, tmp, t.ID)
		digestWriteString(h, tmp, string(t.Kind))
		digestWriteString(h, tmp, t.Target)
		digestWriteU64(h, tmp, t.DueTick)
	}
}

func (k *Kitchen) digestEntities(h hashWriter, tmp *[8]byte) {
	for _, e := range k.sortedEntities() {
		digestWriteString(h, tmp, e.ID)
		digestWriteString(h, tmp, e.Item)
		digestWriteString(h, tmp, string(e.Owner))
		digestWriteString(h, tmp, e.OwnerRef)
		digestWriteVec(h, tmp, vec2(e.Pos))
		digestWriteVec(h, tmp, vec2(e.Facing))
		h.Write([]byte{boolByte(e.Simulated), boolByte(e.Stripped), boolByte(e.Tracked)})
		digestWriteI64(h, tmp, int64(e.Points))
		if f := e.Flee; f != nil {
			digestWriteString(h, tmp, string(f.Mode))
			digestWriteVec(h, tmp, vec2(f.Dir))
			digestWriteU64(h, tmp, f.WanderLeft)
			digestWriteString(h, tmp, f.Holder)
		}
	}
}

func (k *Kitchen) digestPlayers(h hashWriter, tmp *[8]byte) {
	for _, p := range k.sortedPlayers() {
		digestWriteString(h, tmp, p.ID)
		digestWriteVec(h, tmp, vec2(p.Pos))
		digestWriteVec(h, tmp, vec2(p.Facing))
		digestWriteVec(h, tmp, vec2(p.MoveDir))
		held := ""
		if p.Hand.held != nil {
			held = p.Hand.held.ID
		}
		digestWriteString(h, tmp, held)
		digestWriteString(h, tmp, p.TalkingTo)
	}
}

func (k *Kitchen) digestStations(h hashWriter, tmp *[8]byte) {
	for _, s := range k.sortedStations() {
		digestWriteString(h, tmp, s.ID)
		digestWriteU64(h, tmp, uint64(len(s.Accumulated)))
		for _, item := range s.Accumulated {
			digestWriteString(h, tmp, item)
		}
		h.Write([]byte{boolByte(s.Completed)})
		if s.Dish != nil {
			digestWriteString(h, tmp, s.Dish.ID)
		}
		if s.Holding != nil {
			digestWriteString(h, tmp, s.Holding.ID)
		}
		digestWriteU64(h, tmp, s.ReadyTick)
	}
}

func (k *Kitchen) digestCustomers(h hashWriter, tmp *[8]byte) {
	for _, c := range k.sortedCustomers() {
		digestWriteString(h, tmp, c.ID)
		digestWriteString(h, tmp, string(c.State))
		digestWriteVec(h, tmp, vec2(c.Pos))
		digestWriteString(h, tmp, c.Order)
		h.Write([]byte{boolByte(c.Served)})
		digestWriteString(h, tmp, c.TalkingTo)
		digestWriteU64(h, tmp, c.LeaveTask)
	}
}
