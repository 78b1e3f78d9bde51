package kitchen

import (
	"fmt"
	"sort"
)

// Round outcomes.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFail    = "FAIL"
)

// Session is the per-round shared context handed to stations, customers and
// crates. It is created by the kitchen and lives exactly one round.
type Session struct {
	RoundID string
	Score   *ScoreBoard
	Limits  *Limits
	Timer   *RoundTimer
	Paused  bool
}

// ScoreBoard only ever grows.
type ScoreBoard struct {
	total int

	// onAward is called after every accepted award.
	onAward func(points int, reason, actor string)
}

func (s *ScoreBoard) Add(points int, reason, actor string) error {
	if points < 0 {
		return fmt.Errorf("score: negative award %d (%s)", points, reason)
	}
	if points == 0 {
		return nil
	}
	s.total += points
	if s.onAward != nil {
		s.onAward(points, reason, actor)
	}
	return nil
}

func (s *ScoreBoard) Total() int { return s.total }

// Limits caps how many live copies of an ingredient may exist. Items without a
// configured cap are unlimited.
type Limits struct {
	max map[string]int
	cur map[string]int
}

func NewLimits(max map[string]int) *Limits {
	l := &Limits{max: map[string]int{}, cur: map[string]int{}}
	l.SetMax(max)
	return l
}

// SetMax replaces the caps; live counts are kept.
func (l *Limits) SetMax(max map[string]int) {
	l.max = make(map[string]int, len(max))
	for k, v := range max {
		l.max[k] = v
	}
}

func (l *Limits) Limited(item string) bool {
	_, ok := l.max[item]
	return ok
}

func (l *Limits) CanSpawn(item string) bool {
	m, ok := l.max[item]
	if !ok {
		return true
	}
	return l.cur[item] < m
}

func (l *Limits) Register(item string) {
	if !l.Limited(item) {
		return
	}
	l.cur[item]++
}

func (l *Limits) Unregister(item string) {
	if l.cur[item] <= 1 {
		delete(l.cur, item)
		return
	}
	l.cur[item]--
}

func (l *Limits) Count(item string) int { return l.cur[item] }

// Counts returns the live counts sorted by item, for digests and snapshots.
func (l *Limits) Counts() []ItemCount {
	out := make([]ItemCount, 0, len(l.cur))
	for item, n := range l.cur {
		out = append(out, ItemCount{Item: item, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

type ItemCount struct {
	Item  string
	Count int
}

// RoundTimer counts a round down in ticks. A zero-length round never ends.
type RoundTimer struct {
	Total     uint64
	Remaining uint64
	Threshold int
	NextScene string

	Over    bool
	Outcome string
}

func NewRoundTimer(totalTicks uint64, threshold int, nextScene string) *RoundTimer {
	return &RoundTimer{
		Total:     totalTicks,
		Remaining: totalTicks,
		Threshold: threshold,
		NextScene: nextScene,
	}
}

// Tick advances the timer by one tick and reports whether the round ended on it.
func (t *RoundTimer) Tick(score int) bool {
	if t.Over || t.Total == 0 {
		return false
	}
	if t.Remaining > 0 {
		t.Remaining--
	}
	if t.Remaining > 0 {
		return false
	}
	t.Over = true
	if score >= t.Threshold {
		t.Outcome = OutcomeSuccess
	} else {
		t.Outcome = OutcomeFail
	}
	return true
}
