package kitchen

type KitchenMetrics struct {
	Tick uint64 `json:"tick"`

	Players   int `json:"players"`
	Clients   int `json:"clients"`
	Observers int `json:"observers"`
	Entities  int `json:"entities"`
	Customers int `json:"customers"`

	Score      int     `json:"score"`
	RemainingS float64 `json:"remaining_s"`
	Paused     bool    `json:"paused"`
	Over       bool    `json:"over"`
	Outcome    string  `json:"outcome,omitempty"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox  int `json:"inbox"`
	Join   int `json:"join"`
	Leave  int `json:"leave"`
	Attach int `json:"attach"`
}

// Metrics returns the figures published at the end of the last tick. Safe to
// call from any goroutine.
func (k *Kitchen) Metrics() KitchenMetrics {
	if k == nil {
		return KitchenMetrics{}
	}
	m, _ := k.metrics.Load().(KitchenMetrics)
	return m
}

func (k *Kitchen) publishMetrics(nowTick uint64, stepMS float64) {
	t := k.session.Timer
	k.metrics.Store(KitchenMetrics{
		Tick:       nowTick,
		Players:    len(k.players),
		Clients:    len(k.clients),
		Observers:  len(k.observers),
		Entities:   len(k.entities),
		Customers:  len(k.customers),
		Score:      k.session.Score.Total(),
		RemainingS: float64(t.Remaining) * k.tun.Dt(),
		Paused:     k.session.Paused,
		Over:       t.Over,
		Outcome:    t.Outcome,
		QueueDepths: QueueDepths{
			Inbox:  len(k.inbox),
			Join:   len(k.join),
			Leave:  len(k.leave),
			Attach: len(k.attach),
		},
		StepMS: stepMS,
	})
}
