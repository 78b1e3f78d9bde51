package kitchen

import (
	"fmt"
	"sort"

	"github.com/jakecoffman/cp"

	"kitchenchaos.game/internal/protocol"
	"kitchenchaos.game/internal/sim/tasks"
)

type CustomerState string

const (
	CustomerArriving CustomerState = "ARRIVING"
	CustomerWaiting  CustomerState = "WAITING"
	CustomerLeaving  CustomerState = "LEAVING"
	CustomerGone     CustomerState = "GONE" // terminal; removed on entry
)

// Customer walks from the door to the counter, waits for a dish, then leaves.
type Customer struct {
	ID    string
	State CustomerState
	Pos   cp.Vector
	Order string

	Served    bool
	TalkingTo string // player with the open dialogue panel
	Panel     string // text on the open panel
	LeaveTask uint64
}

func (k *Kitchen) newCustomerID() string {
	k.nextCustomerNum++
	return fmt.Sprintf("C%04d", k.nextCustomerNum)
}

// spawnCustomer places a new customer at the door with a random order.
func (k *Kitchen) spawnCustomer() *Customer {
	orders := k.catalogs.Customers.Orders
	c := &Customer{
		ID:    k.newCustomerID(),
		State: CustomerArriving,
		Pos:   k.door,
		Order: orders[k.rng.Intn(len(orders))],
	}
	k.customers[c.ID] = c
	k.broadcast(protocol.Event{"t": k.tick.Load(), "type": "CUSTOMER_ARRIVING", "customer": c.ID})
	return c
}

// interactCustomer is a player pressing interact next to a customer.
func (k *Kitchen) interactCustomer(c *Customer, p *Player) Result {
	if c.State != CustomerWaiting || c.Served {
		return reject(protocol.ErrCustomerBusy, c.ID+" is not taking orders")
	}
	if c.TalkingTo != "" && c.TalkingTo != p.ID {
		// A dish in hand overrides another player's open order panel.
		if held := p.Hand.held; held == nil || held.Kind != KindDish {
			return reject(protocol.ErrCustomerBusy, c.ID+" is talking to "+c.TalkingTo)
		}
		k.closeDialogue(c)
	}
	if c.TalkingTo == p.ID {
		k.closeDialogue(c)
		return ok("closed dialogue")
	}

	cat := k.catalogs.Customers
	held := p.Hand.held
	switch {
	case held != nil && held.Kind == KindDish:
		return k.deliver(c, p, held)
	case held != nil:
		// Wrong item: the customer complains and keeps waiting.
		k.openDialogue(c, p, cat.WrongItemText)
		return ok(cat.WrongItemText)
	default:
		k.openDialogue(c, p, c.Order)
		return ok(c.Order)
	}
}

// deliver hands a dish to a waiting customer. The first dish always
// satisfies; the customer leaves after the configured delay.
func (k *Kitchen) deliver(c *Customer, p *Player, dish *Entity) Result {
	points := dish.Points
	c.Served = true
	k.transfer(dish, OwnerCustomer, c.ID, p.ID, "DELIVER")
	k.remove(dish, p.ID, "EATEN")
	if err := k.session.Score.Add(points, "DISH_DELIVERED:"+dish.Item, p.ID); err != nil {
		k.logf("deliver %s: %v", c.ID, err)
		points = 0
	}
	k.openDialogue(c, p, k.catalogs.Customers.SatisfiedText)

	c.LeaveTask = k.sched.At(k.clock+k.tun.Ticks(k.tun.Customer.LeaveDelayS), tasks.KindCustomerLeave, c.ID)
	k.broadcast(protocol.Event{
		"t":        k.tick.Load(),
		"type":     "CUSTOMER_SERVED",
		"customer": c.ID,
		"dish":     dish.Item,
		"points":   points,
		"by":       p.ID,
	})
	return ok(fmt.Sprintf("delivered %s for %d", dish.Item, points))
}

func (k *Kitchen) openDialogue(c *Customer, p *Player, text string) {
	c.TalkingTo = p.ID
	c.Panel = text
	p.TalkingTo = c.ID
	k.svc.Dialogue.Show(p.ID, c.ID, text)
}

func (k *Kitchen) closeDialogue(c *Customer) {
	if c.TalkingTo == "" {
		return
	}
	if p := k.players[c.TalkingTo]; p != nil && p.TalkingTo == c.ID {
		p.TalkingTo = ""
	}
	k.svc.Dialogue.Hide(c.TalkingTo, c.ID)
	c.TalkingTo = ""
	c.Panel = ""
}

// beginLeaving runs when the leave deadline elapses.
func (k *Kitchen) beginLeaving(c *Customer) {
	if c.State != CustomerWaiting {
		return
	}
	k.closeDialogue(c)
	c.State = CustomerLeaving
	c.LeaveTask = 0
}

// systemCustomers advances navigation for arriving and leaving customers.
func (k *Kitchen) systemCustomers() {
	ct := k.tun.Customer
	dt := k.tun.Dt()
	for _, c := range k.sortedCustomers() {
		switch c.State {
		case CustomerArriving:
			pos, arrived := k.svc.Navigator.Step(c.Pos, k.counter, ct.MoveSpeed, dt, ct.ArriveRadius)
			c.Pos = pos
			if arrived {
				c.State = CustomerWaiting
				k.broadcast(protocol.Event{"t": k.tick.Load(), "type": "CUSTOMER_WAITING", "customer": c.ID, "order": c.Order})
			}
		case CustomerLeaving:
			pos, arrived := k.svc.Navigator.Step(c.Pos, k.door, ct.MoveSpeed, dt, ct.ArriveRadius)
			c.Pos = pos
			if arrived {
				c.State = CustomerGone
				k.closeDialogue(c)
				delete(k.customers, c.ID)
				k.broadcast(protocol.Event{"t": k.tick.Load(), "type": "CUSTOMER_LEFT", "customer": c.ID})
			}
		}
	}
}

// runTasks fires every task whose deadline has passed on the sim clock.
func (k *Kitchen) runTasks(now uint64) {
	for _, t := range k.sched.Due(now) {
		switch t.Kind {
		case tasks.KindCustomerLeave:
			if c := k.customers[t.Target]; c != nil && c.LeaveTask == t.ID {
				k.beginLeaving(c)
			}
		case tasks.KindCustomerSpawn:
			if k.tun.Customer.MaxAlive > 0 && len(k.customers) < k.tun.Customer.MaxAlive {
				k.spawnCustomer()
			}
			if iv := k.tun.Ticks(k.tun.Customer.SpawnIntervalS); iv > 0 {
				k.spawnTask = k.sched.At(now+iv, tasks.KindCustomerSpawn, "")
			} else {
				k.spawnTask = 0
			}
		case tasks.KindCrateReady:
			if s := k.stations[t.Target]; s != nil && s.ReadyTick <= now {
				s.ReadyTick = 0
				k.broadcast(protocol.Event{"t": k.tick.Load(), "type": "CRATE_READY", "station": s.ID})
			}
		}
	}
}

// closePlayerDialogues closes every panel the player has open.
func (k *Kitchen) closePlayerDialogues(playerID string) {
	for _, c := range k.sortedCustomers() {
		if c.TalkingTo == playerID {
			k.closeDialogue(c)
		}
	}
}

// cancelCustomerTasks drops the pending leave deadlines and the spawner.
// Customers stay where they are once the round is over.
func (k *Kitchen) cancelCustomerTasks() {
	for _, c := range k.sortedCustomers() {
		if c.LeaveTask != 0 {
			k.sched.Cancel(c.LeaveTask)
			c.LeaveTask = 0
		}
	}
	if k.spawnTask != 0 {
		k.sched.Cancel(k.spawnTask)
		k.spawnTask = 0
	}
}

func (k *Kitchen) sortedCustomers() []*Customer {
	out := make([]*Customer, 0, len(k.customers))
	for _, c := range k.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
