package bus

import (
	"log"
	"time"

	"navcore/scheduler"
)

// NowMs returns the current wall-clock time in milliseconds, the timestamp
// used when constructing outgoing messages.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// Consumer is implemented by any component that wants to receive messages of
// one or more kinds from a Hub.
type Consumer interface {
	// Consumed returns the message kinds this consumer wants delivered to Receive.
	// Queried once, when the consumer is added to a Hub.
	Consumed() []MessageID
	// Receive handles a single delivered message.
	Receive(msg Message)
}

// Publisher is embedded by components that need to deliver messages onto a Hub.
type Publisher struct {
	Hub *Hub
}

// Deliver publishes msg onto the embedded Hub.
func (p *Publisher) Deliver(msg Message) {
	p.Hub.Deliver(msg)
}

// Hub is the in-process publish/subscribe message bus. Deliver appends to a
// pending FIFO and, if no flush is already scheduled, enqueues a zero-delay
// flush task so that publication during dispatch lands in the next batch
// rather than recursing into the current one.
type Hub struct {
	sched       *scheduler.Scheduler
	consumers   map[MessageID][]Consumer
	pending     []Message
	flushHandle *scheduler.Handle
}

// NewHub returns a Hub that schedules its flush tasks on sched.
func NewHub(sched *scheduler.Scheduler) *Hub {
	return &Hub{
		sched:     sched,
		consumers: make(map[MessageID][]Consumer),
	}
}

// AddConsumer indexes consumer against the message kinds it declares via
// Consumed. Subscribing after dispatch has begun is legal; the new consumer
// only observes messages published from the next batch onward.
func (h *Hub) AddConsumer(consumer Consumer) {
	for _, id := range consumer.Consumed() {
		h.consumers[id] = append(h.consumers[id], consumer)
	}
}

// Deliver appends msg to the pending queue, scheduling a flush if one is not
// already pending.
func (h *Hub) Deliver(msg Message) {
	h.pending = append(h.pending, msg)
	if h.flushHandle == nil {
		h.flushHandle = h.sched.Delay(func(*scheduler.Handle) { h.flush() }, 0)
	}
}

// flush atomically swaps out the pending queue and dispatches each message to
// its subscribers in publication order, in subscription order. A panicking
// subscriber is recovered and logged; dispatch continues with the next
// subscriber.
func (h *Hub) flush() {
	h.flushHandle = nil
	messages := h.pending
	h.pending = nil

	for _, msg := range messages {
		for _, consumer := range h.consumers[msg.ID()] {
			h.dispatch(consumer, msg)
		}
	}
}

func (h *Hub) dispatch(consumer Consumer, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bus: consumer panicked handling message %d: %v", msg.ID(), r)
		}
	}()
	consumer.Receive(msg)
}
