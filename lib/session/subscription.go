package session

import (
	"sync"

	"projekt/control/lib/message"
)

// Subscription receives the events the daemon pushes after Subscribe was called.
// Events are buffered without limit, a slow subscriber never blocks the session.
type Subscription struct {
	session *Session
	events  chan message.Event
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once

	mutex sync.Mutex
	queue []message.Event
	ended bool
}

// Subscribe starts a subscription.
// It only sees events received after the call, there is no replay.
// Subscribing to a closed session returns a subscription whose channel is closed.
func (s *Session) Subscribe() *Subscription {
	sub := &Subscription{
		session: s,
		events:  make(chan message.Event),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.mutex.Lock()
	if s.state == Closed {
		sub.ended = true
	} else {
		s.subscriptions[sub] = struct{}{}
	}
	s.mutex.Unlock()
	go sub.run()
	return sub
}

// Events delivers the events in the order they were received.
// The channel is closed after the session closed and all queued events were delivered,
// or when the subscription is closed.
func (sub *Subscription) Events() <-chan message.Event {
	return sub.events
}

// Close ends the subscription. Queued events are dropped.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		s := sub.session
		s.mutex.Lock()
		delete(s.subscriptions, sub)
		s.mutex.Unlock()
		close(sub.done)
	})
}

func (sub *Subscription) push(event message.Event) {
	sub.mutex.Lock()
	sub.queue = append(sub.queue, event)
	sub.mutex.Unlock()
	sub.wake()
}

func (sub *Subscription) end() {
	sub.mutex.Lock()
	sub.ended = true
	sub.mutex.Unlock()
	sub.wake()
}

func (sub *Subscription) wake() {
	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

func (sub *Subscription) next() (event message.Event, ok bool, ended bool) {
	sub.mutex.Lock()
	defer sub.mutex.Unlock()
	if len(sub.queue) > 0 {
		event = sub.queue[0]
		sub.queue[0] = message.Event{}
		sub.queue = sub.queue[1:]
		return event, true, false
	}
	return event, false, sub.ended
}

func (sub *Subscription) run() {
	defer close(sub.events)
	for {
		event, ok, ended := sub.next()
		if ok {
			select {
			case sub.events <- event:
			case <-sub.done:
				return
			}
			continue
		}
		if ended {
			return
		}
		select {
		case <-sub.notify:
		case <-sub.done:
			return
		}
	}
}
