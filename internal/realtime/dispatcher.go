package realtime

import (
	"context"
	"sync"
	"time"
)

// Kind identifies the record family a subscription watches.
type Kind string

const (
	KindListings Kind = "listings"
	KindComments Kind = "comments"
	KindLikes    Kind = "likes"
)

// Topic is the filtered query shape a live subscription is keyed by.
// ListingID is empty for collection-wide listing watches.
type Topic struct {
	Kind      Kind
	ListingID string
}

// Notice tells a subscriber that records matching its topic changed.
// Subscribers re-query for the fresh record set.
type Notice struct {
	Topic Topic
	At    time.Time
}

// Dispatcher fans change notices out to live subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses that notice and catches
// up on the next one.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[Topic]map[int64]*subscriber
	nextID      int64
	bufferSize  int
}

type subscriber struct {
	id     int64
	stream chan Notice
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[Topic]map[int64]*subscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a live listener for the topic. The returned cancel
// function is idempotent; when the topic kind is empty the stream is
// closed immediately and cancel is a no-op.
func (d *Dispatcher) Subscribe(ctx context.Context, topic Topic) (<-chan Notice, func()) {
	if topic.Kind == "" {
		stream := make(chan Notice)
		close(stream)
		return stream, func() {}
	}
	sub := &subscriber{
		id:     d.nextSequence(),
		stream: make(chan Notice, d.bufferSize),
	}
	d.register(topic, sub)
	cancel := func() {
		d.unregister(topic, sub.id)
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return sub.stream, cancel
}

// Publish delivers a notice to every subscriber of its topic.
func (d *Dispatcher) Publish(notice Notice) {
	if notice.Topic.Kind == "" {
		return
	}
	d.mu.RLock()
	subs := d.subscribers[notice.Topic]
	if len(subs) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*subscriber, 0, len(subs))
	for _, sub := range subs {
		copies = append(copies, sub)
	}
	d.mu.RUnlock()
	for _, sub := range copies {
		select {
		case sub.stream <- notice:
		default:
		}
	}
}

func (d *Dispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *Dispatcher) register(topic Topic, sub *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[topic]; !ok {
		d.subscribers[topic] = make(map[int64]*subscriber)
	}
	d.subscribers[topic][sub.id] = sub
}

func (d *Dispatcher) unregister(topic Topic, subscriberID int64) {
	d.mu.Lock()
	subs := d.subscribers[topic]
	if subs != nil {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(d.subscribers, topic)
		}
	}
	d.mu.Unlock()
}
