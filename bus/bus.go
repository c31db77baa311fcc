// Package bus is the in-process message fabric between the panel service and
// everything around it: button events out, environment reports and injected
// events in, retained panel state for late subscribers.
//
// Topics are exact paths; this firmware has a fixed, small topic set and
// needs no wildcard matching. Subscription queues are bounded and drop the
// oldest message when full, so a slow consumer can never stall a producer.
package bus

import (
	"strings"
	"sync"
)

// Topic is a fixed path, e.g. T("buttons", "event").
type Topic []string

// T builds a Topic from path elements.
func T(parts ...string) Topic { return Topic(parts) }

func (t Topic) String() string { return strings.Join(t, "/") }

// Message is one published datum.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// Subscription receives messages for one topic.
type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }

// Bus routes messages to exact-topic subscribers and keeps retained messages.
type Bus struct {
	mu       sync.Mutex
	subs     map[string][]*Subscription
	retained map[string]*Message
	qLen     int
}

// New creates a bus with the given per-subscription queue length.
func New(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		subs:     map[string][]*Subscription{},
		retained: map[string]*Message{},
		qLen:     queueLen,
	}
}

// NewMessage is a small constructor convenience.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers msg to all subscribers of its exact topic. A retained
// message replaces the stored one; a retained nil payload clears it.
func (b *Bus) Publish(msg *Message) {
	key := msg.Topic.String()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[key] {
		deliver(sub.ch, msg)
	}

	if msg.Retained {
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}
}

func deliver(ch chan *Message, msg *Message) {
	select {
	case ch <- msg:
	default:
		// Queue full: drop the oldest so the newest always lands.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- msg:
		default:
		}
	}
}

func (b *Bus) subscribe(sub *Subscription) {
	key := sub.topic.String()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[key] = append(b.subs[key], sub)
	if m := b.retained[key]; m != nil {
		deliver(sub.ch, m)
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	key := sub.topic.String()

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[key]
	for i, s := range list {
		if s == sub {
			b.subs[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[key]) == 0 {
		delete(b.subs, key)
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection is one client's view of the bus; it owns its subscriptions.
type Connection struct {
	bus  *Bus
	mu   sync.Mutex
	subs []*Subscription
	id   string
}

// NewConnection creates a connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

// NewMessage is a small constructor convenience.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.subscribe(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Well-known topics
// -----------------------------------------------------------------------------

// Topic paths used by the panel firmware. Kept here so producers and
// consumers cannot drift apart.
var (
	TopicButtonEvent = T("buttons", "event")
	TopicEnvReport   = T("env", "report")
	TopicPanelState  = T("panel", "state")
	TopicInject      = T("panel", "inject")
	TopicHeartbeat   = T("panel", "heartbeat")
)
