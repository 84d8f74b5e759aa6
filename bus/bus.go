// Package bus is the in-process announcement channel a Device publishes its
// lifecycle, registration and deep-sleep transitions onto (spec §3's
// "upper-layer feature modules are the expected subscribers"). Subscribers
// attach to a dot-path-like Topic, optionally containing the bus's
// single-token ("+") or remainder ("#") wildcards, and late subscribers to a
// retained topic immediately receive its last value instead of waiting for
// the next publish — the same retained-message convention the device's own
// state topics rely on ("is CMUX up right now" should never require racing
// the next transition to find out).
package bus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
)

const defaultQueueLen = 3

// Token is one path segment of a Topic. Any comparable value works; string
// and integer handles (as device.go uses for its "device", Handle, ...
// topics) are the common case.
type Token any

// Topic is an ordered sequence of Tokens, matched segment by segment against
// subscriptions and retained messages.
type Topic []Token

// T builds a Topic from its arguments, panicking immediately if any token is
// not usable as a map key — better to fail at the call site than to fail
// silently deep inside the topic trie later.
func T(tokens ...Token) Topic {
	for _, tok := range tokens {
		switch tok.(type) {
		case string, int, int32, int64, uint, uint32, uint64, uintptr:
			continue
		}
		_ = map[Token]struct{}{tok: {}}
	}
	return Topic(tokens)
}

// Message is one published event: its Topic, an arbitrary Payload, whether
// it should be retained for late subscribers, and an optional ReplyTo topic
// for the request/reply helpers below.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
	ID       uint32
}

func randomToken() string {
	var raw [16]byte
	_, _ = rand.Read(raw[:])
	return hex.EncodeToString(raw[:])
}

// Subscription is a live attachment to one Topic pattern. Messages matching
// it arrive on Channel until Unsubscribe (directly, or via the owning
// Connection's Disconnect) closes it.
type Subscription struct {
	pattern Topic
	deliver chan *Message
	owner   *Connection
}

func (s *Subscription) Topic() Topic             { return s.pattern }
func (s *Subscription) Channel() <-chan *Message { return s.deliver }
func (s *Subscription) Unsubscribe()             { s.owner.Unsubscribe(s) }

// trieNode is one segment of the topic tree, shared between live
// subscriptions and retained messages: a Topic's tokens walk the same path
// whether the node at the end holds subscribers, a retained Message, or
// both.
type trieNode struct {
	children map[Token]*trieNode
	subs     []*Subscription
	retained *Message
}

func (n *trieNode) child(t Token) *trieNode {
	if n.children == nil {
		n.children = make(map[Token]*trieNode)
	}
	c := n.children[t]
	if c == nil {
		c = &trieNode{}
		n.children[t] = c
	}
	return c
}

func (n *trieNode) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0 && n.retained == nil
}

// Options configures a Bus beyond NewBus's defaults.
type Options struct {
	QueueLen       int
	SingleWildcard Token // matches exactly one segment; defaults to "+"
	MultiWildcard  Token // matches the remainder of a topic (zero or more segments); defaults to "#"
}

// Bus is a topic-tree pub/sub registry with retained-message support. The
// zero value is not usable; construct with NewBus or NewBusWithOptions.
type Bus struct {
	mu        sync.Mutex
	root      *trieNode
	queueLen  int
	single    Token
	multi     Token
	lastMsgID atomic.Uint32
}

// NewBus returns a Bus whose subscriptions buffer queueLen messages (below
// 1, defaultQueueLen is used) and whose wildcards are the conventional "+"/
// "#" pair.
func NewBus(queueLen int) *Bus {
	return NewBusWithOptions(Options{QueueLen: queueLen, SingleWildcard: "+", MultiWildcard: "#"})
}

// NewBusWithOptions returns a Bus configured by o, filling in defaults for
// any zero field.
func NewBusWithOptions(o Options) *Bus {
	if o.QueueLen <= 0 {
		o.QueueLen = defaultQueueLen
	}
	if o.SingleWildcard == nil {
		o.SingleWildcard = "+"
	}
	if o.MultiWildcard == nil {
		o.MultiWildcard = "#"
	}
	return &Bus{root: &trieNode{}, queueLen: o.QueueLen, single: o.SingleWildcard, multi: o.MultiWildcard}
}

// NewMessage builds a Message stamped with the bus's own monotonic ID
// counter, ready to pass to Publish.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained, ID: b.lastMsgID.Add(1)}
}

// Publish delivers msg to every subscription whose pattern matches its
// topic, then (if Retained) stores or clears that topic's retained value:
// a nil Payload on a retained publish clears it, matching the MQTT
// convention this bus's retained-message semantics are modeled on.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	var targets []*Subscription
	b.matchSubscribers(b.root, msg.Topic, &targets)
	if msg.Retained {
		if msg.Payload == nil {
			b.clearRetained(msg.Topic)
		} else {
			b.setRetained(msg)
		}
	}
	b.mu.Unlock()

	for _, sub := range targets {
		deliverBestEffort(sub.deliver, msg)
	}
}

// deliverBestEffort tries a non-blocking send; if the subscriber's queue is
// full it drops the oldest pending message to make room rather than stall
// the publisher, since a slow subscriber must never hold up device state
// announcements for everyone else.
func deliverBestEffort(ch chan *Message, m *Message) {
	defer func() { recover() }() // ch may have raced a concurrent Unsubscribe close

	select {
	case ch <- m:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- m:
	default:
	}
}

func (b *Bus) subscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	n := b.root
	for _, tok := range topic {
		n = n.child(tok)
	}
	n.subs = append(n.subs, sub)

	var catchUp []*Message
	b.matchRetained(b.root, topic, &catchUp)
	b.mu.Unlock()

	for _, m := range catchUp {
		deliverBestEffort(sub.deliver, m)
	}
}

func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path, ok := b.walk(topic)
	if !ok {
		return
	}
	leaf := path[len(path)-1]
	leaf.subs = removeSubscription(leaf.subs, sub)
	b.prune(path, topic)
}

// walk returns the chain of nodes from root to the node at topic
// (inclusive), or ok=false if any segment is missing.
func (b *Bus) walk(topic Topic) (chain []*trieNode, ok bool) {
	n := b.root
	chain = make([]*trieNode, 0, len(topic)+1)
	chain = append(chain, n)
	for _, tok := range topic {
		if n.children == nil {
			return nil, false
		}
		next := n.children[tok]
		if next == nil {
			return nil, false
		}
		chain = append(chain, next)
		n = next
	}
	return chain, true
}

// prune removes now-empty nodes working back up chain, stopping at the
// first node still holding subscribers, children, or a retained message.
func (b *Bus) prune(chain []*trieNode, topic Topic) {
	for i := len(topic) - 1; i >= 0; i-- {
		parent, key, leaf := chain[i], topic[i], chain[i+1]
		if !leaf.empty() {
			return
		}
		delete(parent.children, key)
	}
}

// matchSubscribers appends every subscription whose pattern matches topic,
// walking both branches ("exact segment" and the single-wildcard) wherever
// the trie offers them, plus any multi-wildcard node at each level (it
// matches the remainder regardless of depth).
func (b *Bus) matchSubscribers(n *trieNode, topic Topic, out *[]*Subscription) {
	if n == nil {
		return
	}
	if len(topic) == 0 {
		*out = append(*out, n.subs...)
		if n.children != nil {
			if mw := n.children[b.multi]; mw != nil {
				*out = append(*out, mw.subs...)
			}
		}
		return
	}
	if n.children == nil {
		return
	}
	if exact := n.children[topic[0]]; exact != nil {
		b.matchSubscribers(exact, topic[1:], out)
	}
	if sw := n.children[b.single]; sw != nil {
		b.matchSubscribers(sw, topic[1:], out)
	}
	if mw := n.children[b.multi]; mw != nil {
		*out = append(*out, mw.subs...)
	}
}

func (b *Bus) setRetained(msg *Message) {
	n := b.root
	for _, tok := range msg.Topic {
		n = n.child(tok)
	}
	n.retained = msg
}

func (b *Bus) clearRetained(topic Topic) {
	chain, ok := b.walk(topic)
	if !ok {
		return
	}
	chain[len(chain)-1].retained = nil
	b.prune(chain, topic)
}

// matchRetained appends every retained message whose topic matches pattern,
// where pattern may itself contain wildcards (a subscriber's pattern,
// looking for existing retained values to catch up on).
func (b *Bus) matchRetained(n *trieNode, pattern Topic, out *[]*Message) {
	if n == nil {
		return
	}
	if len(pattern) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch pattern[0] {
	case b.multi:
		b.collectAllRetained(n, out)
	case b.single:
		for _, child := range n.children {
			b.matchRetained(child, pattern[1:], out)
		}
	default:
		if child := n.children[pattern[0]]; child != nil {
			b.matchRetained(child, pattern[1:], out)
		}
	}
}

func (b *Bus) collectAllRetained(n *trieNode, out *[]*Message) {
	if n == nil {
		return
	}
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for _, child := range n.children {
		b.collectAllRetained(child, out)
	}
}

func removeSubscription(list []*Subscription, target *Subscription) []*Subscription {
	for i, s := range list {
		if s == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Connection groups the subscriptions made through it so a single
// Disconnect call can tear all of them down together, the unit a device or
// feature module attaches to the Bus as.
type Connection struct {
	bus  *Bus
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection returns a Connection bound to b. id is accepted for the
// caller's own bookkeeping/logging; the bus itself does not key anything by
// it.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b}
}

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe attaches to topic, immediately receiving any already-retained
// message under it before any new publish.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{pattern: topic, deliver: make(chan *Message, c.bus.queueLen), owner: c}
	c.bus.subscribe(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.pattern, sub)
	c.mu.Lock()
	c.subs = removeSubscription(c.subs, sub)
	c.mu.Unlock()
	close(sub.deliver)
}

// Disconnect tears down every subscription this Connection still owns.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.pattern, sub)
		close(sub.deliver)
	}
}

// Request publishes msg (stamping a fresh unique ReplyTo topic if it has
// none) and returns the subscription listening for the reply; the caller
// reads sub.Channel() directly, or uses RequestWait for the common
// block-with-timeout case.
func (c *Connection) Request(msg *Message) *Subscription {
	if len(msg.ReplyTo) == 0 {
		msg.ReplyTo = T(randomToken())
	}
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait is Request plus a blocking wait for exactly one reply,
// unsubscribing once it arrives (or ctx ends).
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)

	select {
	case reply := <-sub.deliver:
		if reply == nil {
			return nil, errors.New("bus: subscription closed before a reply arrived")
		}
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply publishes payload under to's ReplyTo topic; a no-op if to carries
// no ReplyTo (it wasn't a Request).
func (c *Connection) Reply(to *Message, payload any, retained bool) {
	if len(to.ReplyTo) == 0 {
		return
	}
	c.Publish(c.bus.NewMessage(to.ReplyTo, payload, retained))
}
