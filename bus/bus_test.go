package bus

import (
	"context"
	"sort"
	"testing"
	"time"
)

const (
	segConfig = "config"
	segGeo    = "geo"
)

func TestPublishDeliversToMatchingSubscriber(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(T(segConfig, segGeo))

	conn.Publish(conn.NewMessage(T(segConfig, segGeo), "hello", false))

	got := recvOrFail(t, sub, 100*time.Millisecond)
	if got.Payload.(string) != "hello" {
		t.Errorf("payload = %v, want %q", got.Payload, "hello")
	}
}

func TestRetainedMessageReachesLateSubscriber(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T(segConfig, segGeo), "persist", true))
	sub := conn.Subscribe(T(segConfig, segGeo))

	got := recvOrFail(t, sub, 100*time.Millisecond)
	if got.Payload.(string) != "persist" {
		t.Errorf("payload = %v, want %q", got.Payload, "persist")
	}
}

func TestSingleWildcardMatchesOneSegment(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	exact := c.Subscribe(T("a", "+", "c"))
	twoWild := c.Subscribe(T("a", "+", "+"))
	tailWild := c.Subscribe(T("a", "b", "+"))
	miss := c.Subscribe(T("a", "+", "d"))

	c.Publish(b.NewMessage(T("a", "b", "c"), "m1", false))
	expectPayload(t, exact, "m1")
	expectPayload(t, twoWild, "m1")
	expectPayload(t, tailWild, "m1")
	expectSilence(t, miss)

	c.Publish(b.NewMessage(T("a", "x", "y"), "m2", false))
	expectPayload(t, twoWild, "m2")
	expectSilence(t, exact)
	expectSilence(t, tailWild)
	expectSilence(t, miss)

	c.Publish(b.NewMessage(T("a", "c"), "m3", false))
	expectSilence(t, exact)
	expectSilence(t, twoWild)
	expectSilence(t, tailWild)
	expectSilence(t, miss)
}

func TestMultiWildcardMatchesRemainder(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	aHash := c.Subscribe(T("a", "#"))
	hash := c.Subscribe(T("#"))
	abHash := c.Subscribe(T("a", "b", "#"))
	aOnly := c.Subscribe(T("a"))

	c.Publish(b.NewMessage(T("a"), "p1", false))
	expectPayload(t, aHash, "p1")
	expectPayload(t, hash, "p1")
	expectPayload(t, aOnly, "p1")
	expectSilence(t, abHash)

	c.Publish(b.NewMessage(T("a", "b"), "p2", false))
	expectPayload(t, aHash, "p2")
	expectPayload(t, hash, "p2")
	expectPayload(t, abHash, "p2")
	expectSilence(t, aOnly)

	c.Publish(b.NewMessage(T("a", "b", "c"), "p3", false))
	expectPayload(t, aHash, "p3")
	expectPayload(t, hash, "p3")
	expectPayload(t, abHash, "p3")
	expectSilence(t, aOnly)
}

func TestRetainedMessagesCatchUpWildcardSubscriber(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("a"), "r0", true))
	c.Publish(b.NewMessage(T("a", "b"), "r1", true))
	c.Publish(b.NewMessage(T("a", "b", "c"), "r2", true))
	c.Publish(b.NewMessage(T("a", "x"), "r3", true))

	all := drainN(t, c.Subscribe(T("a", "#")), 4)
	assertSameSet(t, all, []string{"r0", "r1", "r2", "r3"})

	midHash := drainN(t, c.Subscribe(T("a", "+", "#")), 3)
	assertSameSet(t, midHash, []string{"r1", "r2", "r3"})

	oneDeep := drainN(t, c.Subscribe(T("a", "+")), 2)
	assertSameSet(t, oneDeep, []string{"r1", "r3"})
}

func TestNilPayloadClearsRetainedMessage(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("a", "b"), "keep", true))
	c.Publish(b.NewMessage(T("a", "y"), "other", true))
	c.Publish(b.NewMessage(T("a", "b"), nil, true))

	got := drainN(t, c.Subscribe(T("a", "#")), 1)
	if len(got) != 1 || got[0] != "other" {
		t.Fatalf("after clear = %v, want [other]", got)
	}
}

func TestWildcardSubscriptionIgnoresNonMatchingTopics(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("test")
	s := c.Subscribe(T("a", "+", "c"))

	c.Publish(b.NewMessage(T("a", "c"), "x", false))
	expectSilence(t, s)

	c.Publish(b.NewMessage(T("a", "b", "d"), "y", false))
	expectSilence(t, s)
}

func TestRequestWaitReceivesReply(t *testing.T) {
	b := NewBus(8)
	requester := b.NewConnection("requester")
	responder := b.NewConnection("responder")

	topic := T("power", "status", "get")
	inbox := responder.Subscribe(topic)
	defer responder.Unsubscribe(inbox)

	go func() {
		if msg, ok := <-inbox.Channel(); ok {
			responder.Reply(msg, "OK", false)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	reply, err := requester.RequestWait(ctx, b.NewMessage(topic, nil, false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	if got, ok := reply.Payload.(string); !ok || got != "OK" {
		t.Fatalf("reply payload = %#v, want %q", reply.Payload, "OK")
	}
}

func TestRequestWaitTimesOutWithoutAResponder(t *testing.T) {
	b := NewBus(8)
	requester := b.NewConnection("requester")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := requester.RequestWait(ctx, b.NewMessage(T("service", "noop"), nil, false))
	if err == nil {
		t.Fatal("expected a timeout error, got nil")
	}
}

func TestRequestAndManualReply(t *testing.T) {
	b := NewBus(8)
	requester := b.NewConnection("requester")
	responder := b.NewConnection("responder")

	topic := T("sensor", "read")
	inbox := responder.Subscribe(topic)
	defer responder.Unsubscribe(inbox)

	replySub := requester.Request(b.NewMessage(topic, nil, false))
	defer requester.Unsubscribe(replySub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if msg, ok := <-inbox.Channel(); ok {
			responder.Reply(msg, map[string]any{"value": 42}, false)
		}
	}()

	got := recvOrFail(t, replySub, 300*time.Millisecond)
	m, ok := got.Payload.(map[string]any)
	if !ok || m["value"] != 42 {
		t.Fatalf("reply payload = %#v", got.Payload)
	}
	<-done
}

func TestDisconnectClosesAllOwnedSubscriptions(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("test")
	s1 := c.Subscribe(T("a"))
	s2 := c.Subscribe(T("b"))

	c.Disconnect()

	if _, ok := <-s1.Channel(); ok {
		t.Fatal("expected s1's channel to be closed after Disconnect")
	}
	if _, ok := <-s2.Channel(); ok {
		t.Fatal("expected s2's channel to be closed after Disconnect")
	}
}

func TestTInvalidTokenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a non-comparable token")
		}
	}()
	_ = T([]byte{1, 2, 3})
}

func recvOrFail(t *testing.T, sub *Subscription, wait time.Duration) *Message {
	t.Helper()
	select {
	case got := <-sub.Channel():
		return got
	case <-time.After(wait):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func expectPayload(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	got := recvOrFail(t, sub, 200*time.Millisecond)
	if s, ok := got.Payload.(string); !ok || s != want {
		t.Fatalf("payload = %v, want %q", got.Payload, want)
	}
}

func expectSilence(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(60 * time.Millisecond):
	}
}

func drainN(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	deadline := time.Now().Add(300 * time.Millisecond)
	for len(out) < n && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			s, ok := m.Payload.(string)
			if !ok {
				t.Fatalf("non-string payload: %#v", m.Payload)
			}
			out = append(out, s)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(out) != n {
		t.Fatalf("drainN: got %d messages, want %d (%v)", len(out), n, out)
	}
	return out
}

func assertSameSet(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d (%v vs %v)", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
