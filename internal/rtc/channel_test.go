package rtc

import "testing"

func TestMemoryChannelFiresConnectOnce(t *testing.T) {
	connects := 0
	cb := &Callbacks{OnConnect: []func(){func() { connects++ }}}
	ch := NewMemoryChannel(cb)

	ch.Open()
	ch.Open()

	if connects != 1 {
		t.Fatalf("expected OnConnect to fire once, fired %d times", connects)
	}
}

func TestMemoryChannelDeliverInvokesAllHandlers(t *testing.T) {
	var got []string
	cb := &Callbacks{OnMessage: []func(string){
		func(text string) { got = append(got, "first:"+text) },
		func(text string) { got = append(got, "second:"+text) },
	}}
	ch := NewMemoryChannel(cb)

	ch.Deliver("amp 5")

	if len(got) != 2 || got[0] != "first:amp 5" || got[1] != "second:amp 5" {
		t.Fatalf("unexpected handler invocations: %v", got)
	}
}

func TestMemoryChannelCloseFiresDisconnectThenClosed(t *testing.T) {
	var order []string
	cb := &Callbacks{
		OnDisconnect: []func(){func() { order = append(order, "disconnect") }},
		OnClosed:     []func(){func() { order = append(order, "closed") }},
	}
	ch := NewMemoryChannel(cb)
	ch.Open()

	if err := ch.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 2 || order[0] != "disconnect" || order[1] != "closed" {
		t.Fatalf("unexpected callback order: %v", order)
	}
}

func TestMemoryChannelCloseWithoutOpenSkipsDisconnect(t *testing.T) {
	var order []string
	cb := &Callbacks{
		OnDisconnect: []func(){func() { order = append(order, "disconnect") }},
		OnClosed:     []func(){func() { order = append(order, "closed") }},
	}
	ch := NewMemoryChannel(cb)

	if err := ch.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 1 || order[0] != "closed" {
		t.Fatalf("expected only closed to fire, got %v", order)
	}
}

func TestMemoryChannelSendRecordsText(t *testing.T) {
	ch := NewMemoryChannel(&Callbacks{})
	ch.Send("amp 5")
	ch.Send("freq 0.2")

	if len(ch.Sent) != 2 || ch.Sent[0] != "amp 5" || ch.Sent[1] != "freq 0.2" {
		t.Fatalf("unexpected Sent contents: %v", ch.Sent)
	}
}
