package event

import (
	"sync"
	"testing"
)

func TestDispatch(t *testing.T) {
	e := &ZMQEmitter{}
	ch := make(chan BlockEvent, 1)
	e.Subscribe(ch)

	e.dispatch([][]byte{[]byte("hashblock"), {0xab, 0xcd}})
	select {
	case ev := <-ch:
		if ev.Hash != "abcd" {
			t.Errorf("hash = %q, want abcd", ev.Hash)
		}
	default:
		t.Fatal("block event not delivered")
	}
}

func TestDispatchDropsMalformedMessages(t *testing.T) {
	e := &ZMQEmitter{}
	ch := make(chan BlockEvent, 1)
	e.Subscribe(ch)

	e.dispatch(nil)
	e.dispatch([][]byte{})
	e.dispatch([][]byte{[]byte("hashblock")}) // topic frame only, no hash
	e.dispatch([][]byte{[]byte("hashtx"), {0x01}})

	select {
	case ev := <-ch:
		t.Errorf("unexpected event %+v", ev)
	default:
	}
}

func TestDispatchSkipsFullListener(t *testing.T) {
	e := &ZMQEmitter{}
	full := make(chan BlockEvent) // unbuffered, never read
	open := make(chan BlockEvent, 1)
	e.Subscribe(full)
	e.Subscribe(open)

	e.dispatch([][]byte{[]byte("hashblock"), {0x01}})
	if len(open) != 1 {
		t.Error("open listener missed the event")
	}
}

func TestSubscribeDuringDispatch(t *testing.T) {
	e := &ZMQEmitter{}
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				e.Subscribe(make(chan BlockEvent, 1))
				e.dispatch([][]byte{[]byte("hashblock"), {0x01}})
			}
		}()
	}
	wg.Wait()
}
