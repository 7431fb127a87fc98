package event

import (
	"encoding/hex"
	"log"
	"sync"

	dexterm "github.com/featherdex/dexterm/pkg"
	"github.com/pebbe/zmq4"
)

// BlockEvent announces a newly mined block.
type BlockEvent struct {
	Hash string
}

// ZMQEmitter subscribes to the daemon's hashblock notifications and
// fans them out to registered listeners. Listener channels should be
// buffered; a block notification is a dirty flag, not a queue, so a
// full channel is skipped rather than blocked on.
type ZMQEmitter struct {
	sock *zmq4.Socket

	mu        sync.Mutex
	listeners []chan<- BlockEvent
}

// Subscribe registers a listener channel. Safe to call while the
// receive loop is running.
func (e *ZMQEmitter) Subscribe(ch chan<- BlockEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, ch)
}

// dispatch fans a raw hashblock message out to the listeners. Messages
// with a missing hash frame or another topic are dropped.
func (e *ZMQEmitter) dispatch(msg [][]byte) {
	if len(msg) < 2 || string(msg[0]) != "hashblock" {
		return
	}
	ev := BlockEvent{Hash: hex.EncodeToString(msg[1])}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.listeners {
		select {
		case ch <- ev:
		default: // listener is behind; it only needs the dirty flag
		}
	}
}

func NewZMQEmitter(coin dexterm.CoinConfig) (*ZMQEmitter, error) {
	sock, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, err
	}
	err = sock.Connect("tcp://" + coin.ZMQHost + ":" + coin.ZMQPort)
	if err != nil {
		return nil, err
	}
	err = sock.SetSubscribe("hashblock")
	if err != nil {
		return nil, err
	}

	result := &ZMQEmitter{sock: sock}

	go func() {
		for {
			msg, err := sock.RecvMessageBytes(0)
			if err != nil {
				log.Printf("event: zmq receive: %v", err)
				continue
			}
			result.dispatch(msg)
		}
	}()

	return result, nil
}
