package trade

import (
	"context"
	"log"
	"sync"
	"time"

	dexterm "github.com/featherdex/dexterm/pkg"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirming OrderStatus = "CONFIRMING"
	OrderCancelling OrderStatus = "CANCELLING"
	OrderDone       OrderStatus = "DONE"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// Order is one user-initiated trade from creation through confirmation
// or cancellation. It is owned by the OrderBook until done; nothing
// mutates it except its own methods.
//
// Lifecycle: Run awaits confirmation of all precursor transactions
// (accepts, chain-send hops), then broadcasts FinalTx and polls it to
// confirmation. Cancel is cooperative: the flag is checked at poll
// boundaries, and only before the final broadcast. Once FinalTx is on
// the wire it is irreversible, so the run polls to completion no
// matter how late a cancel arrives.
type Order struct {
	Side           Side
	Type           OrderType
	PropertyID     int64
	Quantity       dexterm.Amount
	Remaining      dexterm.Amount
	Price          dexterm.Amount
	Fee            dexterm.Amount
	FundingAddress dexterm.Address
	NoHighFees     bool
	PrecursorTxIDs []string
	FinalTx        string // signed raw hex, broadcast after precursors confirm
	CreatedAt      time.Time

	rpc  dexterm.NodeRPC
	poll time.Duration

	mu              sync.Mutex
	status          OrderStatus
	finalTxID       string
	cancelRequested bool
	finalizing      bool
	done            bool
	cancelled       bool
	failed          bool
}

// terminal outcomes for finish
type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeCancelled
	outcomeFailed
)

// NewOrder wires an order to the node it polls. pollInterval governs
// every confirmation wait.
func NewOrder(rpc dexterm.NodeRPC, pollInterval time.Duration) *Order {
	return &Order{
		rpc:       rpc,
		poll:      pollInterval,
		status:    OrderPending,
		CreatedAt: time.Now(),
	}
}

func (o *Order) Status() OrderStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Finalizing reports whether the final broadcast is in flight or past;
// callers use it to disable their cancel affordance at the right
// moment, but the no-cancel-after-broadcast guarantee holds regardless.
func (o *Order) Finalizing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finalizing
}

func (o *Order) Done() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// Cancelled reports whether the order was cancelled before its final
// transaction was sent.
func (o *Order) Cancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

// Failed reports whether the order terminated on an error rather than
// completing or being cancelled. The final transaction was never
// confirmed; whether it was broadcast is visible via FinalTxID.
func (o *Order) Failed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failed
}

// FinalTxID returns the txid of the broadcast final transaction, empty
// until the order reaches CONFIRMING.
func (o *Order) FinalTxID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finalTxID
}

// Cancel requests cooperative cancellation. It is honored at the next
// poll boundary if the final transaction has not been broadcast; after
// that it has no effect on the outcome.
func (o *Order) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done || o.finalizing {
		return
	}
	o.cancelRequested = true
	o.status = OrderCancelling
}

// Run drives the order to a terminal state. It blocks until the order
// is done or ctx fails; ctx governs process shutdown, the cancel flag
// governs user cancellation.
func (o *Order) Run(ctx context.Context) error {
	// Await all precursors concurrently; each wait is itself
	// cancellable at its poll boundaries.
	var wg sync.WaitGroup
	errs := make(chan error, len(o.PrecursorTxIDs))
	for _, txid := range o.PrecursorTxIDs {
		wg.Add(1)
		go func(txid string) {
			defer wg.Done()
			errs <- o.waitTx(ctx, txid, true)
		}(txid)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err == errCancelled {
			o.finish(outcomeCancelled)
			return nil
		}
		if err != nil {
			o.finish(outcomeFailed)
			return err
		}
	}

	o.mu.Lock()
	if o.cancelRequested {
		o.mu.Unlock()
		o.finish(outcomeCancelled)
		return nil
	}
	// last gate: from here the broadcast is irreversible
	o.finalizing = true
	o.mu.Unlock()

	txid, err := o.rpc.SendRawTransaction(ctx, o.FinalTx)
	if err != nil {
		o.finish(outcomeFailed)
		return err
	}
	o.mu.Lock()
	o.finalTxID = txid
	o.status = OrderConfirming
	o.mu.Unlock()
	log.Printf("trade: order final tx %s broadcast, awaiting confirmation", txid)

	// poll to completion regardless of any late cancel request
	if err := o.waitTx(ctx, txid, false); err != nil {
		o.finish(outcomeFailed)
		return err
	}
	o.finish(outcomeCompleted)
	return nil
}

var errCancelled = dexterm.NewErr(dexterm.UnknownError, "order cancelled")

// waitTx polls the node at the fixed interval until txid confirms.
// When honourCancel is set, the cancel flag is checked between ticks
// and surfaces as errCancelled.
func (o *Order) waitTx(ctx context.Context, txid string, honourCancel bool) error {
	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()
	for {
		if honourCancel {
			o.mu.Lock()
			cancelled := o.cancelRequested
			o.mu.Unlock()
			if cancelled {
				return errCancelled
			}
		}
		tx, err := o.rpc.GetTransaction(ctx, txid)
		if err == nil && tx.Confirmations > 0 {
			return nil
		}
		if err != nil && !dexterm.Retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return dexterm.NewErr(dexterm.RPCError, "confirmation wait for %s: %v", txid, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (o *Order) finish(result outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = OrderDone
	o.done = true
	o.cancelled = result == outcomeCancelled
	o.failed = result == outcomeFailed
	o.finalizing = false
}

// OrderBook is the engine-owned list of in-flight orders. Orders are
// appended on submission and filtered out once done.
type OrderBook struct {
	mu     sync.Mutex
	orders []*Order
}

func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

func (b *OrderBook) Add(o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append(b.orders, o)
}

// Pending returns a snapshot of the current orders.
func (b *OrderBook) Pending() []*Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// Prune drops orders that have reached their terminal state.
func (b *OrderBook) Prune() {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.orders[:0]
	for _, o := range b.orders {
		if !o.Done() {
			kept = append(kept, o)
		}
	}
	b.orders = kept
}
