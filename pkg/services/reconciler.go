package services

import (
	"context"
	"log"
	"time"

	dexterm "github.com/featherdex/dexterm/pkg"
	"github.com/featherdex/dexterm/pkg/event"
	"github.com/featherdex/dexterm/pkg/tradedb"
)

const (
	retryDelay = 5 * time.Second  // after a failed refresh
	idlePoll   = 60 * time.Second // fallback when no block events arrive
)

// Reconciler keeps the trades database watermark near the chain tip:
// each new block (or the idle timer) triggers a refresh from the
// activation height to the current tip, so UI history queries mostly
// hit already-reconciled rows.
type Reconciler struct {
	db     *tradedb.TradesDB
	rpc    dexterm.NodeRPC
	coin   dexterm.CoinConfig
	blocks chan event.BlockEvent
}

func NewReconciler(db *tradedb.TradesDB, rpc dexterm.NodeRPC, coin dexterm.CoinConfig, emitter *event.ZMQEmitter) *Reconciler {
	r := &Reconciler{
		db:     db,
		rpc:    rpc,
		coin:   coin,
		blocks: make(chan event.BlockEvent, 1), // dirty flag, capacity 1
	}
	if emitter != nil {
		emitter.Subscribe(r.blocks)
	}
	return r
}

// Implements conductor.Service
func (r *Reconciler) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		ctx := context.Background()
		for {
			select {
			case <-stop:
				stopped <- true
				return
			case ev := <-r.blocks:
				log.Printf("services: new block %s, reconciling trades", ev.Hash)
			case <-time.After(idlePoll):
			}
			if err := r.refreshToTip(ctx); err != nil {
				log.Printf("services: trade reconciliation failed: %v", err)
				select {
				case <-stop:
					stopped <- true
					return
				case <-time.After(retryDelay):
				}
			}
		}
	}()
	return nil
}

func (r *Reconciler) refreshToTip(ctx context.Context) error {
	tip, err := r.rpc.GetBlockCount(ctx)
	if err != nil {
		return err
	}
	if tip < r.coin.ActivationHeight {
		return nil // nothing to reconcile before the token layer exists
	}
	_, err = r.db.Refresh(ctx, r.coin.ActivationHeight, tip)
	return err
}
