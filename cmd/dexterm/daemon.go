package main

import (
	"fmt"
	"log"
	"os"

	dexterm "github.com/featherdex/dexterm/pkg"
	"github.com/featherdex/dexterm/pkg/core"
	"github.com/featherdex/dexterm/pkg/event"
	"github.com/featherdex/dexterm/pkg/msglog"
	"github.com/featherdex/dexterm/pkg/services"
	"github.com/featherdex/dexterm/pkg/tradedb"
	"github.com/tjstebbing/conductor"
)

// Daemon wires the reconciliation services together and runs them
// until interrupted.
func Daemon(config dexterm.Config) {
	msglog.Install(config.Engine.LogFile)

	coin, err := config.ActiveCoin()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	rpc := core.NewNodeCoreRPC(coin, config.Engine.RPCAttempts)

	db, err := tradedb.NewTradesDB(fmt.Sprintf("./trades-%s.db", coin.Ticker), rpc, coin)
	if err != nil {
		fmt.Println("opening trades db:", err)
		os.Exit(1)
	}
	defer db.Close()

	emitter, err := event.NewZMQEmitter(coin)
	if err != nil {
		fmt.Println("connecting to node zmq:", err)
		os.Exit(1)
	}

	c := conductor.NewConductor(
		conductor.HookSignals(),
		conductor.Noisy(),
	)
	c.Service("Trade Reconciler", services.NewReconciler(db, rpc, coin, emitter))

	log.Printf("dexterm: reconciling %s trades", coin.Name)
	<-c.Start()
}
