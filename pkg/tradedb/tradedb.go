package tradedb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	dexterm "github.com/featherdex/dexterm/pkg"

	_ "github.com/mattn/go-sqlite3"
)

// blocks scanned per list-transactions RPC call, to bound request sizes
const scanBatchBlocks = 500

const setupSQL = `
CREATE TABLE IF NOT EXISTS trades_%s (
	txid BLOB NOT NULL PRIMARY KEY,
	time INTEGER NOT NULL,
	height INTEGER NOT NULL,
	is_mine INTEGER NOT NULL,
	status TEXT NOT NULL,
	id_buy INTEGER NOT NULL,
	id_sell INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	remaining INTEGER NOT NULL,
	amount INTEGER NOT NULL,
	fee INTEGER NOT NULL,
	seller TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_%s_height ON trades_%s (height);

CREATE TABLE IF NOT EXISTS variables (
	coin TEXT NOT NULL PRIMARY KEY,
	best_synced_height INTEGER NOT NULL
);
`

// TradesDB is the persistent, per-coin store of historical DEx trades,
// keyed by txid, with a best-synced-height watermark so a refresh only
// scans the chain delta instead of re-scanning from the activation
// height every time.
type TradesDB struct {
	db    *sql.DB
	rpc   dexterm.NodeRPC
	coin  dexterm.CoinConfig
	table string

	// serializes Refresh: a timer tick and a user action triggering
	// refresh together must queue, not interleave their writes.
	mu sync.Mutex
}

// NewTradesDB opens (and initializes if needed) the trades store at
// fileName; ":memory:" works for tests.
func NewTradesDB(fileName string, rpc dexterm.NodeRPC, coin dexterm.CoinConfig) (*TradesDB, error) {
	db, err := sql.Open("sqlite3", fileName)
	if err != nil {
		return nil, dexterm.NewErr(dexterm.UnknownError, "open trades db: %v", err)
	}
	t := &TradesDB{
		db:    db,
		rpc:   rpc,
		coin:  coin,
		table: "trades_" + strings.ToLower(coin.Ticker),
	}
	if err := t.init(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

func (t *TradesDB) init() error {
	tbl := strings.ToLower(t.coin.Ticker)
	_, err := t.db.Exec(fmt.Sprintf(setupSQL, tbl, tbl, tbl))
	if err != nil {
		return dexterm.NewErr(dexterm.UnknownError, "init trades db: %v", err)
	}
	return nil
}

// Defer this until shutdown.
func (t *TradesDB) Close() {
	t.db.Close()
}

// Reinit drops all cached trades and the watermark, forcing the next
// refresh to re-scan from the activation height.
func (t *TradesDB) Reinit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.table)); err != nil {
		return dexterm.NewErr(dexterm.UnknownError, "reinit trades db: %v", err)
	}
	if _, err := t.db.Exec(`DELETE FROM variables WHERE coin = ?`, t.coin.Ticker); err != nil {
		return dexterm.NewErr(dexterm.UnknownError, "reinit trades db: %v", err)
	}
	return t.init()
}

// Refresh returns all trades in [startHeight, endHeight], first
// reconciling the store against the chain: everything from the current
// watermark up to the chain tip is fetched, classified and upserted in
// one transaction that also advances the watermark. A single call both
// serves the immediate query and extends the durable sync point;
// callers wanting the full current view pass endHeight = tip.
func (t *TradesDB) Refresh(ctx context.Context, startHeight, endHeight int64) ([]dexterm.AssetTrade, error) {
	if startHeight > endHeight {
		return nil, dexterm.NewErr(dexterm.InvalidRange, "start height %d after end height %d", startHeight, endHeight)
	}
	if startHeight < t.coin.ActivationHeight {
		return nil, dexterm.NewErr(dexterm.InvalidRange,
			"start height %d precedes activation height %d", startHeight, t.coin.ActivationHeight)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tip, err := t.rpc.GetBlockCount(ctx)
	if err != nil {
		return nil, err
	}
	synced, err := t.bestSyncedHeight()
	if err != nil {
		return nil, err
	}

	var fresh []dexterm.AssetTrade
	if synced <= tip {
		fresh, err = t.scanChain(ctx, synced, tip)
		if err != nil {
			return nil, err
		}
		if err := t.writeTrades(fresh, tip); err != nil {
			return nil, err
		}
	}

	stored, err := t.readRange(startHeight, endHeight)
	if err != nil {
		return nil, err
	}

	// merge by txid, fresh wins on conflict
	byID := make(map[string]dexterm.AssetTrade, len(stored)+len(fresh))
	for _, tr := range stored {
		byID[tr.TxID] = tr
	}
	for _, tr := range fresh {
		if tr.BlockHeight >= startHeight && tr.BlockHeight <= endHeight {
			byID[tr.TxID] = tr
		}
	}
	merged := make([]dexterm.AssetTrade, 0, len(byID))
	for _, tr := range byID {
		merged = append(merged, tr)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].TxID < merged[j].TxID
	})
	return merged, nil
}

func (t *TradesDB) bestSyncedHeight() (int64, error) {
	row := t.db.QueryRow(`SELECT best_synced_height FROM variables WHERE coin = ?`, t.coin.Ticker)
	var height int64
	err := row.Scan(&height)
	if err == sql.ErrNoRows {
		return t.coin.ActivationHeight, nil
	}
	if err != nil {
		return 0, dexterm.NewErr(dexterm.UnknownError, "read watermark: %v", err)
	}
	return height, nil
}

// scanChain fetches and classifies token transactions in
// [fromHeight, toHeight], batched to bound request sizes.
func (t *TradesDB) scanChain(ctx context.Context, fromHeight, toHeight int64) ([]dexterm.AssetTrade, error) {
	var trades []dexterm.AssetTrade
	for lo := fromHeight; lo <= toHeight; lo += scanBatchBlocks {
		hi := lo + scanBatchBlocks - 1
		if hi > toHeight {
			hi = toHeight
		}
		txids, err := t.rpc.ListBlocksTokenTransactions(ctx, lo, hi)
		if err != nil {
			return nil, err
		}
		for _, txid := range txids {
			tx, err := t.rpc.GetTokenTransaction(ctx, txid)
			if err != nil {
				return nil, err
			}
			trade, ok, err := Classify(tx)
			if err != nil {
				log.Printf("tradedb: skipping %s: %v", txid, err)
				continue
			}
			if ok {
				trades = append(trades, trade)
			}
		}
	}
	return trades, nil
}

// Classify maps a token-layer transaction onto a trade record.
// DEx sell offers become sell-side records (a zero-quantity offer is a
// cancellation); DEx accepts become purchase-side records. Other
// transaction types, and invalid ones, are not trades.
func Classify(tx dexterm.TokenTx) (dexterm.AssetTrade, bool, error) {
	if !tx.Valid {
		return dexterm.AssetTrade{}, false, nil
	}
	switch tx.Type {
	case dexterm.TokenTxDExSell:
		quantity, err := dexterm.AmountFromDecimal(tx.Amount)
		if err != nil {
			return dexterm.AssetTrade{}, false, err
		}
		remaining, err := dexterm.AmountFromDecimal(tx.AmountRemaining)
		if err != nil {
			return dexterm.AssetTrade{}, false, err
		}
		desired, err := dexterm.AmountFromDecimal(tx.AmountDesired)
		if err != nil {
			return dexterm.AssetTrade{}, false, err
		}
		fee, err := dexterm.AmountFromDecimal(tx.Fee)
		if err != nil {
			return dexterm.AssetTrade{}, false, err
		}
		status := dexterm.TradeOpen
		switch {
		case quantity == 0:
			status = dexterm.TradeCanceled // zero-quantity sell denotes a cancel
		case remaining == 0:
			status = dexterm.TradeClosed
		}
		return dexterm.AssetTrade{
			TxID:        tx.TxID,
			BlockHeight: tx.Block,
			Timestamp:   tx.BlockTime,
			Status:      status,
			IDSell:      tx.PropertyID,
			IDBuy:       tx.PropertyIDDesired,
			Quantity:    quantity,
			Remaining:   remaining,
			Amount:      desired,
			Fee:         fee,
			IsMine:      tx.IsMine,
		}, true, nil
	case dexterm.TokenTxDExAccept:
		quantity, err := dexterm.AmountFromDecimal(tx.Amount)
		if err != nil {
			return dexterm.AssetTrade{}, false, err
		}
		paid, err := dexterm.AmountFromDecimal(tx.TotalPaid)
		if err != nil {
			return dexterm.AssetTrade{}, false, err
		}
		fee, err := dexterm.AmountFromDecimal(tx.Fee)
		if err != nil {
			return dexterm.AssetTrade{}, false, err
		}
		status := dexterm.TradeOpen
		if paid > 0 {
			status = dexterm.TradeClosed
		}
		return dexterm.AssetTrade{
			TxID:          tx.TxID,
			BlockHeight:   tx.Block,
			Timestamp:     tx.BlockTime,
			Status:        status,
			IDBuy:         tx.PropertyID,
			IDSell:        tx.PropertyIDDesired,
			Quantity:      quantity,
			Amount:        paid,
			Fee:           fee,
			SellerAddress: tx.ReferenceAddress,
			IsMine:        tx.IsMine,
		}, true, nil
	}
	return dexterm.AssetTrade{}, false, nil
}

// writeTrades upserts the fetched rows and advances the watermark in
// one transaction, so readers never observe a partially-written sync.
func (t *TradesDB) writeTrades(trades []dexterm.AssetTrade, syncedTo int64) error {
	tx, err := t.db.Begin()
	if err != nil {
		return dexterm.NewErr(dexterm.UnknownError, "begin trades txn: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT OR REPLACE INTO %s
		(txid, time, height, is_mine, status, id_buy, id_sell, quantity, remaining, amount, fee, seller)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, t.table))
	if err != nil {
		return dexterm.NewErr(dexterm.UnknownError, "prepare trades upsert: %v", err)
	}
	defer stmt.Close()

	for _, trade := range trades {
		row, err := ToDBCols(trade)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(row.TxID, row.Time, row.Height, row.IsMine, row.Status,
			row.IDBuy, row.IDSell, row.Quantity, row.Remaining, row.Amount, row.Fee, row.Seller)
		if err != nil {
			return dexterm.NewErr(dexterm.UnknownError, "upsert trade %s: %v", trade.TxID, err)
		}
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO variables (coin, best_synced_height) VALUES (?, ?)`,
		t.coin.Ticker, syncedTo)
	if err != nil {
		return dexterm.NewErr(dexterm.UnknownError, "advance watermark: %v", err)
	}
	return tx.Commit()
}

func (t *TradesDB) readRange(startHeight, endHeight int64) ([]dexterm.AssetTrade, error) {
	rows, err := t.db.Query(fmt.Sprintf(
		`SELECT txid, time, height, is_mine, status, id_buy, id_sell, quantity, remaining, amount, fee, seller
		 FROM %s WHERE height >= ? AND height <= ?`, t.table), startHeight, endHeight)
	if err != nil {
		return nil, dexterm.NewErr(dexterm.UnknownError, "read trades: %v", err)
	}
	defer rows.Close()

	var trades []dexterm.AssetTrade
	for rows.Next() {
		var row Row
		err := rows.Scan(&row.TxID, &row.Time, &row.Height, &row.IsMine, &row.Status,
			&row.IDBuy, &row.IDSell, &row.Quantity, &row.Remaining, &row.Amount, &row.Fee, &row.Seller)
		if err != nil {
			return nil, dexterm.NewErr(dexterm.UnknownError, "scan trade row: %v", err)
		}
		trades = append(trades, FromDBCols(row))
	}
	if err := rows.Err(); err != nil {
		return nil, dexterm.NewErr(dexterm.UnknownError, "read trades: %v", err)
	}
	return trades, nil
}

// Row is the on-disk shape of one trade: binary txid and scaled-integer
// (satoshi) monetary columns, so the round trip through storage is
// exact to 8 decimal places.
type Row struct {
	TxID      []byte
	Time      int64
	Height    int64
	IsMine    bool
	Status    string
	IDBuy     int64
	IDSell    int64
	Quantity  int64
	Remaining int64
	Amount    int64
	Fee       int64
	Seller    string
}

func ToDBCols(trade dexterm.AssetTrade) (Row, error) {
	txid, err := hex.DecodeString(trade.TxID)
	if err != nil {
		return Row{}, dexterm.NewErr(dexterm.DecodeError, "txid %q is not valid hex: %v", trade.TxID, err)
	}
	return Row{
		TxID:      txid,
		Time:      trade.Timestamp,
		Height:    trade.BlockHeight,
		IsMine:    trade.IsMine,
		Status:    string(trade.Status),
		IDBuy:     trade.IDBuy,
		IDSell:    trade.IDSell,
		Quantity:  int64(trade.Quantity),
		Remaining: int64(trade.Remaining),
		Amount:    int64(trade.Amount),
		Fee:       int64(trade.Fee),
		Seller:    string(trade.SellerAddress),
	}, nil
}

func FromDBCols(row Row) dexterm.AssetTrade {
	return dexterm.AssetTrade{
		TxID:          hex.EncodeToString(row.TxID),
		Timestamp:     row.Time,
		BlockHeight:   row.Height,
		IsMine:        row.IsMine,
		Status:        dexterm.TradeStatus(row.Status),
		IDBuy:         row.IDBuy,
		IDSell:        row.IDSell,
		Quantity:      dexterm.Amount(row.Quantity),
		Remaining:     dexterm.Amount(row.Remaining),
		Amount:        dexterm.Amount(row.Amount),
		Fee:           dexterm.Amount(row.Fee),
		SellerAddress: dexterm.Address(row.Seller),
	}
}
