package dexterm

type TradeStatus string

const (
	TradeOpen     TradeStatus = "OPEN"
	TradeClosed   TradeStatus = "CLOSED"
	TradeCanceled TradeStatus = "CANCELED"
)

// AssetTrade is one historical DEx trade record sourced from chain
// data. Immutable once finalized (CLOSED/CANCELED); an OPEN record is
// replaced wholesale when its resolution becomes known.
type AssetTrade struct {
	TxID          string      `json:"txid"`
	BlockHeight   int64       `json:"height"`
	Timestamp     int64       `json:"time"` // unix seconds
	Status        TradeStatus `json:"status"`
	IDBuy         int64       `json:"idBuy"`  // property bought
	IDSell        int64       `json:"idSell"` // property sold
	Quantity      Amount      `json:"quantity"`
	Remaining     Amount      `json:"remaining"`
	Amount        Amount      `json:"amount"`
	Fee           Amount      `json:"fee"`
	SellerAddress Address     `json:"seller,omitempty"` // set on purchase-side records
	IsMine        bool        `json:"isMine"`
}
