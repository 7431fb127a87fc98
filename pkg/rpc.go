package dexterm

import (
	"context"

	"github.com/shopspring/decimal"
)

// NodeRPC represents access to the coin daemon and its token layer.
// Implemented by pkg/core over JSON-RPC; every call is subject to the
// bounded-retry policy there. Result shapes are explicit structs, one
// per method, mirroring the documented daemon responses.
type NodeRPC interface {
	// base chain
	DecodeRawTransaction(ctx context.Context, txHex string) (RawTxn, error)
	GetTransaction(ctx context.Context, txid string) (TxInfo, error)
	EstimateSmartFee(ctx context.Context, confTarget int) (FeeRateResult, error)
	ListUnspent(ctx context.Context, minConf int, addresses []Address) ([]Unspent, error)
	CreateRawTransaction(ctx context.Context, inputs []PrevOut, outputs []TxOut) (string, error)
	SignRawTransaction(ctx context.Context, txHex string) (SignedTxn, error)
	SendRawTransaction(ctx context.Context, txHex string) (string, error)
	GetNewAddress(ctx context.Context, addrType string) (Address, error)
	GetBlockCount(ctx context.Context) (int64, error)
	GetBlockchainInfo(ctx context.Context) (BlockchainInfo, error)

	// token-layer payload synthesis
	CreatePayloadSimpleSend(ctx context.Context, propertyID int64, amount Amount) (string, error)
	CreatePayloadDExAccept(ctx context.Context, propertyID int64, amount Amount) (string, error)
	CreatePayloadDExSell(ctx context.Context, propertyID int64, quantity, desired Amount, paymentWindow int, minFee Amount, action int) (string, error)
	CreatePayloadChangeIssuer(ctx context.Context, propertyID int64) (string, error)
	CreatePayloadSetNFTData(ctx context.Context, propertyID, tokenStart, tokenEnd int64, data string) (string, error)
	CreatePayloadGrant(ctx context.Context, propertyID int64, amount Amount, memo string) (string, error)
	CreatePayloadRevoke(ctx context.Context, propertyID int64, amount Amount, memo string) (string, error)

	// token-layer payload embedding
	CreateRawTxOpReturn(ctx context.Context, rawTx, payloadHex string) (string, error)
	CreateRawTxMultisig(ctx context.Context, rawTx, payloadHex string, redeemKey Address) (string, error)

	// token-layer queries
	GetTokenBalance(ctx context.Context, addr Address, propertyID int64) (TokenBalance, error)
	ListPendingTokenTransactions(ctx context.Context) ([]TokenTx, error)
	ListBlocksTokenTransactions(ctx context.Context, firstBlock, lastBlock int64) ([]string, error)
	GetTokenTransaction(ctx context.Context, txid string) (TokenTx, error)
}

// PrevOut identifies a transaction input being spent.
type PrevOut struct {
	TxID string `json:"txid"`
	VOut int    `json:"vout"`
}

// TxOut is one output of a transaction under construction.
type TxOut struct {
	Address Address
	Value   Amount
}

type RawTxn struct {
	TxID  string `json:"txid"`
	VSize int64  `json:"vsize"`
	Size  int64  `json:"size"`
}

type TxInfo struct {
	TxID          string `json:"txid"`
	Confirmations int64  `json:"confirmations"`
	BlockHeight   int64  `json:"blockheight"`
	BlockTime     int64  `json:"blocktime"`
}

type FeeRateResult struct {
	// FeeRate is in coins per kvB, decimal exactly as sent on the wire.
	FeeRate decimal.Decimal `json:"feerate"`
	Blocks  int             `json:"blocks"`
	Errors  []string        `json:"errors,omitempty"`
}

type Unspent struct {
	TxID          string          `json:"txid"`
	VOut          int             `json:"vout"`
	Address       Address         `json:"address"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations int64           `json:"confirmations"`
}

// ToUTXO converts a wire unspent result into the engine's UTXO value.
func (u Unspent) ToUTXO() (UTXO, error) {
	val, err := AmountFromDecimal(u.Amount)
	if err != nil {
		return UTXO{}, err
	}
	return UTXO{
		TxID:          u.TxID,
		VOut:          u.VOut,
		Address:       u.Address,
		Value:         val,
		Confirmations: u.Confirmations,
	}, nil
}

type SignedTxn struct {
	Hex      string `json:"hex"`
	Complete bool   `json:"complete"`
}

type BlockchainInfo struct {
	Chain  string `json:"chain"`
	Blocks int64  `json:"blocks"`
}

type TokenBalance struct {
	PropertyID int64           `json:"propertyid"`
	Balance    decimal.Decimal `json:"balance"`
	Reserved   decimal.Decimal `json:"reserved"`
}

// TokenTx is a decoded token-layer transaction, the shape returned by
// the daemon's token transaction lookup. Only the fields the engine
// classifies on are modeled.
type TokenTx struct {
	TxID              string          `json:"txid"`
	Type              int             `json:"type_int"`
	PropertyID        int64           `json:"propertyid"`
	PropertyIDDesired int64           `json:"propertyiddesired"`
	Amount            decimal.Decimal `json:"amount"`
	AmountRemaining   decimal.Decimal `json:"amountremaining"`
	AmountDesired     decimal.Decimal `json:"amountdesired"`
	TotalPaid         decimal.Decimal `json:"totalpaid,omitempty"`
	Fee               decimal.Decimal `json:"fee"`
	Block             int64           `json:"block"`
	BlockTime         int64           `json:"blocktime"`
	Valid             bool            `json:"valid"`
	IsMine            bool            `json:"ismine"`
	SendingAddress    Address         `json:"sendingaddress"`
	ReferenceAddress  Address         `json:"referenceaddress,omitempty"`
	Action            int             `json:"action,omitempty"`
}

// Token-layer transaction type codes (type_int on the wire).
const (
	TokenTxSimpleSend  = 0
	TokenTxDExSell     = 20 // also carries cancels (action=3 / zero amount)
	TokenTxDExAccept   = 22
	TokenTxDExPurchase = -22 // synthetic: purchase leg of an accept settlement
)
