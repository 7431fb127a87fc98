package dexterm

type Address string

// UTXO is an unspent transaction output. Immutable once observed:
// spending code never mutates one, it produces the new UTXO created by
// the spend (the change output), forming a logical chain
// UTXO_0 -> UTXO_1 -> ... -> UTXO_n through a chain-send.
type UTXO struct {
	TxID          string  // transaction ID, part of unique key
	VOut          int     // output index, part of unique key
	Address       Address // address holding the output
	Value         Amount  // spendable amount
	Confirmations int64   // confirmation count when observed
}

// AddressType selects which structural size constants apply to an
// address's inputs and outputs. Derived, never stored.
type AddressType int

const (
	AddressUnknown AddressType = iota
	AddressLegacy
	AddressSegwit
)

func (t AddressType) String() string {
	switch t {
	case AddressLegacy:
		return "legacy"
	case AddressSegwit:
		return "segwit"
	}
	return "unknown"
}

// FillOrder is one counterparty sell order being (partially) accepted
// when buying: we owe the seller PayAmount for Quantity of the token,
// and the accept transaction must pay at least MinFee.
type FillOrder struct {
	Address   Address // seller's address
	Quantity  Amount  // token quantity being accepted
	PayAmount Amount  // coins owed on settlement
	MinFee    Amount  // seller's declared minimum accept fee
}

// FillSend is one hop of a multi-address consolidation: move Amount of
// the token out of Address.
type FillSend struct {
	Address Address
	Amount  Amount
}

// AddrBalance is one wallet address's token balance as seen by the
// chain-send planner.
type AddrBalance struct {
	Address  Address
	Amount   Amount // spendable token balance
	Occupied bool   // address has a reserved/locked balance
	Pending  Amount // unconfirmed incoming balance
}
