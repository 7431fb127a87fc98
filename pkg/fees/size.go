package fees

import (
	dexterm "github.com/featherdex/dexterm/pkg"
)

// Structural transaction size constants, in virtual bytes. These are
// the worst-case encodings for each piece, so size estimates (and the
// fees derived from them) err high rather than low.
const (
	TxEmptySize = int64(10) // version + marker/flag + in/out counts + locktime

	InLegacy  = int64(148) // outpoint + scriptSig w/ sig + pubkey + sequence
	InSegwit  = int64(68)  // outpoint + empty scriptSig + discounted witness
	OutLegacy = int64(34)  // value + P2PKH script
	OutSegwit = int64(31)  // value + P2WPKH script

	// null-data output overhead excluding the payload itself:
	// value + script length + OP_RETURN + pushdata + layer marker
	OutNullDataBase = int64(13)

	OutMultisigOnePacket  = int64(80)  // 1-of-2 bare multisig, one data key
	OutMultisigTwoPackets = int64(114) // 1-of-3 bare multisig, two data keys

	PacketSize    = 30 // payload bytes packed per multisig data key
	NullDataLimit = 76 // largest payload carried in a single null-data output
)

// Per-operation protocol payload sizes, in bytes.
const (
	PayloadSend   = int64(16) // version, type, property, amount
	PayloadAccept = int64(16)
	PayloadOrder  = int64(33) // DEx sell offer: + desired, window, min fee, action
	PayloadIssuer = int64(8)
	PayloadGrant  = int64(16) // + memo bytes
	PayloadRevoke = int64(16) // + memo bytes
	PayloadNFT    = int64(24) // + data bytes
)

// InSize returns the virtual size of one input spending from an
// address of the given type.
func InSize(t dexterm.AddressType) (int64, error) {
	switch t {
	case dexterm.AddressLegacy:
		return InLegacy, nil
	case dexterm.AddressSegwit:
		return InSegwit, nil
	}
	return 0, dexterm.NewErr(dexterm.LogicalInvariant, "no input size for address type %s", t)
}

// OutSize returns the virtual size of one output paying to an address
// of the given type.
func OutSize(t dexterm.AddressType) (int64, error) {
	switch t {
	case dexterm.AddressLegacy:
		return OutLegacy, nil
	case dexterm.AddressSegwit:
		return OutSegwit, nil
	}
	return 0, dexterm.NewErr(dexterm.LogicalInvariant, "no output size for address type %s", t)
}

type hopPair struct {
	from, to dexterm.AddressType
}

// hopSizes is the per-pair size table for one chain-send hop: a send
// transaction with one input (from), one change output (to) and the
// send payload in a null-data output.
var hopSizes = map[hopPair]int64{
	{dexterm.AddressLegacy, dexterm.AddressLegacy}: TxEmptySize + InLegacy + OutLegacy + OutNullDataBase + PayloadSend,
	{dexterm.AddressLegacy, dexterm.AddressSegwit}: TxEmptySize + InLegacy + OutSegwit + OutNullDataBase + PayloadSend,
	{dexterm.AddressSegwit, dexterm.AddressLegacy}: TxEmptySize + InSegwit + OutLegacy + OutNullDataBase + PayloadSend,
	{dexterm.AddressSegwit, dexterm.AddressSegwit}: TxEmptySize + InSegwit + OutSegwit + OutNullDataBase + PayloadSend,
}

// HopSize returns the virtual size of one chain-send hop from one
// address type to another. A pair missing from the table is a
// configuration bug and fails loudly; it is never papered over with a
// default row.
func HopSize(from, to dexterm.AddressType) (int64, error) {
	size, ok := hopSizes[hopPair{from, to}]
	if !ok {
		return 0, dexterm.NewErr(dexterm.LogicalInvariant, "no hop size for address type pair (%s,%s)", from, to)
	}
	return size, nil
}
