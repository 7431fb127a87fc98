package fees

import (
	dexterm "github.com/featherdex/dexterm/pkg"
)

// PayloadOuts is the structural cost of embedding a protocol payload:
// the extra virtual bytes the embedding outputs add to the
// transaction, and the unavoidable dust those outputs must carry.
type PayloadOuts struct {
	ExtraSize   int64
	ExtraChange dexterm.Amount
}

// CalcPayloadOuts determines how a payload of the given length is
// embedded. A short payload rides in a single null-data output and
// costs no dust. A long payload is split into 30-byte packets, two
// packets per bare-multisig output; an odd leftover packet needs one
// more multisig output plus one plain output. Each multisig output
// carries the multisig change threshold, and the odd case's plain
// output carries ordinary dust.
func CalcPayloadOuts(payloadLen int, coin dexterm.CoinConfig) PayloadOuts {
	if payloadLen <= NullDataLimit {
		return PayloadOuts{
			ExtraSize:   OutNullDataBase + int64(payloadLen),
			ExtraChange: 0,
		}
	}
	return CalcMultisigOuts(payloadLen, coin)
}

// CalcMultisigOuts is the multisig packing arm of CalcPayloadOuts,
// usable directly when the embedding is known to be multisig.
func CalcMultisigOuts(payloadLen int, coin dexterm.CoinConfig) PayloadOuts {
	packets := (payloadLen + PacketSize - 1) / PacketSize
	pairs := int64(packets / 2)
	odd := int64(packets % 2)
	return PayloadOuts{
		ExtraSize:   pairs*OutMultisigTwoPackets + odd*(OutMultisigOnePacket+OutLegacy),
		ExtraChange: dexterm.Amount(pairs+odd)*coin.MultisigChange + dexterm.Amount(odd)*coin.MinChange,
	}
}
