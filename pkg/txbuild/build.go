package txbuild

import (
	"context"
	"encoding/hex"

	dexterm "github.com/featherdex/dexterm/pkg"
	"github.com/featherdex/dexterm/pkg/fees"
)

// Builder constructs unsigned raw transactions carrying token-layer
// payloads. Payload synthesis and embedding are delegated to the
// daemon; the builder decides the output structure and enforces the
// funding checks.
type Builder struct {
	RPC  dexterm.NodeRPC
	Coin dexterm.CoinConfig
}

// BuildPayloadTx spends input to a single change output and embeds the
// given payload (hex). fee must already include any dust the embedding
// requires (see fees.CalcPayloadOuts); the change output receives
// whatever remains. Fails with insufficient-funds when the remainder
// would drop below the coin's minimum change.
func (b Builder) BuildPayloadTx(ctx context.Context, payloadHex string, input dexterm.UTXO, fee dexterm.Amount, changeAddr dexterm.Address) (string, error) {
	if changeAddr == "" {
		changeAddr = input.Address
	}
	change := input.Value - fee
	if change < b.Coin.MinChange {
		return "", dexterm.NewErr(dexterm.InsufficientFunds,
			"input %s:%d holds %s, cannot cover fee %s plus minimum change %s",
			input.TxID, input.VOut, input.Value, fee, b.Coin.MinChange)
	}
	raw, err := b.RPC.CreateRawTransaction(ctx,
		[]dexterm.PrevOut{{TxID: input.TxID, VOut: input.VOut}},
		[]dexterm.TxOut{{Address: changeAddr, Value: change}})
	if err != nil {
		return "", err
	}
	return b.embedPayload(ctx, raw, payloadHex)
}

// embedPayload attaches the payload to an already-built transaction:
// inline in a null-data output when it fits, otherwise as bare
// multisig outputs redeemable by a freshly generated legacy address.
func (b Builder) embedPayload(ctx context.Context, rawTx, payloadHex string) (string, error) {
	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return "", dexterm.NewErr(dexterm.DecodeError, "payload is not valid hex: %v", err)
	}
	if len(payload) <= fees.NullDataLimit {
		return b.RPC.CreateRawTxOpReturn(ctx, rawTx, payloadHex)
	}
	redeemKey, err := b.RPC.GetNewAddress(ctx, "legacy")
	if err != nil {
		return "", err
	}
	return b.RPC.CreateRawTxMultisig(ctx, rawTx, payloadHex, redeemKey)
}

// BuildSend builds a simple send of the token to `to`. The change
// output pays `to` as well: the token layer reads the non-sender
// output as the transfer's recipient, which is also what lets a
// chain-send hand its remaining coins to the next hop.
func (b Builder) BuildSend(ctx context.Context, propertyID int64, amount dexterm.Amount, input dexterm.UTXO, fee dexterm.Amount, to dexterm.Address) (string, error) {
	payload, err := b.RPC.CreatePayloadSimpleSend(ctx, propertyID, amount)
	if err != nil {
		return "", err
	}
	return b.BuildPayloadTx(ctx, payload, input, fee, to)
}

// BuildAccept builds a DEx accept for part of a seller's posted order.
// Besides the payload, the accept pays a fixed dust output to the
// seller (the on-chain commitment the seller watches for).
func (b Builder) BuildAccept(ctx context.Context, propertyID int64, amount dexterm.Amount, input dexterm.UTXO, fee dexterm.Amount, seller dexterm.Address) (string, error) {
	payload, err := b.RPC.CreatePayloadDExAccept(ctx, propertyID, amount)
	if err != nil {
		return "", err
	}
	change := input.Value - fee - b.Coin.MinChange
	if change < b.Coin.MinChange {
		return "", dexterm.NewErr(dexterm.InsufficientFunds,
			"input %s:%d holds %s, cannot cover fee %s plus seller dust and change",
			input.TxID, input.VOut, input.Value, fee)
	}
	raw, err := b.RPC.CreateRawTransaction(ctx,
		[]dexterm.PrevOut{{TxID: input.TxID, VOut: input.VOut}},
		[]dexterm.TxOut{
			{Address: input.Address, Value: change},
			{Address: seller, Value: b.Coin.MinChange},
		})
	if err != nil {
		return "", err
	}
	return b.embedPayload(ctx, raw, payload)
}

// BuildPay builds the final payment settling previously accepted
// orders: one output per filled counterparty order plus a dust output
// to the protocol reference address. Carries no payload; the token
// layer recognizes the payment by its outputs.
func (b Builder) BuildPay(ctx context.Context, input dexterm.UTXO, fills []dexterm.FillOrder, fee dexterm.Amount) (string, error) {
	var paySum dexterm.Amount
	for _, fill := range fills {
		paySum += fill.PayAmount
	}
	change := input.Value - fee - paySum - b.Coin.MinChange
	if change < b.Coin.MinChange {
		return "", dexterm.NewErr(dexterm.InsufficientFunds,
			"input %s:%d holds %s, cannot cover %s in order payments plus fee %s and dust",
			input.TxID, input.VOut, input.Value, paySum, fee)
	}
	outs := make([]dexterm.TxOut, 0, len(fills)+2)
	outs = append(outs, dexterm.TxOut{Address: input.Address, Value: change})
	for _, fill := range fills {
		outs = append(outs, dexterm.TxOut{Address: fill.Address, Value: fill.PayAmount})
	}
	outs = append(outs, dexterm.TxOut{Address: b.Coin.ExodusAddress, Value: b.Coin.MinChange})
	return b.RPC.CreateRawTransaction(ctx,
		[]dexterm.PrevOut{{TxID: input.TxID, VOut: input.VOut}}, outs)
}

// BuildOrder posts a DEx sell offer.
func (b Builder) BuildOrder(ctx context.Context, propertyID int64, quantity, desired dexterm.Amount, paymentWindow int, minFee dexterm.Amount, action int, input dexterm.UTXO, fee dexterm.Amount) (string, error) {
	payload, err := b.RPC.CreatePayloadDExSell(ctx, propertyID, quantity, desired, paymentWindow, minFee, action)
	if err != nil {
		return "", err
	}
	return b.BuildPayloadTx(ctx, payload, input, fee, "")
}

// BuildChangeIssuer hands a property's issuer role to newIssuer, who
// is identified by a dust reference output.
func (b Builder) BuildChangeIssuer(ctx context.Context, propertyID int64, input dexterm.UTXO, fee dexterm.Amount, newIssuer dexterm.Address) (string, error) {
	payload, err := b.RPC.CreatePayloadChangeIssuer(ctx, propertyID)
	if err != nil {
		return "", err
	}
	change := input.Value - fee - b.Coin.MinChange
	if change < b.Coin.MinChange {
		return "", dexterm.NewErr(dexterm.InsufficientFunds,
			"input %s:%d holds %s, cannot cover fee %s plus issuer dust and change",
			input.TxID, input.VOut, input.Value, fee)
	}
	raw, err := b.RPC.CreateRawTransaction(ctx,
		[]dexterm.PrevOut{{TxID: input.TxID, VOut: input.VOut}},
		[]dexterm.TxOut{
			{Address: input.Address, Value: change},
			{Address: newIssuer, Value: b.Coin.MinChange},
		})
	if err != nil {
		return "", err
	}
	return b.embedPayload(ctx, raw, payload)
}

// BuildSetNFTData attaches data to a range of non-fungible tokens.
func (b Builder) BuildSetNFTData(ctx context.Context, propertyID, tokenStart, tokenEnd int64, data string, input dexterm.UTXO, fee dexterm.Amount) (string, error) {
	payload, err := b.RPC.CreatePayloadSetNFTData(ctx, propertyID, tokenStart, tokenEnd, data)
	if err != nil {
		return "", err
	}
	return b.BuildPayloadTx(ctx, payload, input, fee, "")
}

// BuildGrant issues new units of a managed property.
func (b Builder) BuildGrant(ctx context.Context, propertyID int64, amount dexterm.Amount, memo string, input dexterm.UTXO, fee dexterm.Amount) (string, error) {
	payload, err := b.RPC.CreatePayloadGrant(ctx, propertyID, amount, memo)
	if err != nil {
		return "", err
	}
	return b.BuildPayloadTx(ctx, payload, input, fee, "")
}

// BuildRevoke destroys units of a managed property.
func (b Builder) BuildRevoke(ctx context.Context, propertyID int64, amount dexterm.Amount, memo string, input dexterm.UTXO, fee dexterm.Amount) (string, error) {
	payload, err := b.RPC.CreatePayloadRevoke(ctx, propertyID, amount, memo)
	if err != nil {
		return "", err
	}
	return b.BuildPayloadTx(ctx, payload, input, fee, "")
}
