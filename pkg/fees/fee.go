package fees

import (
	"context"
	"log"

	dexterm "github.com/featherdex/dexterm/pkg"
)

// feerate units are satoshis per 1000 virtual bytes.
const feerateDivisor = 1000

// confirmation target for the live feerate estimate
const estimateTarget = 2

// FeeEstimate is the result of sizing a transaction: the structural
// size used, the feerate applied, and the resulting fee. The fee is
// rounded up to whole satoshis (8 decimal places), never down:
// underestimating risks a stuck transaction, so the model biases high.
type FeeEstimate struct {
	SizeBytes int64
	Feerate   dexterm.Amount // satoshis per kvB
	Fee       dexterm.Amount
}

// EstimateFee computes the fee for a transaction of the given virtual
// size. Monotonically non-decreasing in both arguments.
func EstimateFee(sizeBytes int64, feerate dexterm.Amount) dexterm.Amount {
	return feerate.MulDivCeil(sizeBytes, feerateDivisor)
}

// Estimator assembles per-operation fee estimates from the structural
// size constants and the coin's platform constants.
type Estimator struct {
	RPC  dexterm.NodeRPC
	Coin dexterm.CoinConfig
}

// FeeRate fetches a live feerate from the daemon, falling back to the
// coin's configured default when the estimator is unavailable. Fee
// estimation never fails solely because the estimator RPC is down;
// the RPC layer has already applied its bounded retries by the time
// an error reaches this point.
func (e Estimator) FeeRate(ctx context.Context) dexterm.Amount {
	res, err := e.RPC.EstimateSmartFee(ctx, estimateTarget)
	if err != nil {
		log.Printf("fees: estimatesmartfee unavailable, using default rate: %v", err)
		return e.Coin.DefaultFeerate
	}
	rate, err := dexterm.AmountFromDecimal(res.FeeRate)
	if err != nil || rate <= 0 {
		log.Printf("fees: estimatesmartfee returned unusable rate %v, using default", res.FeeRate)
		return e.Coin.DefaultFeerate
	}
	return rate
}

// EstimateFeeForRawTx sizes an already-built transaction by asking the
// daemon to decode it. Fails with a decode error on malformed hex.
func (e Estimator) EstimateFeeForRawTx(ctx context.Context, rawHex string, feerate dexterm.Amount) (FeeEstimate, error) {
	decoded, err := e.RPC.DecodeRawTransaction(ctx, rawHex)
	if err != nil {
		return FeeEstimate{}, err
	}
	size := decoded.VSize
	if size == 0 {
		size = decoded.Size
	}
	return FeeEstimate{SizeBytes: size, Feerate: feerate, Fee: EstimateFee(size, feerate)}, nil
}

// estimate sizes a one-input one-change transaction carrying extra
// structural bytes, and adds the protocol's minimum change on top of
// the fee (the caller must fund both).
func (e Estimator) estimate(from, to dexterm.Address, extraSize int64, feerate dexterm.Amount) (FeeEstimate, error) {
	fromType, err := e.Coin.AddressTypeOf(from)
	if err != nil {
		return FeeEstimate{}, err
	}
	toType, err := e.Coin.AddressTypeOf(to)
	if err != nil {
		return FeeEstimate{}, err
	}
	in, err := InSize(fromType)
	if err != nil {
		return FeeEstimate{}, err
	}
	out, err := OutSize(toType)
	if err != nil {
		return FeeEstimate{}, err
	}
	size := TxEmptySize + in + out + extraSize
	return FeeEstimate{
		SizeBytes: size,
		Feerate:   feerate,
		Fee:       EstimateFee(size, feerate) + e.Coin.MinChange,
	}, nil
}

// EstimateSendFee sizes a simple send from one address to another.
func (e Estimator) EstimateSendFee(from, to dexterm.Address, feerate dexterm.Amount) (FeeEstimate, error) {
	return e.estimate(from, to, OutNullDataBase+PayloadSend, feerate)
}

// BuyFeeEstimate is the cost of accepting (and later paying for) a set
// of counterparty sell orders. Each accept is its own transaction, so
// AcceptFees carries a per-seller-address fee; each entry is at least
// the seller's declared minimum.
type BuyFeeEstimate struct {
	Total      dexterm.Amount
	PayFee     dexterm.Amount
	AcceptFees map[dexterm.Address]dexterm.Amount
}

// EstimateBuyFee sizes the accept transaction per seller plus the
// final pay transaction settling all accepted orders.
func (e Estimator) EstimateBuyFee(buyer dexterm.Address, fills []dexterm.FillOrder, feerate dexterm.Amount) (BuyFeeEstimate, error) {
	buyerType, err := e.Coin.AddressTypeOf(buyer)
	if err != nil {
		return BuyFeeEstimate{}, err
	}
	in, err := InSize(buyerType)
	if err != nil {
		return BuyFeeEstimate{}, err
	}
	change, err := OutSize(buyerType)
	if err != nil {
		return BuyFeeEstimate{}, err
	}

	exodusType, err := e.Coin.AddressTypeOf(e.Coin.ExodusAddress)
	if err != nil {
		return BuyFeeEstimate{}, err
	}
	exodusOut, err := OutSize(exodusType)
	if err != nil {
		return BuyFeeEstimate{}, err
	}

	est := BuyFeeEstimate{AcceptFees: make(map[dexterm.Address]dexterm.Amount, len(fills))}
	paySize := TxEmptySize + in + change + exodusOut // pay: exodus reference output
	for _, fill := range fills {
		sellerType, err := e.Coin.AddressTypeOf(fill.Address)
		if err != nil {
			return BuyFeeEstimate{}, err
		}
		sellerOut, err := OutSize(sellerType)
		if err != nil {
			return BuyFeeEstimate{}, err
		}
		// accept: buyer input, buyer change, accept payload, seller dust
		acceptSize := TxEmptySize + in + change + OutNullDataBase + PayloadAccept + sellerOut
		acceptFee := EstimateFee(acceptSize, feerate)
		if acceptFee < fill.MinFee {
			acceptFee = fill.MinFee
		}
		est.AcceptFees[fill.Address] = acceptFee
		est.Total += acceptFee
		paySize += sellerOut // pay: one output per filled order
	}
	est.PayFee = EstimateFee(paySize, feerate)
	est.Total += est.PayFee + e.Coin.MinChange
	return est, nil
}

// EstimateSellFee sizes the chain-send hops consolidating balance into
// the posting address, plus the order transaction itself. hops is the
// address path in send order; the last entry posts the order.
func (e Estimator) EstimateSellFee(hops []dexterm.Address, feerate dexterm.Amount) (FeeEstimate, error) {
	if len(hops) == 0 {
		return FeeEstimate{}, dexterm.NewErr(dexterm.InvalidRange, "sell fee estimate needs at least one address")
	}
	var size int64
	for i := 0; i+1 < len(hops); i++ {
		fromType, err := e.Coin.AddressTypeOf(hops[i])
		if err != nil {
			return FeeEstimate{}, err
		}
		toType, err := e.Coin.AddressTypeOf(hops[i+1])
		if err != nil {
			return FeeEstimate{}, err
		}
		hop, err := HopSize(fromType, toType)
		if err != nil {
			return FeeEstimate{}, err
		}
		size += hop
	}
	final := hops[len(hops)-1]
	finalType, err := e.Coin.AddressTypeOf(final)
	if err != nil {
		return FeeEstimate{}, err
	}
	in, err := InSize(finalType)
	if err != nil {
		return FeeEstimate{}, err
	}
	out, err := OutSize(finalType)
	if err != nil {
		return FeeEstimate{}, err
	}
	size += TxEmptySize + in + out + OutNullDataBase + PayloadOrder
	return FeeEstimate{
		SizeBytes: size,
		Feerate:   feerate,
		Fee:       EstimateFee(size, feerate) + e.Coin.MinChange,
	}, nil
}

// EstimateCreateFee sizes an asset-creation transaction whose payload
// (name, category, url, data) can exceed the null-data limit and spill
// into multisig outputs.
func (e Estimator) EstimateCreateFee(from dexterm.Address, payloadLen int, feerate dexterm.Amount) (FeeEstimate, error) {
	outs := CalcPayloadOuts(payloadLen, e.Coin)
	est, err := e.estimate(from, from, outs.ExtraSize, feerate)
	if err != nil {
		return FeeEstimate{}, err
	}
	est.Fee += outs.ExtraChange
	return est, nil
}

// EstimateIssuerFee sizes a change-issuer transaction; the new issuer
// address receives a dust reference output.
func (e Estimator) EstimateIssuerFee(from, newIssuer dexterm.Address, feerate dexterm.Amount) (FeeEstimate, error) {
	issuerType, err := e.Coin.AddressTypeOf(newIssuer)
	if err != nil {
		return FeeEstimate{}, err
	}
	refOut, err := OutSize(issuerType)
	if err != nil {
		return FeeEstimate{}, err
	}
	est, err := e.estimate(from, from, OutNullDataBase+PayloadIssuer+refOut, feerate)
	if err != nil {
		return FeeEstimate{}, err
	}
	est.Fee += e.Coin.MinChange // dust carried by the reference output
	return est, nil
}

// EstimateNFTFee sizes a set-NFT-data transaction.
func (e Estimator) EstimateNFTFee(from dexterm.Address, dataLen int, feerate dexterm.Amount) (FeeEstimate, error) {
	outs := CalcPayloadOuts(int(PayloadNFT)+dataLen, e.Coin)
	est, err := e.estimate(from, from, outs.ExtraSize, feerate)
	if err != nil {
		return FeeEstimate{}, err
	}
	est.Fee += outs.ExtraChange
	return est, nil
}

// EstimateGrantFee sizes a grant-tokens transaction.
func (e Estimator) EstimateGrantFee(from dexterm.Address, memoLen int, feerate dexterm.Amount) (FeeEstimate, error) {
	return e.estimate(from, from, OutNullDataBase+PayloadGrant+int64(memoLen), feerate)
}

// EstimateRevokeFee sizes a revoke-tokens transaction.
func (e Estimator) EstimateRevokeFee(from dexterm.Address, memoLen int, feerate dexterm.Amount) (FeeEstimate, error) {
	return e.estimate(from, from, OutNullDataBase+PayloadRevoke+int64(memoLen), feerate)
}
