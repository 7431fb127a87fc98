package trade

import (
	"context"
	"log"

	dexterm "github.com/featherdex/dexterm/pkg"
	"github.com/featherdex/dexterm/pkg/txbuild"
)

// PlanChainSends walks addressBalances in the caller-supplied order
// (by convention descending balance), accumulating hops until the
// running total reaches target; the final hop is truncated to exactly
// cover the remainder. The planner only sums and truncates: filtering
// policy for occupied addresses lives in the caller.
func PlanChainSends(addressBalances []dexterm.AddrBalance, target dexterm.Amount) ([]dexterm.FillSend, error) {
	if target <= 0 {
		return nil, dexterm.NewErr(dexterm.InvalidRange, "chain-send target must be positive, got %s", target)
	}
	var sends []dexterm.FillSend
	var total dexterm.Amount
	for _, bal := range addressBalances {
		if bal.Amount <= 0 {
			continue
		}
		amount := bal.Amount
		if total+amount > target {
			amount = target - total
		}
		sends = append(sends, dexterm.FillSend{Address: bal.Address, Amount: amount})
		total += amount
		if total == target {
			return sends, nil
		}
	}
	return nil, dexterm.NewErr(dexterm.InsufficientFunds,
		"balances sum to %s, need %s", total, target)
}

// ChainSendResult is the outcome of a fully completed chain-send.
type ChainSendResult struct {
	FinalUTXO dexterm.UTXO // change output of the last hop; funds the follow-up transaction
	TxIDs     []string     // broadcast hop txids, in order
}

// ChainSender drives sequential hop transactions where each hop's
// change output funds the next hop's input.
type ChainSender struct {
	RPC     dexterm.NodeRPC
	Builder txbuild.Builder
}

// ChainSend executes the planned hops strictly in order: hop i+1
// spends hop i's change output, so there is no fan-out to abort. Any
// hop failing to build, sign or broadcast stops the chain and returns
// a ChainSendError carrying the last successfully broadcast UTXO;
// earlier hops have already moved value on-chain, so the failure is
// surfaced with enough state to resume, never swallowed. Cancellation
// is cooperative and only honored between hops.
func (c ChainSender) ChainSend(ctx context.Context, propertyID int64, sends []dexterm.FillSend, fundingUTXO dexterm.UTXO, finalAddress dexterm.Address, perHopFee dexterm.Amount) (ChainSendResult, error) {
	if len(sends) == 0 {
		return ChainSendResult{}, dexterm.NewErr(dexterm.InvalidRange, "chain-send needs at least one hop")
	}
	if fundingUTXO.Address != sends[0].Address {
		return ChainSendResult{}, dexterm.NewErr(dexterm.LogicalInvariant,
			"funding utxo sits at %s but the first hop sends from %s", fundingUTXO.Address, sends[0].Address)
	}

	current := fundingUTXO
	var txids []string
	for i, send := range sends {
		if err := ctx.Err(); err != nil {
			return ChainSendResult{}, c.hopError(i, txids, current, dexterm.NewErr(dexterm.RPCError, "chain-send cancelled: %v", err))
		}
		to := finalAddress
		if i+1 < len(sends) {
			to = sends[i+1].Address
		}
		raw, err := c.Builder.BuildSend(ctx, propertyID, send.Amount, current, perHopFee, to)
		if err != nil {
			return ChainSendResult{}, c.hopError(i, txids, current, err)
		}
		signed, err := c.RPC.SignRawTransaction(ctx, raw)
		if err != nil {
			return ChainSendResult{}, c.hopError(i, txids, current, err)
		}
		txid, err := c.RPC.SendRawTransaction(ctx, signed.Hex)
		if err != nil {
			return ChainSendResult{}, c.hopError(i, txids, current, err)
		}
		txids = append(txids, txid)
		// the hop's change output supersedes the spent UTXO
		current = dexterm.UTXO{
			TxID:    txid,
			VOut:    0,
			Address: to,
			Value:   current.Value - perHopFee,
		}
		log.Printf("trade: chain-send hop %d/%d broadcast %s (%s of property %d to %s)",
			i+1, len(sends), txid, send.Amount, propertyID, to)
	}
	return ChainSendResult{FinalUTXO: current, TxIDs: txids}, nil
}

func (c ChainSender) hopError(hop int, completed []string, last dexterm.UTXO, cause error) error {
	if hop == 0 {
		// nothing broadcast yet: propagate the cause directly so the
		// caller can tell "nothing happened" from a partial chain.
		return cause
	}
	return &dexterm.ChainSendError{
		Hop:       hop,
		Completed: completed,
		LastUTXO:  last,
		Cause:     cause,
	}
}
