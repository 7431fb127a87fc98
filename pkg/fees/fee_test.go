package fees

import (
	"context"
	"testing"

	dexterm "github.com/featherdex/dexterm/pkg"
	"github.com/featherdex/dexterm/pkg/nodemock"
	"github.com/shopspring/decimal"
)

const (
	legacyA = dexterm.Address("LVg2kJoFNg45Nbpy53h7Fe1wKyeXVRhMH9")
	legacyB = dexterm.Address("LNjYu1akN22USK3sUrSuJn5WoLMKX5Az9B")
	segwitA = dexterm.Address("ltc1qf50c6cvnhgk4w24kkh0nn9stz55xf3ysy77s3j")
)

func testCoin() dexterm.CoinConfig {
	return dexterm.CoinConfig{
		Ticker:         "LTC",
		LegacyPrefix:   "^[LM3][a-zA-Z0-9]+$",
		SegwitPrefix:   "^ltc1[a-z0-9]+$",
		MinChange:      546,
		MultisigChange: 684,
		ExodusAddress:  "LXvc4nNSMyrrHvuAkQSjXv2hsoBGtrc7wS",
		DefaultFeerate: 10000,
	}
}

func TestEstimateFeeRoundsUp(t *testing.T) {
	// 250 vbytes at 1001 sat/kvB = 250.25 sat, must round to 251
	if got := EstimateFee(250, 1001); got != 251 {
		t.Errorf("EstimateFee(250, 1001) = %d, want 251", int64(got))
	}
	if got := EstimateFee(1000, 1000); got != 1000 {
		t.Errorf("EstimateFee(1000, 1000) = %d, want 1000", int64(got))
	}
}

func TestEstimateFeeMonotonic(t *testing.T) {
	sizes := []int64{1, 100, 250, 999, 1000, 5000}
	rates := []dexterm.Amount{1, 999, 1000, 1001, 25000}
	for _, rate := range rates {
		var prev dexterm.Amount = -1
		for _, size := range sizes {
			fee := EstimateFee(size, rate)
			if fee < prev {
				t.Fatalf("fee decreased in size: EstimateFee(%d, %d) = %d < %d", size, rate, fee, prev)
			}
			prev = fee
		}
	}
	for _, size := range sizes {
		var prev dexterm.Amount = -1
		for _, rate := range rates {
			fee := EstimateFee(size, rate)
			if fee < prev {
				t.Fatalf("fee decreased in rate: EstimateFee(%d, %d) = %d < %d", size, rate, fee, prev)
			}
			prev = fee
		}
	}
}

func TestFeeRateFallback(t *testing.T) {
	coin := testCoin()

	t.Run("EstimatorDown", func(t *testing.T) {
		est := Estimator{RPC: &nodemock.NodeMock{}, Coin: coin}
		if got := est.FeeRate(context.Background()); got != coin.DefaultFeerate {
			t.Errorf("FeeRate = %d, want default %d", int64(got), int64(coin.DefaultFeerate))
		}
	})

	t.Run("EstimatorLive", func(t *testing.T) {
		node := &nodemock.NodeMock{
			EstimateSmartFeeFn: func(confTarget int) (dexterm.FeeRateResult, error) {
				return dexterm.FeeRateResult{FeeRate: decimal.RequireFromString("0.00025")}, nil
			},
		}
		est := Estimator{RPC: node, Coin: coin}
		if got := est.FeeRate(context.Background()); got != 25000 {
			t.Errorf("FeeRate = %d, want 25000", int64(got))
		}
	})
}

func TestEstimateFeeForRawTx(t *testing.T) {
	node := &nodemock.NodeMock{
		DecodeRawTransactionFn: func(txHex string) (dexterm.RawTxn, error) {
			if txHex == "feed" {
				return dexterm.RawTxn{VSize: 200}, nil
			}
			return dexterm.RawTxn{}, dexterm.NewErr(dexterm.DecodeError, "bad hex")
		},
	}
	est := Estimator{RPC: node, Coin: testCoin()}

	fe, err := est.EstimateFeeForRawTx(context.Background(), "feed", 1000)
	if err != nil {
		t.Fatal("EstimateFeeForRawTx:", err)
	}
	if fe.SizeBytes != 200 || fe.Fee != 200 {
		t.Errorf("got size %d fee %d, want 200/200", fe.SizeBytes, int64(fe.Fee))
	}

	_, err = est.EstimateFeeForRawTx(context.Background(), "nothex", 1000)
	if !dexterm.IsError(err, dexterm.DecodeError) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestEstimateSendFee(t *testing.T) {
	est := Estimator{Coin: testCoin()}
	fe, err := est.EstimateSendFee(segwitA, legacyA, 1000)
	if err != nil {
		t.Fatal("EstimateSendFee:", err)
	}
	wantSize := TxEmptySize + InSegwit + OutLegacy + OutNullDataBase + PayloadSend
	if fe.SizeBytes != wantSize {
		t.Errorf("size = %d, want %d", fe.SizeBytes, wantSize)
	}
	wantFee := EstimateFee(wantSize, 1000) + est.Coin.MinChange
	if fe.Fee != wantFee {
		t.Errorf("fee = %d, want %d", int64(fe.Fee), int64(wantFee))
	}
}

func TestEstimateBuyFee(t *testing.T) {
	est := Estimator{Coin: testCoin()}
	fills := []dexterm.FillOrder{
		{Address: legacyA, Quantity: 5 * dexterm.OneCoin, PayAmount: dexterm.OneCoin, MinFee: 1},
		{Address: legacyB, Quantity: 3 * dexterm.OneCoin, PayAmount: dexterm.OneCoin, MinFee: 10 * dexterm.OneCoin},
	}
	got, err := est.EstimateBuyFee(segwitA, fills, 1000)
	if err != nil {
		t.Fatal("EstimateBuyFee:", err)
	}
	if len(got.AcceptFees) != 2 {
		t.Fatalf("want one accept fee per seller, got %d", len(got.AcceptFees))
	}
	acceptSize := TxEmptySize + InSegwit + OutSegwit + OutNullDataBase + PayloadAccept + OutLegacy
	computed := EstimateFee(acceptSize, 1000)
	if got.AcceptFees[legacyA] != computed {
		t.Errorf("accept fee for %s = %d, want computed %d", legacyA, int64(got.AcceptFees[legacyA]), int64(computed))
	}
	// the second seller's declared minimum dominates the computed fee
	if got.AcceptFees[legacyB] != 10*dexterm.OneCoin {
		t.Errorf("accept fee for %s = %d, want declared minimum", legacyB, int64(got.AcceptFees[legacyB]))
	}
	wantTotal := computed + 10*dexterm.OneCoin + got.PayFee + est.Coin.MinChange
	if got.Total != wantTotal {
		t.Errorf("total = %d, want %d", int64(got.Total), int64(wantTotal))
	}
}

func TestEstimateBuyFeePaySizesExodusOutput(t *testing.T) {
	fills := []dexterm.FillOrder{
		{Address: legacyA, Quantity: dexterm.OneCoin, PayAmount: dexterm.OneCoin, MinFee: 1},
	}

	payFee := func(exodus dexterm.Address) dexterm.Amount {
		coin := testCoin()
		coin.ExodusAddress = exodus
		got, err := Estimator{Coin: coin}.EstimateBuyFee(segwitA, fills, 1000)
		if err != nil {
			t.Fatal("EstimateBuyFee:", err)
		}
		return got.PayFee
	}

	wantLegacy := EstimateFee(TxEmptySize+InSegwit+OutSegwit+OutLegacy+OutLegacy, 1000)
	if got := payFee(legacyB); got != wantLegacy {
		t.Errorf("pay fee with legacy reference = %d, want %d", int64(got), int64(wantLegacy))
	}
	wantSegwit := EstimateFee(TxEmptySize+InSegwit+OutSegwit+OutSegwit+OutLegacy, 1000)
	if got := payFee(segwitA); got != wantSegwit {
		t.Errorf("pay fee with segwit reference = %d, want %d", int64(got), int64(wantSegwit))
	}
}

func TestEstimateSellFee(t *testing.T) {
	est := Estimator{Coin: testCoin()}
	fe, err := est.EstimateSellFee([]dexterm.Address{legacyA, segwitA, legacyB}, 1000)
	if err != nil {
		t.Fatal("EstimateSellFee:", err)
	}
	hop1, _ := HopSize(dexterm.AddressLegacy, dexterm.AddressSegwit)
	hop2, _ := HopSize(dexterm.AddressSegwit, dexterm.AddressLegacy)
	wantSize := hop1 + hop2 + TxEmptySize + InLegacy + OutLegacy + OutNullDataBase + PayloadOrder
	if fe.SizeBytes != wantSize {
		t.Errorf("size = %d, want %d", fe.SizeBytes, wantSize)
	}
}

func TestHopSizeUnknownPair(t *testing.T) {
	_, err := HopSize(dexterm.AddressLegacy, dexterm.AddressUnknown)
	if !dexterm.IsError(err, dexterm.LogicalInvariant) {
		t.Errorf("unknown hop pair should be a logical-invariant error, got %v", err)
	}
}
