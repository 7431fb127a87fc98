package fees

import (
	"testing"

	dexterm "github.com/featherdex/dexterm/pkg"
)

func TestCalcPayloadOutsNullData(t *testing.T) {
	coin := testCoin()
	for _, length := range []int{0, 1, 16, 61, NullDataLimit} {
		outs := CalcPayloadOuts(length, coin)
		if outs.ExtraChange != 0 {
			t.Errorf("payload of %d bytes should cost no dust, got %s", length, outs.ExtraChange)
		}
		want := OutNullDataBase + int64(length)
		if outs.ExtraSize != want {
			t.Errorf("payload of %d bytes: extra size %d, want %d", length, outs.ExtraSize, want)
		}
	}
}

func TestCalcPayloadOutsMultisig(t *testing.T) {
	coin := testCoin()

	// 61 bytes is three 30-byte packets: one two-packet multisig
	// output, one one-packet multisig output, one plain output.
	outs := CalcMultisigOuts(61, coin)
	wantSize := OutMultisigTwoPackets + OutMultisigOnePacket + OutLegacy // 114 + 80 + 34
	if outs.ExtraSize != wantSize {
		t.Errorf("61-byte payload: extra size %d, want %d", outs.ExtraSize, wantSize)
	}
	wantChange := 2*coin.MultisigChange + coin.MinChange // 2*684 + 546
	if outs.ExtraChange != wantChange {
		t.Errorf("61-byte payload: extra change %s, want %s", outs.ExtraChange, wantChange)
	}

	// 120 bytes is four packets: two two-packet outputs, no leftover.
	outs = CalcMultisigOuts(120, coin)
	if outs.ExtraSize != 2*OutMultisigTwoPackets {
		t.Errorf("120-byte payload: extra size %d, want %d", outs.ExtraSize, 2*OutMultisigTwoPackets)
	}
	if outs.ExtraChange != 2*coin.MultisigChange {
		t.Errorf("120-byte payload: extra change %s, want %s", outs.ExtraChange, 2*coin.MultisigChange)
	}

	// above the null-data limit CalcPayloadOuts switches to multisig
	if CalcPayloadOuts(NullDataLimit+1, coin) != CalcMultisigOuts(NullDataLimit+1, coin) {
		t.Error("CalcPayloadOuts should delegate to multisig packing past the null-data limit")
	}
}

func TestEstimateCreateFeeCarriesDust(t *testing.T) {
	est := Estimator{Coin: testCoin()}
	small, err := est.EstimateCreateFee(legacyA, 40, 1000)
	if err != nil {
		t.Fatal("EstimateCreateFee small:", err)
	}
	large, err := est.EstimateCreateFee(legacyA, 200, 1000)
	if err != nil {
		t.Fatal("EstimateCreateFee large:", err)
	}
	if large.Fee <= small.Fee {
		t.Errorf("a multisig-spilling payload must cost more: %s vs %s", large.Fee, small.Fee)
	}
	outs := CalcPayloadOuts(200, est.Coin)
	wantLarge := EstimateFee(large.SizeBytes, 1000) + est.Coin.MinChange + outs.ExtraChange
	if large.Fee != wantLarge {
		t.Errorf("large fee = %d, want %d (including %s packet dust)", int64(large.Fee), int64(wantLarge), outs.ExtraChange)
	}
}

func TestInOutSizeUnknownType(t *testing.T) {
	if _, err := InSize(dexterm.AddressUnknown); !dexterm.IsError(err, dexterm.LogicalInvariant) {
		t.Errorf("InSize(unknown) should be a logical-invariant error, got %v", err)
	}
	if _, err := OutSize(dexterm.AddressUnknown); !dexterm.IsError(err, dexterm.LogicalInvariant) {
		t.Errorf("OutSize(unknown) should be a logical-invariant error, got %v", err)
	}
}
