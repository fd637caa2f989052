package stellalpha_vault

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	TraderStateAccountSize = (8 + // discriminator
		32 + // owner
		32 + // trader
		32 + // vault
		1 + // bump
		8 + // current_value
		8 + // high_water_mark
		8 + // cumulative_profit
		1 + // is_paused
		1 + // is_settled
		1) // is_initialized
)

var TraderStateAccountDiscriminator = []byte{124, 33, 101, 17, 158, 79, 26, 140}

// TraderState is the per-trader accounting ledger. CurrentValue is
// denominated in the owning vault's base asset.
type TraderStateAccount struct {
	Owner            ed25519.PublicKey
	Trader           ed25519.PublicKey
	Vault            ed25519.PublicKey
	Bump             uint8
	CurrentValue     uint64
	HighWaterMark    uint64
	CumulativeProfit int64
	IsPaused         bool
	IsSettled        bool
	IsInitialized    bool
}

func (obj *TraderStateAccount) Unmarshal(data []byte) error {
	if len(data) < TraderStateAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, TraderStateAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Owner, &offset)
	getKey(data, &obj.Trader, &offset)
	getKey(data, &obj.Vault, &offset)
	getUint8(data, &obj.Bump, &offset)
	getUint64(data, &obj.CurrentValue, &offset)
	getUint64(data, &obj.HighWaterMark, &offset)
	getInt64(data, &obj.CumulativeProfit, &offset)
	getBool(data, &obj.IsPaused, &offset)
	getBool(data, &obj.IsSettled, &offset)
	getBool(data, &obj.IsInitialized, &offset)

	return nil
}

func (obj *TraderStateAccount) String() string {
	return fmt.Sprintf(
		"TraderStateAccount{owner=%s,trader=%s,vault=%s,bump=%d,current_value=%d,high_water_mark=%d,cumulative_profit=%d,is_paused=%v,is_settled=%v,is_initialized=%v}",
		base58.Encode(obj.Owner),
		base58.Encode(obj.Trader),
		base58.Encode(obj.Vault),
		obj.Bump,
		obj.CurrentValue,
		obj.HighWaterMark,
		obj.CumulativeProfit,
		obj.IsPaused,
		obj.IsSettled,
		obj.IsInitialized,
	)
}
