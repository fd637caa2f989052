package stellalpha_vault

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	GlobalConfigAccountSize = (8 + // discriminator
		32 + // admin
		2 + // platform_fee_bps
		2 + // performance_fee_bps
		1) // legacy_trading_enabled
)

var GlobalConfigAccountDiscriminator = []byte{149, 8, 156, 202, 160, 252, 176, 217}

type GlobalConfigAccount struct {
	Admin                ed25519.PublicKey
	PlatformFeeBps       uint16
	PerformanceFeeBps    uint16
	LegacyTradingEnabled bool
}

func (obj *GlobalConfigAccount) Unmarshal(data []byte) error {
	if len(data) < GlobalConfigAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, GlobalConfigAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Admin, &offset)
	getUint16(data, &obj.PlatformFeeBps, &offset)
	getUint16(data, &obj.PerformanceFeeBps, &offset)
	getBool(data, &obj.LegacyTradingEnabled, &offset)

	return nil
}

func (obj *GlobalConfigAccount) String() string {
	return fmt.Sprintf(
		"GlobalConfigAccount{admin=%s,platform_fee_bps=%d,performance_fee_bps=%d,legacy_trading_enabled=%v}",
		base58.Encode(obj.Admin),
		obj.PlatformFeeBps,
		obj.PerformanceFeeBps,
		obj.LegacyTradingEnabled,
	)
}
