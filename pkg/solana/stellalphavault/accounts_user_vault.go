package stellalpha_vault

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// Minimum size, with an empty allowed mint list
	UserVaultAccountSize = (8 + // discriminator
		32 + // owner
		32 + // authority
		1 + // bump
		1 + // is_paused
		8 + // trade_amount_lamports
		32 + // base_mint
		4) // allowed_mints length
)

var UserVaultAccountDiscriminator = []byte{23, 76, 96, 159, 210, 10, 5, 22}

type UserVaultAccount struct {
	Owner               ed25519.PublicKey
	Authority           ed25519.PublicKey
	Bump                uint8
	IsPaused            bool
	TradeAmountLamports uint64
	BaseMint            ed25519.PublicKey
	AllowedMints        []ed25519.PublicKey
}

func (obj *UserVaultAccount) Unmarshal(data []byte) error {
	if len(data) < UserVaultAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, UserVaultAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Owner, &offset)
	getKey(data, &obj.Authority, &offset)
	getUint8(data, &obj.Bump, &offset)
	getBool(data, &obj.IsPaused, &offset)
	getUint64(data, &obj.TradeAmountLamports, &offset)
	getKey(data, &obj.BaseMint, &offset)

	var allowedMintCount uint32
	getUint32(data, &allowedMintCount, &offset)
	if len(data) < offset+int(allowedMintCount)*ed25519.PublicKeySize {
		return ErrInvalidAccountData
	}
	obj.AllowedMints = make([]ed25519.PublicKey, allowedMintCount)
	for i := 0; i < int(allowedMintCount); i++ {
		getKey(data, &obj.AllowedMints[i], &offset)
	}

	return nil
}

func (obj *UserVaultAccount) IsMintAllowed(mint ed25519.PublicKey) bool {
	if bytes.Equal(obj.BaseMint, mint) {
		return true
	}
	for _, allowed := range obj.AllowedMints {
		if bytes.Equal(allowed, mint) {
			return true
		}
	}
	return false
}

func (obj *UserVaultAccount) String() string {
	allowedMintsString := "{"
	for i, mint := range obj.AllowedMints {
		allowedMintsString += fmt.Sprintf("%d:%s,", i, base58.Encode(mint))
	}
	allowedMintsString += "}"

	return fmt.Sprintf(
		"UserVaultAccount{owner=%s,authority=%s,bump=%d,is_paused=%v,trade_amount_lamports=%d,base_mint=%s,allowed_mints=%s}",
		base58.Encode(obj.Owner),
		base58.Encode(obj.Authority),
		obj.Bump,
		obj.IsPaused,
		obj.TradeAmountLamports,
		base58.Encode(obj.BaseMint),
		allowedMintsString,
	)
}
