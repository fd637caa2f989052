package stellalpha_vault

import (
	"crypto/ed25519"

	"github.com/stellalpha/stellalpha-server/pkg/solana"
)

var (
	globalConfigPrefix = []byte("global_config")
	userVaultPrefix    = []byte("user_vault_v1")
	traderStatePrefix  = []byte("trader_state")
)

func GetGlobalConfigAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		globalConfigPrefix,
	)
}

type GetUserVaultAddressArgs struct {
	Owner ed25519.PublicKey
}

func GetUserVaultAddress(args *GetUserVaultAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		userVaultPrefix,
		args.Owner,
	)
}

type GetTraderStateAddressArgs struct {
	Owner  ed25519.PublicKey
	Trader ed25519.PublicKey
}

func GetTraderStateAddress(args *GetTraderStateAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		traderStatePrefix,
		args.Owner,
		args.Trader,
	)
}
