package stellalpha_vault

import (
	"crypto/ed25519"
)

var executeTraderSwapInstructionDiscriminator = []byte{
	0x81, 0xe6, 0xae, 0xbf, 0xb4, 0x42, 0x01, 0xe6,
}

type ExecuteTraderSwapInstructionArgs struct {
	AmountIn     uint64
	MinAmountOut uint64
	Data         []byte
}

type ExecuteTraderSwapInstructionAccounts struct {
	Authority          ed25519.PublicKey
	Vault              ed25519.PublicKey
	TraderState        ed25519.PublicKey
	InputTokenAccount  ed25519.PublicKey
	OutputTokenAccount ed25519.PublicKey
	PlatformFeeAccount ed25519.PublicKey
	GlobalConfig       ed25519.PublicKey
	RemainingAccounts  []AccountMeta
}

func NewExecuteTraderSwapInstruction(
	accounts *ExecuteTraderSwapInstructionAccounts,
	args *ExecuteTraderSwapInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(executeTraderSwapInstructionDiscriminator)+
			8+ // amount_in
			8+ // min_amount_out
			4+len(args.Data)) // data

	putDiscriminator(data, executeTraderSwapInstructionDiscriminator, &offset)
	putUint64(data, args.AmountIn, &offset)
	putUint64(data, args.MinAmountOut, &offset)
	putUint32(data, uint32(len(args.Data)), &offset)
	copy(data[offset:], args.Data)

	return Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: append(
			[]AccountMeta{
				{
					PublicKey:  accounts.Authority,
					IsWritable: true,
					IsSigner:   true,
				},
				{
					PublicKey:  accounts.Vault,
					IsWritable: false,
					IsSigner:   false,
				},
				{
					PublicKey:  accounts.TraderState,
					IsWritable: true,
					IsSigner:   false,
				},
				{
					PublicKey:  accounts.InputTokenAccount,
					IsWritable: true,
					IsSigner:   false,
				},
				{
					PublicKey:  accounts.OutputTokenAccount,
					IsWritable: true,
					IsSigner:   false,
				},
				{
					PublicKey:  accounts.PlatformFeeAccount,
					IsWritable: true,
					IsSigner:   false,
				},
				{
					PublicKey:  accounts.GlobalConfig,
					IsWritable: false,
					IsSigner:   false,
				},
				{
					PublicKey:  JUPITER_PROGRAM_ID,
					IsWritable: false,
					IsSigner:   false,
				},
				{
					PublicKey:  TOKEN_PROGRAM_ID,
					IsWritable: false,
					IsSigner:   false,
				},
				{
					PublicKey:  SYSVAR_INSTRUCTIONS_PUBKEY,
					IsWritable: false,
					IsSigner:   false,
				},
			},
			accounts.RemainingAccounts...,
		),
	}
}
