package common

import (
	"bytes"
	"crypto/ed25519"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"

	stellalpha_vault "github.com/stellalpha/stellalpha-server/pkg/solana/stellalphavault"
	"github.com/stellalpha/stellalpha-server/pkg/solana/token"
)

type Account struct {
	publicKey  *Key
	privateKey *Key // Optional
}

// TraderAccounts is the set of derived addresses for a single trader ledger
// under an owner's vault.
type TraderAccounts struct {
	Owner  *Account
	Trader *Account

	Vault     *Account
	VaultBump uint8

	State     *Account
	StateBump uint8
}

func NewAccountFromPublicKey(publicKey *Key) (*Account, error) {
	account := &Account{
		publicKey: publicKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPublicKeyBytes(publicKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPublicKeyString(publicKey string) (*Account, error) {
	key, err := NewKeyFromString(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPrivateKey(privateKey *Key) (*Account, error) {
	publicKeyBytes := ed25519.PrivateKey(privateKey.ToBytes()).Public().(ed25519.PublicKey)
	publicKey, err := NewKeyFromBytes(publicKeyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "error creating public key from private key")
	}

	account := &Account{
		publicKey:  publicKey,
		privateKey: privateKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPrivateKeyString(privateKey string) (*Account, error) {
	key, err := NewKeyFromString(privateKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPrivateKey(key)
}

func NewRandomAccount() (*Account, error) {
	key, err := NewRandomKey()
	if err != nil {
		return nil, err
	}

	account, err := NewAccountFromPrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid account")
	}

	return account, nil
}

func (a *Account) PublicKey() *Key {
	return a.publicKey
}

func (a *Account) PrivateKey() *Key {
	return a.privateKey
}

func (a *Account) Sign(message []byte) ([]byte, error) {
	if a.privateKey == nil {
		return nil, errors.New("private key not available")
	}

	signature := ed25519.Sign(a.privateKey.ToBytes(), message)
	return signature, nil
}

func (a *Account) ToAssociatedTokenAccount(mint *Account) (*Account, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating owner account")
	}

	ata, err := token.GetAssociatedAccount(a.PublicKey().ToBytes(), mint.PublicKey().ToBytes())
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKeyBytes(ata)
}

// GetTraderAccounts derives the vault and trader ledger addresses for a
// trader being copied under this account's vault.
func (a *Account) GetTraderAccounts(trader *Account) (*TraderAccounts, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating owner account")
	}
	if err := trader.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating trader account")
	}

	vaultAddress, vaultBump, err := stellalpha_vault.GetUserVaultAddress(&stellalpha_vault.GetUserVaultAddressArgs{
		Owner: a.PublicKey().ToBytes(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "error getting vault address")
	}

	stateAddress, stateBump, err := stellalpha_vault.GetTraderStateAddress(&stellalpha_vault.GetTraderStateAddressArgs{
		Owner:  a.PublicKey().ToBytes(),
		Trader: trader.PublicKey().ToBytes(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "error getting trader state address")
	}

	vaultAccount, err := NewAccountFromPublicKeyBytes(vaultAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid vault address")
	}

	stateAccount, err := NewAccountFromPublicKeyBytes(stateAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid trader state address")
	}

	return &TraderAccounts{
		Owner:  a,
		Trader: trader,

		Vault:     vaultAccount,
		VaultBump: vaultBump,

		State:     stateAccount,
		StateBump: stateBump,
	}, nil
}

func (a *Account) IsOnCurve() bool {
	return isOnCurve(a.PublicKey().ToBytes())
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if err := a.PublicKey().Validate(); err != nil {
		return errors.Wrap(err, "error validating public key")
	}

	if !a.PublicKey().IsPublic() {
		return errors.New("public key isn't public")
	}

	// Private keys are optional
	if a.privateKey == nil {
		return nil
	}

	if err := a.privateKey.Validate(); err != nil {
		return errors.Wrap(err, "error validating private key")
	}

	if a.privateKey.IsPublic() {
		return errors.New("private key isn't private")
	}

	expectedPublicKey := ed25519.PrivateKey(a.privateKey.ToBytes()).Public().(ed25519.PublicKey)
	if !bytes.Equal(a.PublicKey().ToBytes(), expectedPublicKey) {
		return errors.New("private key doesn't map to public key")
	}

	return nil
}

func (a *Account) String() string {
	return a.PublicKey().ToBase58()
}

func isOnCurve(pubKey ed25519.PublicKey) bool {
	if len(pubKey) != ed25519.PublicKeySize {
		return false
	}

	var compressed [32]byte
	copy(compressed[:], pubKey)

	var A edwards25519.ExtendedGroupElement
	return A.FromBytes(&compressed)
}
