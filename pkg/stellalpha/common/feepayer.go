package common

import (
	"errors"
	"sync"

	"github.com/stellalpha/stellalpha-server/pkg/solana"
)

const (
	// Ensure this is a large enough buffer for rent on created token accounts
	// plus transaction fees. The enforcement of a min balance isn't perfect
	// to say the least.
	minFeePayerBalance = 100_000_000 // 0.1 SOL
)

var (
	feePayerAccountLock sync.RWMutex
	feePayerAccount     *Account

	ErrFeePayerRequiresFunding = errors.New("fee payer requires funding")
)

// GetFeePayer gets the backend fee payer account, as initially loaded in
// LoadFeePayer
func GetFeePayer() *Account {
	feePayerAccountLock.RLock()
	defer feePayerAccountLock.RUnlock()

	if feePayerAccount == nil {
		panic("fee payer wasn't loaded")
	}

	copied, err := NewAccountFromPrivateKeyString(feePayerAccount.PrivateKey().ToBase58())
	if err != nil {
		panic(err)
	}

	return copied
}

// LoadFeePayer loads the backend fee payer account from a base58-encoded
// private key. This should be done exactly once on app launch. Use
// GetFeePayer to get the Account struct.
func LoadFeePayer(privateKey string) error {
	feePayerAccountLock.Lock()
	defer feePayerAccountLock.Unlock()

	account, err := NewAccountFromPrivateKeyString(privateKey)
	if err != nil {
		return err
	}

	if feePayerAccount != nil {
		if feePayerAccount.PublicKey().ToBase58() == account.PublicKey().ToBase58() {
			return nil
		}

		return errors.New("unexpected fee payer account already loaded")
	}

	feePayerAccount = account

	return nil
}

// InjectTestFeePayer injects a provided fee payer account for tests.
func InjectTestFeePayer(account *Account) {
	feePayerAccountLock.Lock()
	defer feePayerAccountLock.Unlock()

	feePayerAccount = account
}

// EnforceMinimumFeePayerBalance returns ErrFeePayerRequiresFunding when the
// fee payer's balance is below the safety buffer.
func EnforceMinimumFeePayerBalance(client solana.Client) error {
	feePayer := GetFeePayer()

	balance, err := client.GetBalance(feePayer.PublicKey().ToBytes())
	if err != nil {
		return err
	}

	if balance < minFeePayerBalance {
		return ErrFeePayerRequiresFunding
	}

	return nil
}
