package guild

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TokenLedger is the fixed-supply balance table. Tokens only enter it through
// Credit at bootstrap; every other movement is a Transfer.
type TokenLedger struct {
	supply uint64
}

func NewTokenLedger(supply uint64) TokenLedger {
	return TokenLedger{supply: supply}
}

func balanceKey(account common.Address) string {
	return fmt.Sprintf(KeyBalance, account)
}

func (l TokenLedger) TotalSupply() uint64 {
	return l.supply
}

func (l TokenLedger) BalanceOf(st Store, account common.Address) (uint64, error) {
	return getUint(st, balanceKey(account))
}

func (l TokenLedger) Credit(st Store, account common.Address, amount uint64) error {
	bal, err := l.BalanceOf(st, account)
	if err != nil {
		return err
	}
	bal, err = addUint64(bal, amount)
	if err != nil {
		return err
	}
	return setUint(st, balanceKey(account), bal)
}

// Transfer moves amount from one account to another. Both balances are
// checked before either is written.
func (l TokenLedger) Transfer(st Store, from, to common.Address, amount uint64) error {
	fromBal, err := l.BalanceOf(st, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	toBal, err := l.BalanceOf(st, to)
	if err != nil {
		return err
	}
	toBal, err = addUint64(toBal, amount)
	if err != nil {
		return err
	}
	if err = setUint(st, balanceKey(from), fromBal-amount); err != nil {
		return err
	}
	return setUint(st, balanceKey(to), toBal)
}

// Balances returns every non-zero balance.
func (l TokenLedger) Balances(st Store) (map[common.Address]uint64, error) {
	balances := make(map[common.Address]uint64)
	var decodeErr error
	err := st.Iterate([]byte("b"), func(key, value []byte) bool {
		addr, ok := addressFromKey(key, 1)
		if !ok {
			decodeErr = fmt.Errorf("malformed balance key %q", key)
			return false
		}
		balances[addr] = bigUint(value)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return balances, nil
}
