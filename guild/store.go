package guild

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Store is the key/value state a ledger call reads and writes. Absent keys
// read as nil. Iterate visits keys with the given prefix in ascending order
// until fn returns false.
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Iterate(prefix []byte, fn func(key, value []byte) bool) error
}

// Env supplies the logical clock and the verified caller of the current call.
type Env interface {
	Height() uint64
	Caller() common.Address
}

type CallEnv struct {
	height uint64
	caller common.Address
}

func NewCallEnv(height uint64, caller common.Address) CallEnv {
	return CallEnv{height: height, caller: caller}
}

func (e CallEnv) Height() uint64         { return e.height }
func (e CallEnv) Caller() common.Address { return e.caller }

// BankAddress holds escrowed tributes and bonds. No key controls it.
var BankAddress = common.BytesToAddress(crypto.Keccak256([]byte("guild/bank")))

var (
	KeyInitialized   = "g/init"
	KeyProposalCount = "g/count"
	KeyTotalShares   = "g/shares"
	KeyParams        = "g/params"
	KeyBalance       = "b%x"
	KeyMember        = "m%x"
	KeyProposal      = "p%x"
	KeyProposalIndex = "i%08x"
	KeySponsored     = "f%x/"
	KeyVoted         = "v%x/"
)

func sponsoredKey(sponsor common.Address, hash common.Hash) []byte {
	return []byte(fmt.Sprintf(KeySponsored+"%x", sponsor, hash))
}

func votedKey(hash common.Hash, voter common.Address) []byte {
	return []byte(fmt.Sprintf(KeyVoted+"%x", hash, voter))
}

func getUint(st Store, key string) (uint64, error) {
	val, err := st.Get([]byte(key))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	return bigUint(val), nil
}

// setUint stores v as a big-endian integer. Zero removes the key.
func setUint(st Store, key string, v uint64) error {
	if v == 0 {
		return st.Delete([]byte(key))
	}
	return st.Set([]byte(key), new(big.Int).SetUint64(v).Bytes())
}

func bigUint(val []byte) uint64 {
	return new(big.Int).SetBytes(val).Uint64()
}

// addressFromKey parses the hex address that starts at offset in key.
func addressFromKey(key []byte, offset int) (common.Address, bool) {
	end := offset + 2*common.AddressLength
	if len(key) < end {
		return common.Address{}, false
	}
	raw := common.FromHex(string(key[offset:end]))
	if len(raw) != common.AddressLength {
		return common.Address{}, false
	}
	return common.BytesToAddress(raw), true
}

func getRLP(st Store, key string, v any) (found bool, err error) {
	val, err := st.Get([]byte(key))
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if len(val) == 0 {
		return false, nil
	}
	if err = rlp.DecodeBytes(val, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func setRLP(st Store, key string, v any) error {
	val, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return st.Set([]byte(key), val)
}

func addUint64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}
