package state

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/calehh/guild-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	KeyState   = "s"
	KeyAccount = "a%x"
)

var (
	ErrTxNonceInvalid = errors.New("nonce invalid")
	ErrTxSigInvalid   = errors.New("signature invalid")
	ErrStateReadOnly  = errors.New("state is read only")
)

type treeReader interface {
	Get(key []byte) ([]byte, error)
	Iterator(start, end []byte, ascending bool) (dbm.Iterator, error)
}

type entry struct {
	value   []byte
	deleted bool
}

// State is a write overlay over the committed IAVL tree. Writes stay in the
// overlay until Update flushes them, so a Clone can be dropped to revert a
// failed transaction.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	tree   treeReader
	dbVer  int64

	header *StateHeader
	dirty  map[string]entry
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		logger: logger,
		db:     db,
		tree:   db,
		header: new(StateHeader),
		dirty:  make(map[string]entry),
	}
}

func (s *State) nextState() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		tree:   s.tree,
		dbVer:  s.dbVer,
		dirty:  make(map[string]entry),
	}
	n.header = s.header.Clone()
	if s.header.GetHash() != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

// Clone copies the overlay. The clone shares the tree and diverges from s on
// the first write.
func (s *State) Clone() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		tree:   s.tree,
		dbVer:  s.dbVer,
		header: s.header.Clone(),
		dirty:  make(map[string]entry, len(s.dirty)),
	}
	for k, v := range s.dirty {
		n.dirty[k] = v
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.tree.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = s.header.Unmarshal(val)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = append(s.header.RootHash[:0], rootHash...)
		s.header.Hash = append(s.header.Hash[:0], h[:]...)
	}
	return
}

func (s *State) Get(key []byte) ([]byte, error) {
	if e, ok := s.dirty[string(key)]; ok {
		if e.deleted {
			return nil, nil
		}
		return e.value, nil
	}
	val, err := s.tree.Get(key)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func (s *State) Set(key, value []byte) error {
	if s.db == nil {
		return ErrStateReadOnly
	}
	if len(key) == 0 {
		return fmt.Errorf("empty key")
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.dirty[string(key)] = entry{value: v}
	return nil
}

func (s *State) Delete(key []byte) error {
	if s.db == nil {
		return ErrStateReadOnly
	}
	s.dirty[string(key)] = entry{deleted: true}
	return nil
}

// Iterate visits the merged view of tree and overlay under prefix in key
// order.
func (s *State) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	merged := make(map[string][]byte)
	it, err := s.tree.Iterator(prefix, PrefixEndBytes(prefix), true)
	if err != nil {
		return err
	}
	for ; it.Valid(); it.Next() {
		merged[string(it.Key())] = it.Value()
	}
	err = it.Error()
	if closeErr := it.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	for k, e := range s.dirty {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if e.deleted {
			delete(merged, k)
		} else {
			merged[k] = e.value
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), merged[k]) {
			return nil
		}
	}
	return nil
}

// Update flushes the overlay into the working tree in key order and returns
// the resulting state hash. The tree is rolled back if any write fails.
func (s *State) Update() (h common.Hash, err error) {
	if s.db == nil {
		return h, ErrStateReadOnly
	}
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	_, err = s.db.Set([]byte(KeyState), s.header.Marshal())
	if err != nil {
		return
	}

	keys := make([]string, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := s.dirty[k]
		if e.deleted {
			_, _, err = s.db.Remove([]byte(k))
		} else {
			_, err = s.db.Set([]byte(k), e.value)
		}
		if err != nil {
			return
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.dirty = make(map[string]entry)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Height() uint64 {
	return s.header.Height
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) GetAccount(addr common.Address) (acnt *Account, err error) {
	val, err := s.Get([]byte(fmt.Sprintf(KeyAccount, addr)))
	if err != nil {
		return nil, err
	}
	if len(val) == 0 {
		return nil, nil
	}
	acnt = new(Account)
	if err = rlp.DecodeBytes(val, acnt); err != nil {
		return nil, err
	}
	return
}

func (s *State) SetAccount(acnt *Account) error {
	val, err := rlp.EncodeToBytes(acnt)
	if err != nil {
		return err
	}
	return s.Set([]byte(fmt.Sprintf(KeyAccount, acnt.Address())), val)
}

// Verify checks the envelope signature and nonce. Unknown senders start at
// nonce zero with the key carried by the tx.
func (s *State) Verify(btx *tx.GuildTx, allowNonceGap bool) (acnt *Account, err error) {
	sender, err := btx.Sender()
	if err != nil {
		return nil, err
	}
	acnt, err = s.GetAccount(sender)
	if err != nil {
		return nil, err
	}
	if acnt == nil {
		acnt = &Account{}
		acnt.SetPubKey(btx.PubKey)
	}
	if !(acnt.Nonce == btx.Nonce || (allowNonceGap && acnt.Nonce < btx.Nonce)) {
		err = ErrTxNonceInvalid
		return
	}
	dat, err := btx.SigData([]byte(s.header.ChainId))
	if err != nil {
		return nil, err
	}
	if !acnt.Verify(dat, btx.Sig) {
		err = ErrTxSigInvalid
	}
	return
}

// IncNonce consumes the nonce of a verified sender.
func (s *State) IncNonce(acnt *Account) error {
	n := acnt.Clone()
	n.Nonce += 1
	return s.SetAccount(n)
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
