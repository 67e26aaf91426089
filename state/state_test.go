package state

import (
	"testing"

	"github.com/calehh/guild-app/tx"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *StateDB {
	t.Helper()
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func commit(t *testing.T, db *StateDB, st *State) {
	t.Helper()
	_, err := st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)
}

func collect(t *testing.T, st *State, prefix string) map[string]string {
	t.Helper()
	res := map[string]string{}
	var order []string
	require.NoError(t, st.Iterate([]byte(prefix), func(key, value []byte) bool {
		res[string(key)] = string(value)
		order = append(order, string(key))
		return true
	}))
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1], order[i])
	}
	return res
}

func TestStateOverlay(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	require.NoError(t, st.Set([]byte("k1"), []byte("a")))
	require.NoError(t, st.Set([]byte("k2"), []byte("b")))
	commit(t, db, st)

	st = db.NewState()
	assert.Equal(t, uint64(1), st.Height())
	val, err := st.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), val)

	clone := st.Clone()
	require.NoError(t, clone.Set([]byte("k1"), []byte("c")))
	require.NoError(t, clone.Delete([]byte("k2")))
	require.NoError(t, clone.Set([]byte("k3"), []byte("d")))

	// st is untouched until the clone is adopted
	assert.Equal(t, map[string]string{"k1": "a", "k2": "b"}, collect(t, st, "k"))
	assert.Equal(t, map[string]string{"k1": "c", "k3": "d"}, collect(t, clone, "k"))

	val, err = clone.Get([]byte("k2"))
	require.NoError(t, err)
	assert.Nil(t, val)

	commit(t, db, clone)
	st = db.NewState()
	assert.Equal(t, map[string]string{"k1": "c", "k3": "d"}, collect(t, st, "k"))
	val, err = st.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestStateIterateStopsEarly(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	for _, k := range []string{"p3", "p1", "p2", "q1"} {
		require.NoError(t, st.Set([]byte(k), []byte(k)))
	}
	var seen []string
	require.NoError(t, st.Iterate([]byte("p"), func(key, _ []byte) bool {
		seen = append(seen, string(key))
		return len(seen) < 2
	}))
	assert.Equal(t, []string{"p1", "p2"}, seen)
}

func TestStateHashChanges(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	st.SetChainId("guild-test")
	require.NoError(t, st.Set([]byte("k"), []byte("v")))
	h1, err := st.Update()
	require.NoError(t, err)
	saved, err := db.SetState(st)
	require.NoError(t, err)
	assert.Equal(t, h1, saved)
	assert.Equal(t, saved, st.Hash())

	header := db.Header()
	assert.Equal(t, "guild-test", header.ChainId)
	assert.Equal(t, saved.Bytes(), header.Hash)

	st = db.NewState()
	require.NoError(t, st.Set([]byte("k"), []byte("w")))
	h2, err := st.Update()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestSnapshotIsReadOnly(t *testing.T) {
	db := newTestDB(t)
	snap, err := db.Snapshot()
	require.NoError(t, err)
	val, err := snap.Get([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.Empty(t, collect(t, snap, "k"))

	st := db.NewState()
	require.NoError(t, st.Set([]byte("k"), []byte("v1")))
	commit(t, db, st)

	snap, err = db.Snapshot()
	require.NoError(t, err)
	require.ErrorIs(t, snap.Set([]byte("k"), []byte("x")), ErrStateReadOnly)
	_, err = snap.Update()
	require.ErrorIs(t, err, ErrStateReadOnly)

	st = db.NewState()
	require.NoError(t, st.Set([]byte("k"), []byte("v2")))
	commit(t, db, st)

	// an older snapshot keeps its version
	val, err = snap.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
}

func TestStateDBReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	st.SetChainId("guild-test")
	require.NoError(t, st.Set([]byte("k"), []byte("v")))
	commit(t, db, st)
	hash := st.Hash()
	require.NoError(t, db.Close())

	db, err = NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()
	header := db.Header()
	assert.Equal(t, uint64(0), header.Height)
	assert.Equal(t, "guild-test", header.ChainId)
	assert.Equal(t, hash.Bytes(), header.Hash)

	st = db.NewState()
	assert.Equal(t, uint64(1), st.Height())
	val, err := st.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func signedTx(t *testing.T, key ed25519.PrivKey, nonce uint64, chainID string) *tx.GuildTx {
	t.Helper()
	btx := &tx.GuildTx{
		Version: tx.GuildTxVersion0,
		Type:    tx.GuildTxTypeRageQuit,
		Nonce:   nonce,
		Tx:      &tx.RageQuitTx{},
	}
	require.NoError(t, btx.Sign(key, chainID))
	dat, err := tx.MarshalGuildTx(btx)
	require.NoError(t, err)
	decoded, err := tx.UnmarshalGuildTx(dat)
	require.NoError(t, err)
	return decoded
}

func TestVerifyAndNonce(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	st.SetChainId("guild-test")
	key := ed25519.GenPrivKey()

	acnt, err := st.Verify(signedTx(t, key, 0, "guild-test"), false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), acnt.Nonce)
	assert.Equal(t, tx.AddressFromPubKey(key.PubKey().Bytes()), acnt.Address())

	_, err = st.Verify(signedTx(t, key, 0, "other-chain"), false)
	require.ErrorIs(t, err, ErrTxSigInvalid)

	require.NoError(t, st.IncNonce(acnt))
	_, err = st.Verify(signedTx(t, key, 0, "guild-test"), false)
	require.ErrorIs(t, err, ErrTxNonceInvalid)
	_, err = st.Verify(signedTx(t, key, 3, "guild-test"), false)
	require.ErrorIs(t, err, ErrTxNonceInvalid)
	_, err = st.Verify(signedTx(t, key, 3, "guild-test"), true)
	require.NoError(t, err)

	stored, err := st.GetAccount(acnt.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.Nonce)
	assert.Equal(t, []byte(key.PubKey().Bytes()), stored.PubKey)
}

func TestStateHeaderWire(t *testing.T) {
	h := &StateHeader{Height: 42, ChainId: "guild", Hash: []byte{1, 2}, RootHash: []byte{3}}
	var decoded StateHeader
	require.NoError(t, decoded.Unmarshal(h.Marshal()))
	assert.Equal(t, *h, decoded)

	require.Error(t, decoded.Unmarshal([]byte{0x08}))
}

func TestPrefixEndBytes(t *testing.T) {
	assert.Equal(t, []byte("q"), PrefixEndBytes([]byte("p")))
	assert.Equal(t, []byte{0x01}, PrefixEndBytes([]byte{0x00, 0xff}))
	assert.Nil(t, PrefixEndBytes([]byte{0xff}))
	assert.Nil(t, PrefixEndBytes(nil))
}
