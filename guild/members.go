package guild

import (
	"fmt"

	"github.com/calehh/guild-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// MembershipRegistry tracks members, their share weight and the highest
// proposal index each has approved.
type MembershipRegistry struct {
	ledger        TokenLedger
	initialShares uint64
}

func NewMembershipRegistry(ledger TokenLedger, initialShares uint64) MembershipRegistry {
	return MembershipRegistry{ledger: ledger, initialShares: initialShares}
}

func memberKey(account common.Address) string {
	return fmt.Sprintf(KeyMember, account)
}

func (r MembershipRegistry) Initialized(st Store) (bool, error) {
	v, err := getUint(st, KeyInitialized)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Bootstrap creates the first member and credits it the whole supply. It
// succeeds once per ledger.
func (r MembershipRegistry) Bootstrap(st Store, member common.Address) error {
	initialized, err := r.Initialized(st)
	if err != nil {
		return err
	}
	if initialized {
		return ErrAlreadyInitialized
	}
	if err = r.ledger.Credit(st, member, r.ledger.TotalSupply()); err != nil {
		return err
	}
	m := types.Member{Exists: true, Shares: r.initialShares}
	if err = r.save(st, member, &m); err != nil {
		return err
	}
	if err = setUint(st, KeyTotalShares, r.initialShares); err != nil {
		return err
	}
	return setUint(st, KeyInitialized, 1)
}

// Member returns the stored record, or the zero Member for unknown accounts.
func (r MembershipRegistry) Member(st Store, account common.Address) (types.Member, error) {
	var m types.Member
	if _, err := getRLP(st, memberKey(account), &m); err != nil {
		return types.Member{}, err
	}
	return m, nil
}

func (r MembershipRegistry) IsMember(st Store, account common.Address) (bool, error) {
	m, err := r.Member(st, account)
	if err != nil {
		return false, err
	}
	return m.Exists, nil
}

func (r MembershipRegistry) TotalShares(st Store) (uint64, error) {
	return getUint(st, KeyTotalShares)
}

// Admit creates or re-activates account and grants it shares. A new or
// returning member is stamped with the current proposal count so it cannot
// vote on proposals created before it joined.
func (r MembershipRegistry) Admit(st Store, account common.Address, shares uint64) error {
	m, err := r.Member(st, account)
	if err != nil {
		return err
	}
	total, err := r.TotalShares(st)
	if err != nil {
		return err
	}
	if !m.Exists {
		count, err := getUint(st, KeyProposalCount)
		if err != nil {
			return err
		}
		m.JoinedAt = uint32(count)
	}
	if m.Shares, err = addUint64(m.Shares, shares); err != nil {
		return err
	}
	if total, err = addUint64(total, shares); err != nil {
		return err
	}
	m.Exists = true
	if err = r.save(st, account, &m); err != nil {
		return err
	}
	return setUint(st, KeyTotalShares, total)
}

// Remove marks account absent and burns its shares. The approval marker is
// kept as history.
func (r MembershipRegistry) Remove(st Store, account common.Address) (burned uint64, err error) {
	m, err := r.Member(st, account)
	if err != nil {
		return 0, err
	}
	if !m.Exists {
		return 0, ErrNotMember
	}
	total, err := r.TotalShares(st)
	if err != nil {
		return 0, err
	}
	burned = m.Shares
	if burned > total {
		return 0, fmt.Errorf("member %s holds %v shares of %v outstanding", account, burned, total)
	}
	m.Exists = false
	m.Shares = 0
	if err = r.save(st, account, &m); err != nil {
		return 0, err
	}
	return burned, setUint(st, KeyTotalShares, total-burned)
}

// RaiseHighestApproved moves the approval marker of account up to index.
// Lower indexes leave it unchanged.
func (r MembershipRegistry) RaiseHighestApproved(st Store, account common.Address, index uint32) error {
	m, err := r.Member(st, account)
	if err != nil {
		return err
	}
	if index <= m.HighestApprovedIndex {
		return nil
	}
	m.HighestApprovedIndex = index
	return r.save(st, account, &m)
}

// Members lists current members in address order.
func (r MembershipRegistry) Members(st Store) ([]common.Address, error) {
	var (
		res       []common.Address
		decodeErr error
	)
	err := st.Iterate([]byte("m"), func(key, value []byte) bool {
		addr, ok := addressFromKey(key, 1)
		if !ok {
			decodeErr = fmt.Errorf("malformed member key %q", key)
			return false
		}
		var m types.Member
		if decodeErr = rlp.DecodeBytes(value, &m); decodeErr != nil {
			return false
		}
		if m.Exists {
			res = append(res, addr)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, decodeErr
}

func (r MembershipRegistry) MemberCount(st Store) (int, error) {
	members, err := r.Members(st)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

func (r MembershipRegistry) save(st Store, account common.Address, m *types.Member) error {
	return setRLP(st, memberKey(account), m)
}
