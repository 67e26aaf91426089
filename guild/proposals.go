package guild

import (
	"errors"
	"fmt"
	"math"

	"github.com/calehh/guild-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ProposalStore keeps proposal records, the per-sponsor set of unresolved
// proposals and the sequence index.
type ProposalStore struct {
	params  types.Params
	ledger  TokenLedger
	members MembershipRegistry
}

func NewProposalStore(params types.Params, ledger TokenLedger, members MembershipRegistry) ProposalStore {
	return ProposalStore{params: params, ledger: ledger, members: members}
}

type proposalPreimage struct {
	Proposer        common.Address
	Applicant       common.Address
	SharesRequested uint32
	TokenTribute    uint64
	Index           uint32
}

// ProposalHash identifies a proposal by its content and sequence index, so
// identical submissions at different times get different hashes.
func ProposalHash(proposer, applicant common.Address, sharesRequested uint32, tokenTribute uint64, index uint32) common.Hash {
	enc, err := rlp.EncodeToBytes(&proposalPreimage{
		Proposer:        proposer,
		Applicant:       applicant,
		SharesRequested: sharesRequested,
		TokenTribute:    tokenTribute,
		Index:           index,
	})
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

func proposalKey(hash common.Hash) string {
	return fmt.Sprintf(KeyProposal, hash)
}

func proposalIndexKey(index uint32) string {
	return fmt.Sprintf(KeyProposalIndex, index)
}

// Escrow is the amount moved from the sponsor to the bank on propose.
func (s ProposalStore) Escrow(tokenTribute uint64) (uint64, error) {
	amount, err := addUint64(tokenTribute, s.params.ProposalBond)
	if err != nil {
		return 0, err
	}
	return addUint64(amount, s.params.ProposalFee)
}

// Propose records a new proposal sponsored by sender and escrows its tribute,
// bond and fee in the bank.
func (s ProposalStore) Propose(st Store, sender, applicant common.Address, sharesRequested uint32, tokenTribute, now uint64) (*types.Proposal, uint64, error) {
	isMember, err := s.members.IsMember(st, sender)
	if err != nil {
		return nil, 0, err
	}
	if !isMember {
		return nil, 0, ErrNotMember
	}
	escrow, err := s.Escrow(tokenTribute)
	if err != nil {
		return nil, 0, err
	}
	balance, err := s.ledger.BalanceOf(st, sender)
	if err != nil {
		return nil, 0, err
	}
	if balance < escrow {
		return nil, 0, ErrInsufficientFunds
	}
	count, err := s.ProposalCount(st)
	if err != nil {
		return nil, 0, err
	}
	if count == math.MaxUint32 {
		return nil, 0, ErrOverflow
	}
	index := count + 1
	hash := ProposalHash(sender, applicant, sharesRequested, tokenTribute, index)
	if _, err = s.Proposal(st, hash); err == nil {
		return nil, 0, ErrDuplicateProposal
	} else if !errors.Is(err, ErrProposalNotFound) {
		return nil, 0, err
	}
	startTime, err := addUint64(now, s.params.StartingPeriod)
	if err != nil {
		return nil, 0, err
	}
	maxWeight, err := s.members.TotalShares(st)
	if err != nil {
		return nil, 0, err
	}

	if err = s.ledger.Transfer(st, sender, BankAddress, escrow); err != nil {
		return nil, 0, err
	}
	p := &types.Proposal{
		Hash:            hash,
		Index:           index,
		Proposer:        sender,
		Applicant:       applicant,
		SharesRequested: sharesRequested,
		TokenTribute:    tokenTribute,
		StartTime:       startTime,
		MaxWeight:       maxWeight,
	}
	if err = s.Save(st, p); err != nil {
		return nil, 0, err
	}
	if err = st.Set([]byte(proposalIndexKey(index)), hash.Bytes()); err != nil {
		return nil, 0, err
	}
	if err = st.Set(sponsoredKey(sender, hash), hash.Bytes()); err != nil {
		return nil, 0, err
	}
	if err = setUint(st, KeyProposalCount, uint64(index)); err != nil {
		return nil, 0, err
	}
	return p, escrow, nil
}

func (s ProposalStore) Proposal(st Store, hash common.Hash) (*types.Proposal, error) {
	p := new(types.Proposal)
	found, err := getRLP(st, proposalKey(hash), p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrProposalNotFound
	}
	return p, nil
}

func (s ProposalStore) ProposalByIndex(st Store, index uint32) (*types.Proposal, error) {
	val, err := st.Get([]byte(proposalIndexKey(index)))
	if err != nil {
		return nil, err
	}
	if len(val) != common.HashLength {
		return nil, ErrProposalNotFound
	}
	return s.Proposal(st, common.BytesToHash(val))
}

func (s ProposalStore) ProposalCount(st Store) (uint32, error) {
	count, err := getUint(st, KeyProposalCount)
	if err != nil {
		return 0, err
	}
	return uint32(count), nil
}

func (s ProposalStore) Save(st Store, p *types.Proposal) error {
	return setRLP(st, proposalKey(p.Hash), p)
}

// ProposalsFor returns the unresolved proposals sponsored by account in hash
// order.
func (s ProposalStore) ProposalsFor(st Store, account common.Address) ([]common.Hash, error) {
	var res []common.Hash
	prefix := []byte(fmt.Sprintf(KeySponsored, account))
	err := st.Iterate(prefix, func(_, value []byte) bool {
		res = append(res, common.BytesToHash(value))
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s ProposalStore) HasPending(st Store, account common.Address) (bool, error) {
	pending := false
	prefix := []byte(fmt.Sprintf(KeySponsored, account))
	err := st.Iterate(prefix, func(_, _ []byte) bool {
		pending = true
		return false
	})
	return pending, err
}

// Resolve marks p processed and drops it from its sponsor's pending set.
func (s ProposalStore) Resolve(st Store, p *types.Proposal, passed bool) error {
	p.Passed = passed
	p.Processed = true
	if err := s.Save(st, p); err != nil {
		return err
	}
	return st.Delete(sponsoredKey(p.Proposer, p.Hash))
}
