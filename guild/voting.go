package guild

import (
	"fmt"
	"math"

	"github.com/calehh/guild-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// VotingEngine admits weighted votes on open proposals.
type VotingEngine struct {
	params    types.Params
	members   MembershipRegistry
	proposals ProposalStore
}

func NewVotingEngine(params types.Params, members MembershipRegistry, proposals ProposalStore) VotingEngine {
	return VotingEngine{params: params, members: members, proposals: proposals}
}

// VotingEnd is the first height at which p no longer accepts votes.
func (v VotingEngine) VotingEnd(p *types.Proposal) uint64 {
	end, err := addUint64(p.StartTime, v.params.VotingPeriod)
	if err != nil {
		return math.MaxUint64
	}
	return end
}

// Vote records sender's vote on hash. Only members admitted before the
// proposal was created may vote. The counted weight is the sender's current
// shares, capped so shares granted since creation never push yes and no past
// the proposal's max weight.
func (v VotingEngine) Vote(st Store, sender common.Address, hash common.Hash, approve bool, now uint64) (*types.EventVoted, error) {
	m, err := v.members.Member(st, sender)
	if err != nil {
		return nil, err
	}
	if !m.Exists {
		return nil, ErrNotMember
	}
	p, err := v.proposals.Proposal(st, hash)
	if err != nil {
		return nil, err
	}
	if p.Processed {
		return nil, ErrAlreadyProcessed
	}
	if !m.EligibleFor(p.Index) {
		return nil, fmt.Errorf("%w: joined after proposal %d", ErrNotMember, p.Index)
	}
	if now < p.StartTime || now >= v.VotingEnd(p) {
		return nil, ErrVotingClosed
	}
	voted, err := v.HasVoted(st, hash, sender)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrAlreadyVoted
	}

	weight := m.Shares
	if remaining := p.MaxWeight - p.YesWeight - p.NoWeight; weight > remaining {
		weight = remaining
	}
	if approve {
		p.YesWeight += weight
	} else {
		p.NoWeight += weight
	}
	if err = v.proposals.Save(st, p); err != nil {
		return nil, err
	}
	if err = st.Set(votedKey(hash, sender), sender.Bytes()); err != nil {
		return nil, err
	}
	if approve {
		if err = v.members.RaiseHighestApproved(st, sender, p.Index); err != nil {
			return nil, err
		}
	}
	return &types.EventVoted{
		Hash:      hash,
		Voter:     sender,
		Approve:   approve,
		Weight:    weight,
		YesWeight: p.YesWeight,
		NoWeight:  p.NoWeight,
	}, nil
}

func (v VotingEngine) HasVoted(st Store, hash common.Hash, account common.Address) (bool, error) {
	val, err := st.Get(votedKey(hash, account))
	if err != nil {
		return false, fmt.Errorf("read vote: %w", err)
	}
	return len(val) != 0, nil
}

// VotersFor lists the accounts that voted on hash in address order.
func (v VotingEngine) VotersFor(st Store, hash common.Hash) ([]common.Address, error) {
	var res []common.Address
	prefix := []byte(fmt.Sprintf(KeyVoted, hash))
	err := st.Iterate(prefix, func(_, value []byte) bool {
		res = append(res, common.BytesToAddress(value))
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
