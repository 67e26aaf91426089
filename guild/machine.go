package guild

import (
	"math"
	"math/bits"

	"github.com/calehh/guild-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

// Machine runs the guild calls against a Store. It holds no state of its
// own besides the immutable params, so one Machine serves every block.
// A call that returns an error may have written partially to st; callers
// discard st in that case.
type Machine struct {
	params    types.Params
	logger    cmtlog.Logger
	ledger    TokenLedger
	members   MembershipRegistry
	proposals ProposalStore
	voting    VotingEngine
}

func NewMachine(params types.Params, logger cmtlog.Logger) (*Machine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = cmtlog.NewNopLogger()
	}
	ledger := NewTokenLedger(params.TotalSupply)
	members := NewMembershipRegistry(ledger, params.InitialShares)
	proposals := NewProposalStore(params, ledger, members)
	return &Machine{
		params:    params,
		logger:    logger.With("module", "guild"),
		ledger:    ledger,
		members:   members,
		proposals: proposals,
		voting:    NewVotingEngine(params, members, proposals),
	}, nil
}

func SaveParams(st Store, params types.Params) error {
	return setRLP(st, KeyParams, &params)
}

func LoadParams(st Store) (params types.Params, found bool, err error) {
	found, err = getRLP(st, KeyParams, &params)
	return params, found, err
}

// Init bootstraps the caller as the first member holding the entire supply.
func (m *Machine) Init(st Store, env Env) ([]types.Event, error) {
	member := env.Caller()
	if err := m.members.Bootstrap(st, member); err != nil {
		return nil, err
	}
	m.logger.Debug("guild initialized", "member", member, "supply", m.params.TotalSupply)
	return []types.Event{
		&types.EventInitialized{Member: member, Supply: m.params.TotalSupply, Shares: m.params.InitialShares},
		&types.EventTransfer{From: common.Address{}, To: member, Amount: m.params.TotalSupply},
	}, nil
}

func (m *Machine) Propose(st Store, env Env, applicant common.Address, sharesRequested uint32, tokenTribute uint64) (common.Hash, []types.Event, error) {
	sender := env.Caller()
	p, escrow, err := m.proposals.Propose(st, sender, applicant, sharesRequested, tokenTribute, env.Height())
	if err != nil {
		return common.Hash{}, nil, err
	}
	var events []types.Event
	if escrow > 0 {
		events = append(events, &types.EventTransfer{From: sender, To: BankAddress, Amount: escrow})
	}
	events = append(events, &types.EventProposed{
		Hash:            p.Hash,
		Index:           p.Index,
		Tribute:         p.TokenTribute,
		Sponsor:         sender,
		Applicant:       applicant,
		SharesRequested: sharesRequested,
		StartTime:       p.StartTime,
	})
	m.logger.Debug("proposal submitted", "hash", p.Hash, "index", p.Index, "sponsor", sender)
	return p.Hash, events, nil
}

func (m *Machine) Vote(st Store, env Env, hash common.Hash, approve bool) ([]types.Event, error) {
	ev, err := m.voting.Vote(st, env.Caller(), hash, approve, env.Height())
	if err != nil {
		return nil, err
	}
	m.logger.Debug("vote cast", "hash", hash, "voter", ev.Voter, "approve", approve, "weight", ev.Weight)
	return []types.Event{ev}, nil
}

// Process advances hash through Open, Grace and Processed. The first call
// after voting ends starts the grace period; calls during grace report
// ProposalPhaseGrace without touching state; the first call after grace
// finalizes the outcome.
func (m *Machine) Process(st Store, env Env, hash common.Hash) (types.ProposalPhase, []types.Event, error) {
	now := env.Height()
	p, err := m.proposals.Proposal(st, hash)
	if err != nil {
		return 0, nil, err
	}
	if p.Processed {
		return 0, nil, ErrAlreadyProcessed
	}
	if now < m.voting.VotingEnd(p) {
		return 0, nil, ErrVotingClosed
	}
	if !p.InGrace {
		p.InGrace = true
		p.GraceStart = now
		if err = m.proposals.Save(st, p); err != nil {
			return 0, nil, err
		}
		m.logger.Debug("grace period started", "hash", hash, "height", now)
		return types.ProposalPhaseGrace, []types.Event{&types.EventGraceStarted{Hash: hash, GraceStart: now}}, nil
	}
	if now < m.GraceEnd(p) {
		return types.ProposalPhaseGrace, nil, nil
	}

	passed := m.Passes(p)
	refund := m.params.ProposalBond
	if passed {
		if err = m.members.Admit(st, p.Applicant, uint64(p.SharesRequested)); err != nil {
			return 0, nil, err
		}
	} else if refund, err = addUint64(refund, p.TokenTribute); err != nil {
		return 0, nil, err
	}
	var events []types.Event
	if refund > 0 {
		if err = m.ledger.Transfer(st, BankAddress, p.Proposer, refund); err != nil {
			return 0, nil, err
		}
		events = append(events, &types.EventTransfer{From: BankAddress, To: p.Proposer, Amount: refund})
	}
	if err = m.proposals.Resolve(st, p, passed); err != nil {
		return 0, nil, err
	}
	events = append(events, &types.EventProcessed{Hash: hash, Passed: passed})
	m.logger.Debug("proposal processed", "hash", hash, "passed", passed)
	return types.ProposalPhaseProcessed, events, nil
}

// GraceEnd is the first height at which p can be finalized. It saturates at
// the largest height rather than wrapping.
func (m *Machine) GraceEnd(p *types.Proposal) uint64 {
	end, err := addUint64(p.GraceStart, m.params.GracePeriod)
	if err != nil {
		return math.MaxUint64
	}
	return end
}

// Passes reports whether yes outweighs no and participation reaches the
// quorum share of max weight.
func (m *Machine) Passes(p *types.Proposal) bool {
	if p.YesWeight <= p.NoWeight {
		return false
	}
	castHi, castLo := bits.Mul64(p.YesWeight+p.NoWeight, 100)
	needHi, needLo := bits.Mul64(p.MaxWeight, m.params.QuorumPercent)
	if castHi != needHi {
		return castHi > needHi
	}
	return castLo >= needLo
}

// RageQuit removes the caller from the guild and burns its shares. Tokens
// stay with the caller.
func (m *Machine) RageQuit(st Store, env Env) ([]types.Event, error) {
	sender := env.Caller()
	member, err := m.members.Member(st, sender)
	if err != nil {
		return nil, err
	}
	if !member.Exists {
		return nil, ErrNotMember
	}
	pending, err := m.proposals.HasPending(st, sender)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrPendingProposalsExist
	}
	if member.HighestApprovedIndex > 0 {
		p, err := m.proposals.ProposalByIndex(st, member.HighestApprovedIndex)
		if err != nil {
			return nil, err
		}
		if !p.Processed {
			return nil, ErrPendingProposalsExist
		}
	}
	burned, err := m.members.Remove(st, sender)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("member rage quit", "member", sender, "shares", burned)
	return []types.Event{&types.EventRageQuit{Member: sender, Shares: burned}}, nil
}

func (m *Machine) Transfer(st Store, env Env, to common.Address, amount uint64) ([]types.Event, error) {
	from := env.Caller()
	if err := m.ledger.Transfer(st, from, to, amount); err != nil {
		return nil, err
	}
	return []types.Event{&types.EventTransfer{From: from, To: to, Amount: amount}}, nil
}

func (m *Machine) Params() types.Params {
	return m.params
}

func (m *Machine) TotalSupply() uint64 {
	return m.ledger.TotalSupply()
}

func (m *Machine) Initialized(st Store) (bool, error) {
	return m.members.Initialized(st)
}

func (m *Machine) IsMember(st Store, account common.Address) (bool, error) {
	return m.members.IsMember(st, account)
}

func (m *Machine) Member(st Store, account common.Address) (types.Member, error) {
	return m.members.Member(st, account)
}

func (m *Machine) Members(st Store) ([]common.Address, error) {
	return m.members.Members(st)
}

func (m *Machine) MemberCount(st Store) (int, error) {
	return m.members.MemberCount(st)
}

func (m *Machine) TotalShares(st Store) (uint64, error) {
	return m.members.TotalShares(st)
}

func (m *Machine) BalanceOf(st Store, account common.Address) (uint64, error) {
	return m.ledger.BalanceOf(st, account)
}

func (m *Machine) Balances(st Store) (map[common.Address]uint64, error) {
	return m.ledger.Balances(st)
}

func (m *Machine) Proposal(st Store, hash common.Hash) (*types.Proposal, error) {
	return m.proposals.Proposal(st, hash)
}

func (m *Machine) ProposalByIndex(st Store, index uint32) (*types.Proposal, error) {
	return m.proposals.ProposalByIndex(st, index)
}

func (m *Machine) ProposalsFor(st Store, account common.Address) ([]common.Hash, error) {
	return m.proposals.ProposalsFor(st, account)
}

func (m *Machine) ProposalCount(st Store) (uint32, error) {
	return m.proposals.ProposalCount(st)
}

func (m *Machine) VotersFor(st Store, hash common.Hash) ([]common.Address, error) {
	return m.voting.VotersFor(st, hash)
}
