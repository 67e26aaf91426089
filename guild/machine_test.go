package guild

import (
	"math"
	"testing"

	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	addrB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	addrC = common.HexToAddress("0x000000000000000000000000000000000000000c")
	addrX = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

func testParams() types.Params {
	p := types.DefaultParams()
	p.VotingPeriod = 10
	p.GracePeriod = 5
	return p
}

func newTestStore(t *testing.T) *state.State {
	t.Helper()
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.NewState()
}

type harness struct {
	t  *testing.T
	m  *Machine
	st *state.State
}

func newHarness(t *testing.T, params types.Params) *harness {
	t.Helper()
	m, err := NewMachine(params, nil)
	require.NoError(t, err)
	return &harness{t: t, m: m, st: newTestStore(t)}
}

func env(height uint64, caller common.Address) Env {
	return NewCallEnv(height, caller)
}

// initWith bootstraps a and admits the other members with one share each.
func (h *harness) initWith(a common.Address, others ...common.Address) {
	h.t.Helper()
	_, err := h.m.Init(h.st, env(0, a))
	require.NoError(h.t, err)
	for _, o := range others {
		require.NoError(h.t, h.m.members.Admit(h.st, o, 1))
	}
}

func (h *harness) balance(a common.Address) uint64 {
	h.t.Helper()
	bal, err := h.m.BalanceOf(h.st, a)
	require.NoError(h.t, err)
	return bal
}

func (h *harness) proposal(hash common.Hash) *types.Proposal {
	h.t.Helper()
	p, err := h.m.Proposal(h.st, hash)
	require.NoError(h.t, err)
	return p
}

// checkInvariants asserts the ledger-wide invariants on the current state.
func (h *harness) checkInvariants() {
	h.t.Helper()
	balances, err := h.m.Balances(h.st)
	require.NoError(h.t, err)
	var sum uint64
	for _, bal := range balances {
		sum += bal
	}
	assert.LessOrEqual(h.t, sum, h.m.TotalSupply())

	count, err := h.m.ProposalCount(h.st)
	require.NoError(h.t, err)
	for i := uint32(1); i <= count; i++ {
		p, err := h.m.ProposalByIndex(h.st, i)
		require.NoError(h.t, err)
		assert.LessOrEqual(h.t, p.YesWeight+p.NoWeight, p.MaxWeight)
		assert.Equal(h.t, i, p.Index)
	}
}

func TestInitScenario(t *testing.T) {
	h := newHarness(t, types.DefaultParams())
	events, err := h.m.Init(h.st, env(0, addrA))
	require.NoError(t, err)
	assert.Equal(t, uint64(21000000), h.balance(addrA))
	require.Len(t, events, 2)
	assert.Equal(t, &types.EventInitialized{Member: addrA, Supply: 21000000, Shares: 1}, events[0])
	assert.Equal(t, &types.EventTransfer{To: addrA, Amount: 21000000}, events[1])

	isMember, err := h.m.IsMember(h.st, addrA)
	require.NoError(t, err)
	assert.True(t, isMember)
	shares, err := h.m.TotalShares(h.st)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), shares)

	_, err = h.m.Init(h.st, env(1, addrB))
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, uint64(0), h.balance(addrB))
	h.checkInvariants()
}

func TestTransferScenario(t *testing.T) {
	params := testParams()
	params.TotalSupply = 1000
	h := newHarness(t, params)
	h.initWith(addrA)

	events, err := h.m.Transfer(h.st, env(1, addrA), addrB, 100)
	require.NoError(t, err)
	assert.Equal(t, []types.Event{&types.EventTransfer{From: addrA, To: addrB, Amount: 100}}, events)
	assert.Equal(t, uint64(900), h.balance(addrA))
	assert.Equal(t, uint64(100), h.balance(addrB))

	_, err = h.m.Transfer(h.st, env(1, addrA), addrB, 1001)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(900), h.balance(addrA))
	assert.Equal(t, uint64(100), h.balance(addrB))

	_, err = h.m.Transfer(h.st, env(1, addrC), addrA, 1)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = h.m.Transfer(h.st, env(1, addrA), addrA, 900)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), h.balance(addrA))
	h.checkInvariants()
}

func TestProposalLifecycleScenario(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA, addrB, addrC)

	hash, events, err := h.m.Propose(h.st, env(1, addrA), addrX, 5, 50)
	require.NoError(t, err)
	assert.Equal(t, ProposalHash(addrA, addrX, 5, 50, 1), hash)
	require.Len(t, events, 2)
	assert.Equal(t, &types.EventTransfer{From: addrA, To: BankAddress, Amount: 50}, events[0])
	assert.Equal(t, &types.EventProposed{
		Hash: hash, Index: 1, Tribute: 50, Sponsor: addrA, Applicant: addrX, SharesRequested: 5, StartTime: 1,
	}, events[1])
	assert.Equal(t, uint64(50), h.balance(BankAddress))

	pending, err := h.m.ProposalsFor(h.st, addrA)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{hash}, pending)

	_, err = h.m.Vote(h.st, env(2, addrA), hash, true)
	require.NoError(t, err)
	events, err = h.m.Vote(h.st, env(3, addrB), hash, true)
	require.NoError(t, err)
	assert.Equal(t, []types.Event{&types.EventVoted{
		Hash: hash, Voter: addrB, Approve: true, Weight: 1, YesWeight: 2, NoWeight: 0,
	}}, events)
	p := h.proposal(hash)
	assert.Greater(t, p.YesWeight*2, p.MaxWeight)

	_, _, err = h.m.Process(h.st, env(10, addrC), hash)
	require.ErrorIs(t, err, ErrVotingClosed)

	phase, events, err := h.m.Process(h.st, env(11, addrC), hash)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalPhaseGrace, phase)
	assert.Equal(t, []types.Event{&types.EventGraceStarted{Hash: hash, GraceStart: 11}}, events)

	phase, events, err = h.m.Process(h.st, env(15, addrC), hash)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalPhaseGrace, phase)
	assert.Empty(t, events)

	phase, events, err = h.m.Process(h.st, env(16, addrC), hash)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalPhaseProcessed, phase)
	assert.Equal(t, []types.Event{&types.EventProcessed{Hash: hash, Passed: true}}, events)

	p = h.proposal(hash)
	assert.True(t, p.Processed)
	assert.True(t, p.Passed)
	member, err := h.m.Member(h.st, addrX)
	require.NoError(t, err)
	assert.True(t, member.Exists)
	assert.Equal(t, uint64(5), member.Shares)
	shares, err := h.m.TotalShares(h.st)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), shares)

	pending, err = h.m.ProposalsFor(h.st, addrA)
	require.NoError(t, err)
	assert.Empty(t, pending)
	// the tribute stays in the bank
	assert.Equal(t, uint64(50), h.balance(BankAddress))

	voters, err := h.m.VotersFor(h.st, hash)
	require.NoError(t, err)
	assert.ElementsMatch(t, []common.Address{addrA, addrB}, voters)
	h.checkInvariants()
}

func TestRageQuitScenario(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA, addrB)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 10)
	require.NoError(t, err)
	_, err = h.m.RageQuit(h.st, env(2, addrA))
	require.ErrorIs(t, err, ErrPendingProposalsExist)

	_, _, err = h.m.Process(h.st, env(11, addrB), hash)
	require.NoError(t, err)
	phase, _, err := h.m.Process(h.st, env(16, addrB), hash)
	require.NoError(t, err)
	require.Equal(t, types.ProposalPhaseProcessed, phase)

	balance := h.balance(addrA)
	events, err := h.m.RageQuit(h.st, env(17, addrA))
	require.NoError(t, err)
	assert.Equal(t, []types.Event{&types.EventRageQuit{Member: addrA, Shares: 1}}, events)

	isMember, err := h.m.IsMember(h.st, addrA)
	require.NoError(t, err)
	assert.False(t, isMember)
	assert.Equal(t, balance, h.balance(addrA))
	shares, err := h.m.TotalShares(h.st)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), shares)

	_, err = h.m.RageQuit(h.st, env(18, addrA))
	require.ErrorIs(t, err, ErrNotMember)
	h.checkInvariants()
}

func TestRageQuitBlockedByApprovedProposal(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA, addrB)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.NoError(t, err)
	_, err = h.m.Vote(h.st, env(2, addrB), hash, true)
	require.NoError(t, err)
	member, err := h.m.Member(h.st, addrB)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), member.HighestApprovedIndex)

	_, err = h.m.RageQuit(h.st, env(3, addrB))
	require.ErrorIs(t, err, ErrPendingProposalsExist)

	_, _, err = h.m.Process(h.st, env(11, addrA), hash)
	require.NoError(t, err)
	_, _, err = h.m.Process(h.st, env(16, addrA), hash)
	require.NoError(t, err)

	_, err = h.m.RageQuit(h.st, env(17, addrB))
	require.NoError(t, err)
}

func TestVoteScenario(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA, addrB)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.NoError(t, err)
	_, err = h.m.Vote(h.st, env(2, addrA), hash, false)
	require.NoError(t, err)
	_, err = h.m.Vote(h.st, env(3, addrA), hash, true)
	require.ErrorIs(t, err, ErrAlreadyVoted)

	_, err = h.m.Vote(h.st, env(11, addrB), hash, true)
	require.ErrorIs(t, err, ErrVotingClosed)

	_, err = h.m.Vote(h.st, env(2, addrX), hash, true)
	require.ErrorIs(t, err, ErrNotMember)
	_, err = h.m.Vote(h.st, env(2, addrB), common.HexToHash("0x1234"), true)
	require.ErrorIs(t, err, ErrProposalNotFound)

	p := h.proposal(hash)
	assert.Equal(t, uint64(0), p.YesWeight)
	assert.Equal(t, uint64(1), p.NoWeight)
	member, err := h.m.Member(h.st, addrA)
	require.NoError(t, err)
	assert.Zero(t, member.HighestApprovedIndex)
	h.checkInvariants()
}

func TestVoteBeforeStart(t *testing.T) {
	params := testParams()
	params.StartingPeriod = 3
	h := newHarness(t, params)
	h.initWith(addrA)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), h.proposal(hash).StartTime)

	_, err = h.m.Vote(h.st, env(3, addrA), hash, true)
	require.ErrorIs(t, err, ErrVotingClosed)
	_, err = h.m.Vote(h.st, env(4, addrA), hash, true)
	require.NoError(t, err)

	_, _, err = h.m.Process(h.st, env(13, addrA), hash)
	require.ErrorIs(t, err, ErrVotingClosed)
	phase, _, err := h.m.Process(h.st, env(14, addrA), hash)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalPhaseGrace, phase)
}

func TestProcessFailedProposal(t *testing.T) {
	params := testParams()
	params.ProposalBond = 10
	params.ProposalFee = 1
	h := newHarness(t, params)
	h.initWith(addrA, addrB)
	start := h.balance(addrA)

	hash, events, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, &types.EventTransfer{From: addrA, To: BankAddress, Amount: 61}, events[0])
	assert.Equal(t, start-61, h.balance(addrA))

	_, err = h.m.Vote(h.st, env(2, addrA), hash, true)
	require.NoError(t, err)
	_, err = h.m.Vote(h.st, env(2, addrB), hash, false)
	require.NoError(t, err)

	_, _, err = h.m.Process(h.st, env(11, addrA), hash)
	require.NoError(t, err)
	phase, events, err := h.m.Process(h.st, env(16, addrA), hash)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalPhaseProcessed, phase)
	assert.Equal(t, []types.Event{
		&types.EventTransfer{From: BankAddress, To: addrA, Amount: 60},
		&types.EventProcessed{Hash: hash, Passed: false},
	}, events)
	assert.Equal(t, start-1, h.balance(addrA))
	assert.Equal(t, uint64(1), h.balance(BankAddress))

	isMember, err := h.m.IsMember(h.st, addrX)
	require.NoError(t, err)
	assert.False(t, isMember)
	h.checkInvariants()
}

func TestProcessPassedRefundsBond(t *testing.T) {
	params := testParams()
	params.ProposalBond = 10
	params.ProposalFee = 1
	h := newHarness(t, params)
	h.initWith(addrA)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 2, 50)
	require.NoError(t, err)
	_, err = h.m.Vote(h.st, env(1, addrA), hash, true)
	require.NoError(t, err)
	_, _, err = h.m.Process(h.st, env(11, addrA), hash)
	require.NoError(t, err)
	_, events, err := h.m.Process(h.st, env(16, addrA), hash)
	require.NoError(t, err)
	assert.Equal(t, &types.EventTransfer{From: BankAddress, To: addrA, Amount: 10}, events[0])
	assert.Equal(t, uint64(51), h.balance(BankAddress))
	h.checkInvariants()
}

func TestProcessIdempotence(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA)

	_, _, err := h.m.Process(h.st, env(1, addrA), common.HexToHash("0x01"))
	require.ErrorIs(t, err, ErrProposalNotFound)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 7)
	require.NoError(t, err)
	_, _, err = h.m.Process(h.st, env(11, addrA), hash)
	require.NoError(t, err)
	_, _, err = h.m.Process(h.st, env(16, addrA), hash)
	require.NoError(t, err)

	before := *h.proposal(hash)
	balance := h.balance(addrA)
	_, _, err = h.m.Process(h.st, env(100, addrA), hash)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, before, *h.proposal(hash))
	assert.Equal(t, balance, h.balance(addrA))

	_, err = h.m.Vote(h.st, env(5, addrA), hash, true)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestProposeErrors(t *testing.T) {
	params := testParams()
	params.TotalSupply = 100
	h := newHarness(t, params)
	h.initWith(addrA)

	_, _, err := h.m.Propose(h.st, env(1, addrB), addrX, 1, 0)
	require.ErrorIs(t, err, ErrNotMember)

	_, _, err = h.m.Propose(h.st, env(1, addrA), addrX, 1, 101)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, _, err = h.m.Propose(h.st, env(1, addrA), addrX, 1, math.MaxUint64)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	count, err := h.m.ProposalCount(h.st)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, uint64(100), h.balance(addrA))
}

func TestProposeOverflow(t *testing.T) {
	params := testParams()
	params.ProposalBond = 1
	h := newHarness(t, params)
	h.initWith(addrA)

	_, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, math.MaxUint64)
	require.ErrorIs(t, err, ErrOverflow)

	require.NoError(t, setUint(h.st, KeyProposalCount, math.MaxUint32))
	_, _, err = h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestProposeDuplicate(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA)

	next := ProposalHash(addrA, addrX, 1, 0, 1)
	require.NoError(t, h.m.proposals.Save(h.st, &types.Proposal{Hash: next, Index: 1}))
	_, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.ErrorIs(t, err, ErrDuplicateProposal)
}

func TestProposeRoundTrip(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA, addrB)

	first, _, err := h.m.Propose(h.st, env(3, addrA), addrX, 5, 50)
	require.NoError(t, err)
	second, _, err := h.m.Propose(h.st, env(3, addrA), addrX, 5, 50)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	p := h.proposal(second)
	assert.Equal(t, types.Proposal{
		Hash:            second,
		Index:           2,
		Proposer:        addrA,
		Applicant:       addrX,
		SharesRequested: 5,
		TokenTribute:    50,
		StartTime:       3,
		MaxWeight:       2,
	}, *p)
	assert.Equal(t, types.ProposalPhaseOpen, p.Phase())

	byIndex, err := h.m.ProposalByIndex(h.st, 1)
	require.NoError(t, err)
	assert.Equal(t, first, byIndex.Hash)
	_, err = h.m.ProposalByIndex(h.st, 3)
	require.ErrorIs(t, err, ErrProposalNotFound)

	count, err := h.m.ProposalCount(h.st)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)
	h.checkInvariants()
}

func TestVoteRejectsMemberAdmittedLater(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.NoError(t, err)
	require.NoError(t, h.m.members.Admit(h.st, addrB, 5))

	_, err = h.m.Vote(h.st, env(2, addrB), hash, false)
	require.ErrorIs(t, err, ErrNotMember)
	events, err := h.m.Vote(h.st, env(2, addrA), hash, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), events[0].(*types.EventVoted).Weight)

	p := h.proposal(hash)
	assert.Equal(t, uint64(1), p.YesWeight)
	assert.Zero(t, p.NoWeight)

	phase, _, err := h.m.Process(h.st, env(11, addrA), hash)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalPhaseGrace, phase)
	phase, _, err = h.m.Process(h.st, env(16, addrA), hash)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalPhaseProcessed, phase)
	assert.True(t, h.proposal(hash).Passed)
	h.checkInvariants()
}

func TestVoteRejoinedMemberCountsFromRejoin(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA, addrB)

	first, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.NoError(t, err)
	_, err = h.m.RageQuit(h.st, env(1, addrB))
	require.NoError(t, err)
	require.NoError(t, h.m.members.Admit(h.st, addrB, 1))

	m, err := h.m.Member(h.st, addrB)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), m.JoinedAt)

	_, err = h.m.Vote(h.st, env(2, addrB), first, true)
	require.ErrorIs(t, err, ErrNotMember)

	second, _, err := h.m.Propose(h.st, env(2, addrA), addrX, 1, 0)
	require.NoError(t, err)
	_, err = h.m.Vote(h.st, env(3, addrB), second, true)
	require.NoError(t, err)
	h.checkInvariants()
}

func TestVoteWeightClampOnTopUp(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA, addrB)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), h.proposal(hash).MaxWeight)
	require.NoError(t, h.m.members.Admit(h.st, addrA, 5))

	m, err := h.m.Member(h.st, addrA)
	require.NoError(t, err)
	assert.Zero(t, m.JoinedAt)

	events, err := h.m.Vote(h.st, env(2, addrA), hash, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), events[0].(*types.EventVoted).Weight)
	events, err = h.m.Vote(h.st, env(2, addrB), hash, false)
	require.NoError(t, err)
	assert.Zero(t, events[0].(*types.EventVoted).Weight)

	p := h.proposal(hash)
	assert.Equal(t, p.MaxWeight, p.YesWeight+p.NoWeight)
	h.checkInvariants()
}

// Votes stay recorded after their voters leave, so the voter set of a
// proposal can outgrow the current membership.
func TestVotersForOutlivesMembership(t *testing.T) {
	h := newHarness(t, testParams())
	h.initWith(addrA, addrB, addrC)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.NoError(t, err)
	for _, voter := range []common.Address{addrA, addrB, addrC} {
		_, err = h.m.Vote(h.st, env(2, voter), hash, false)
		require.NoError(t, err)
	}
	for _, quitter := range []common.Address{addrB, addrC} {
		_, err = h.m.RageQuit(h.st, env(3, quitter))
		require.NoError(t, err)
	}

	voters, err := h.m.VotersFor(h.st, hash)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addrA, addrB, addrC}, voters)
	members, err := h.m.Members(h.st)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addrA}, members)
	count, err := h.m.MemberCount(h.st)
	require.NoError(t, err)
	assert.Greater(t, len(voters), count)

	p := h.proposal(hash)
	assert.Equal(t, uint64(3), p.NoWeight)
	_, err = h.m.Vote(h.st, env(4, addrB), hash, true)
	require.ErrorIs(t, err, ErrNotMember)
	h.checkInvariants()
}

func TestPasses(t *testing.T) {
	params := testParams()
	params.QuorumPercent = 60
	m, err := NewMachine(params, cmtlog.NewNopLogger())
	require.NoError(t, err)

	cases := []struct {
		yes, no, max uint64
		passed       bool
	}{
		{0, 0, 10, false},
		{3, 3, 10, false},
		{6, 0, 10, true},
		{5, 0, 10, false},
		{4, 2, 10, true},
		{math.MaxUint64, 0, math.MaxUint64, true},
	}
	for _, c := range cases {
		p := &types.Proposal{YesWeight: c.yes, NoWeight: c.no, MaxWeight: c.max}
		assert.Equal(t, c.passed, m.Passes(p), "yes=%d no=%d max=%d", c.yes, c.no, c.max)
	}
}

func TestNewMachineRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *types.Params)
	}{
		{"quorum above 100", func(p *types.Params) { p.QuorumPercent = 101 }},
		{"zero voting period", func(p *types.Params) { p.VotingPeriod = 0 }},
		{"unbounded voting period", func(p *types.Params) { p.VotingPeriod = math.MaxUint64 }},
		{"unbounded grace period", func(p *types.Params) { p.GracePeriod = math.MaxUint64 }},
		{"unbounded starting period", func(p *types.Params) { p.StartingPeriod = types.MaxPeriod + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParams()
			tt.mutate(&params)
			_, err := NewMachine(params, nil)
			require.Error(t, err)
		})
	}

	params := testParams()
	params.GracePeriod = types.MaxPeriod
	_, err := NewMachine(params, nil)
	require.NoError(t, err)
}

func TestProcessFinalizesAtLastHeight(t *testing.T) {
	params := testParams()
	params.GracePeriod = types.MaxPeriod
	h := newHarness(t, params)
	h.initWith(addrA, addrB)

	hash, _, err := h.m.Propose(h.st, env(1, addrA), addrX, 1, 0)
	require.NoError(t, err)
	phase, _, err := h.m.Process(h.st, env(math.MaxUint64-1, addrB), hash)
	require.NoError(t, err)
	require.Equal(t, types.ProposalPhaseGrace, phase)
	assert.Equal(t, uint64(math.MaxUint64), h.m.GraceEnd(h.proposal(hash)))

	_, err = h.m.RageQuit(h.st, env(math.MaxUint64-1, addrA))
	require.ErrorIs(t, err, ErrPendingProposalsExist)

	phase, _, err = h.m.Process(h.st, env(math.MaxUint64, addrB), hash)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalPhaseProcessed, phase)
	_, err = h.m.RageQuit(h.st, env(math.MaxUint64, addrA))
	require.NoError(t, err)
	h.checkInvariants()
}

func TestParamsRoundTrip(t *testing.T) {
	st := newTestStore(t)
	_, found, err := LoadParams(st)
	require.NoError(t, err)
	assert.False(t, found)

	params := testParams()
	params.ProposalBond = 3
	require.NoError(t, SaveParams(st, params))
	loaded, found, err := LoadParams(st)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, params, loaded)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeOK, ErrorCode(nil))
	assert.Equal(t, CodeNotMember, ErrorCode(ErrNotMember))
	assert.Equal(t, CodeVotingClosed, ErrorCode(ErrVotingClosed))
	assert.Equal(t, CodePendingProposalsExist, ErrorCode(ErrPendingProposalsExist))
	assert.Equal(t, CodeInternal, ErrorCode(assert.AnError))
}
