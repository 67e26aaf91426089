package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// Member is a share holder. JoinedAt is the proposal count when the member was
// last admitted; proposals with a higher index were created after it joined.
type Member struct {
	Exists               bool   `json:"exists"`
	HighestApprovedIndex uint32 `json:"highest_approved_index"`
	Shares               uint64 `json:"shares"`
	JoinedAt             uint32 `json:"joined_at"`
}

// EligibleFor reports whether m was a member when the proposal with the given
// index was created.
func (m Member) EligibleFor(index uint32) bool {
	return m.Exists && m.JoinedAt < index
}

// Proposal is the permanent record of a membership/tribute proposal.
// GraceStart is only meaningful once InGrace is set.
type Proposal struct {
	Hash            common.Hash    `json:"hash"`
	Index           uint32         `json:"index"`
	Proposer        common.Address `json:"proposer"`
	Applicant       common.Address `json:"applicant"`
	SharesRequested uint32         `json:"shares_requested"`
	TokenTribute    uint64         `json:"token_tribute"`
	StartTime       uint64         `json:"start_time"`
	GraceStart      uint64         `json:"grace_start"`
	InGrace         bool           `json:"in_grace"`
	YesWeight       uint64         `json:"yes_weight"`
	NoWeight        uint64         `json:"no_weight"`
	MaxWeight       uint64         `json:"max_weight"`
	Passed          bool           `json:"passed"`
	Processed       bool           `json:"processed"`
}

func (p *Proposal) Phase() ProposalPhase {
	switch {
	case p.Processed:
		return ProposalPhaseProcessed
	case p.InGrace:
		return ProposalPhaseGrace
	default:
		return ProposalPhaseOpen
	}
}

type ProposalPhase uint64

const (
	ProposalPhaseOpen      ProposalPhase = 1
	ProposalPhaseGrace     ProposalPhase = 2
	ProposalPhaseProcessed ProposalPhase = 3
)

func (p ProposalPhase) String() string {
	switch p {
	case ProposalPhaseOpen:
		return "open"
	case ProposalPhaseGrace:
		return "grace"
	case ProposalPhaseProcessed:
		return "processed"
	}
	return "unknown"
}
