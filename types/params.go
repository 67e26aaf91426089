package types

import (
	"errors"
	"fmt"
)

const (
	DefaultTotalSupply   = 21000000
	DefaultVotingPeriod  = 120
	DefaultGracePeriod   = 60
	DefaultInitialShares = 1

	// MaxPeriod bounds each period so proposal deadlines stay representable.
	MaxPeriod = 1 << 62
)

// Params is the genesis configuration of a guild ledger. Periods are in
// blocks.
type Params struct {
	TotalSupply    uint64 `json:"total_supply"`
	VotingPeriod   uint64 `json:"voting_period"`
	GracePeriod    uint64 `json:"grace_period"`
	StartingPeriod uint64 `json:"starting_period"`
	ProposalBond   uint64 `json:"proposal_bond"`
	ProposalFee    uint64 `json:"proposal_fee"`
	QuorumPercent  uint64 `json:"quorum_percent"`
	InitialShares  uint64 `json:"initial_shares"`
}

func DefaultParams() Params {
	return Params{
		TotalSupply:   DefaultTotalSupply,
		VotingPeriod:  DefaultVotingPeriod,
		GracePeriod:   DefaultGracePeriod,
		InitialShares: DefaultInitialShares,
	}
}

func (p Params) Validate() error {
	if p.TotalSupply == 0 {
		return errors.New("total_supply must be positive")
	}
	if p.VotingPeriod == 0 {
		return errors.New("voting_period must be positive")
	}
	for _, period := range []struct {
		name  string
		value uint64
	}{
		{"starting_period", p.StartingPeriod},
		{"voting_period", p.VotingPeriod},
		{"grace_period", p.GracePeriod},
	} {
		if period.value > MaxPeriod {
			return fmt.Errorf("%s must be at most %d (got %v)", period.name, uint64(MaxPeriod), period.value)
		}
	}
	if p.InitialShares == 0 {
		return errors.New("initial_shares must be positive")
	}
	if p.QuorumPercent > 100 {
		return fmt.Errorf("quorum_percent must be at most 100 (got %v)", p.QuorumPercent)
	}
	if p.ProposalBond > p.TotalSupply || p.ProposalFee > p.TotalSupply-p.ProposalBond {
		return errors.New("proposal bond and fee exceed total supply")
	}
	return nil
}
