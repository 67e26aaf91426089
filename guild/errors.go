package guild

import (
	"errors"
)

var (
	ErrAlreadyInitialized    = errors.New("already initialized")
	ErrNotMember             = errors.New("not member")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrOverflow              = errors.New("overflow")
	ErrDuplicateProposal     = errors.New("duplicate proposal")
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrAlreadyProcessed      = errors.New("proposal already processed")
	ErrVotingClosed          = errors.New("voting closed")
	ErrAlreadyVoted          = errors.New("already voted")
	ErrPendingProposalsExist = errors.New("pending proposals exist")
)

// Result codes reported to the consensus engine. Zero is success.
const (
	CodeOK uint32 = iota
	CodeAlreadyInitialized
	CodeNotMember
	CodeInsufficientFunds
	CodeOverflow
	CodeDuplicateProposal
	CodeProposalNotFound
	CodeAlreadyProcessed
	CodeVotingClosed
	CodeAlreadyVoted
	CodePendingProposalsExist

	CodeInternal uint32 = 100
)

var errCodes = []struct {
	err  error
	code uint32
}{
	{ErrAlreadyInitialized, CodeAlreadyInitialized},
	{ErrNotMember, CodeNotMember},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrOverflow, CodeOverflow},
	{ErrDuplicateProposal, CodeDuplicateProposal},
	{ErrProposalNotFound, CodeProposalNotFound},
	{ErrAlreadyProcessed, CodeAlreadyProcessed},
	{ErrVotingClosed, CodeVotingClosed},
	{ErrAlreadyVoted, CodeAlreadyVoted},
	{ErrPendingProposalsExist, CodePendingProposalsExist},
}

// ErrorCode maps a ledger error to its result code.
func ErrorCode(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for _, ec := range errCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}
