package main

import (
	"github.com/calehh/guild-app/tx"
	"github.com/spf13/cobra"
)

var initGuildArgs txArguments

var initGuildCmd = &cobra.Command{
	Use:   "initguild",
	Short: "Bootstrap the guild with the signer as its first member",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&initGuildArgs, tx.GuildTxTypeInit, &tx.InitTx{})
	},
}

type proposeArguments struct {
	txArguments
	Applicant string
	Shares    uint32
	Tribute   uint64
}

var proposeArgs proposeArguments

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Sponsor an applicant for shares in exchange for a token tribute",
	Args:  cobra.NoArgs,
	RunE:  proposeRun,
}

func proposeRun(cmd *cobra.Command, args []string) error {
	applicant, err := parseAddress(proposeArgs.Applicant)
	if err != nil {
		return err
	}
	return sendTx(&proposeArgs.txArguments, tx.GuildTxTypePropose, &tx.ProposeTx{
		Applicant:       applicant,
		SharesRequested: proposeArgs.Shares,
		TokenTribute:    proposeArgs.Tribute,
	})
}

type voteArguments struct {
	txArguments
	Proposal string
	Approve  bool
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote on an open proposal",
	Args:  cobra.NoArgs,
	RunE:  voteRun,
}

func voteRun(cmd *cobra.Command, args []string) error {
	hash, err := parseHash(voteArgs.Proposal)
	if err != nil {
		return err
	}
	return sendTx(&voteArgs.txArguments, tx.GuildTxTypeVote, &tx.VoteTx{
		Proposal: hash,
		Approve:  voteArgs.Approve,
	})
}

type processArguments struct {
	txArguments
	Proposal string
}

var processArgs processArguments

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Start the grace period of a proposal or finalize it",
	Args:  cobra.NoArgs,
	RunE:  processRun,
}

func processRun(cmd *cobra.Command, args []string) error {
	hash, err := parseHash(processArgs.Proposal)
	if err != nil {
		return err
	}
	return sendTx(&processArgs.txArguments, tx.GuildTxTypeProcess, &tx.ProcessTx{Proposal: hash})
}

var rageQuitArgs txArguments

var rageQuitCmd = &cobra.Command{
	Use:   "ragequit",
	Short: "Leave the guild and burn the signer's shares",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&rageQuitArgs, tx.GuildTxTypeRageQuit, &tx.RageQuitTx{})
	},
}

type transferArguments struct {
	txArguments
	To     string
	Amount uint64
}

var transferArgs transferArguments

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer tokens to another account",
	Args:  cobra.NoArgs,
	RunE:  transferRun,
}

func transferRun(cmd *cobra.Command, args []string) error {
	to, err := parseAddress(transferArgs.To)
	if err != nil {
		return err
	}
	return sendTx(&transferArgs.txArguments, tx.GuildTxTypeTransfer, &tx.TransferTx{
		To:     to,
		Amount: transferArgs.Amount,
	})
}

func init() {
	txFlags(initGuildCmd, &initGuildArgs)

	txFlags(proposeCmd, &proposeArgs.txArguments)
	proposeCmd.Flags().StringVarP(&proposeArgs.Applicant, "applicant", "a", "", "applicant address")
	proposeCmd.Flags().Uint32VarP(&proposeArgs.Shares, "shares", "", 0, "shares requested")
	proposeCmd.Flags().Uint64VarP(&proposeArgs.Tribute, "tribute", "t", 0, "token tribute")
	_ = proposeCmd.MarkFlagRequired("applicant")

	txFlags(voteCmd, &voteArgs.txArguments)
	voteCmd.Flags().StringVarP(&voteArgs.Proposal, "proposal", "p", "", "proposal hash")
	voteCmd.Flags().BoolVarP(&voteArgs.Approve, "approve", "y", false, "vote yes")
	_ = voteCmd.MarkFlagRequired("proposal")

	txFlags(processCmd, &processArgs.txArguments)
	processCmd.Flags().StringVarP(&processArgs.Proposal, "proposal", "p", "", "proposal hash")
	_ = processCmd.MarkFlagRequired("proposal")

	txFlags(rageQuitCmd, &rageQuitArgs)

	txFlags(transferCmd, &transferArgs.txArguments)
	transferCmd.Flags().StringVarP(&transferArgs.To, "to", "", "", "recipient address")
	transferCmd.Flags().Uint64VarP(&transferArgs.Amount, "amount", "a", 0, "amount")
	_ = transferCmd.MarkFlagRequired("to")
}
