package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/calehh/guild-app/crypto"
	"github.com/spf13/cobra"
)

type pubkeyArguments struct {
	Skey string
}

var pubkeyArgs pubkeyArguments

var pubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Print the public key and ledger address of a key file",
	RunE:  pubkeyRun,
}

type signArguments struct {
	Skey string
	Data string
}

var signArgs signArguments

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign arbitrary data with a key file",
	RunE:  signRun,
}

func init() {
	keyFlag(pubkeyCmd, &pubkeyArgs.Skey)
	keyFlag(signCmd, &signArgs.Skey)
	signCmd.Flags().StringVarP(&signArgs.Data, "data", "", "", "data to sign")
}

func pubkeyRun(cmd *cobra.Command, args []string) error {
	pv, err := crypto.LoadFilePV(pubkeyArgs.Skey)
	if err != nil {
		return err
	}
	fmt.Println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	fmt.Println("address:", pv.Address().Hex())
	return nil
}

func signRun(cmd *cobra.Command, args []string) error {
	pv, err := crypto.LoadFilePV(signArgs.Skey)
	if err != nil {
		return err
	}
	sig, err := pv.Sign([]byte(signArgs.Data))
	if err != nil {
		return fmt.Errorf("sign err: %w", err)
	}
	fmt.Println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	fmt.Println("address:", pv.Address().Hex())
	fmt.Println("signature base64:", base64.StdEncoding.EncodeToString(sig))
	fmt.Println("signature:", hex.EncodeToString(sig))
	return nil
}
