package main

import "github.com/spf13/cobra"

const defaultKeyPath = "./config/priv_validator_key.json"

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "guildd rpc url")
}

func keyFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "skeyPath", "s", defaultKeyPath, "private key path")
}

// txFlags registers the flags shared by every signed transaction command.
func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	keyFlag(cmd, &args.Skey)
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce, queried from the node when 0")
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "print the signed transaction instead of sending it")
	cmd.Flags().BoolVarP(&args.Commit, "commit", "", false, "wait for the transaction to be committed")
}
