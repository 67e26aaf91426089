package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var queryUrl string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the committed guild state",
}

// queryPaths maps subcommands to query paths and the kind of argument each
// path takes.
var queryPaths = []struct {
	use   string
	path  string
	arg   string
	short string
}{
	{"member", "/member/", "address", "Show a member record and balance"},
	{"balance", "/balance/", "address", "Show a token balance"},
	{"nonce", "/nonce/", "address", "Show an account nonce"},
	{"proposals-for", "/proposals_for/", "address", "List the open proposals of a sponsor"},
	{"proposal", "/proposal/", "hash", "Show a proposal"},
	{"voters", "/voters_for/", "hash", "List the voters of a proposal"},
	{"supply", "/supply/", "", "Show supply, shares and membership totals"},
	{"count", "/proposal_count/", "", "Show the number of proposals"},
	{"params", "/params/", "", "Show the ledger parameters"},
}

func newQueryCmd(use, path, arg, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			switch arg {
			case "address":
				addr, err := parseAddress(args[0])
				if err != nil {
					return err
				}
				data = addr.Bytes()
			case "hash":
				hash, err := parseHash(args[0])
				if err != nil {
					return err
				}
				data = hash.Bytes()
			}
			cli, err := newClient(queryUrl)
			if err != nil {
				return err
			}
			var out json.RawMessage
			if err := queryJSON(context.Background(), cli, path, data, &out); err != nil {
				return err
			}
			pretty, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(pretty))
			return nil
		},
	}
	if arg != "" {
		cmd.Use = use + " <" + arg + ">"
		cmd.Args = cobra.ExactArgs(1)
	}
	return cmd
}

func init() {
	queryCmd.PersistentFlags().StringVarP(&queryUrl, "url", "u", "http://127.0.0.1:26657", "guildd rpc url")
	for _, q := range queryPaths {
		queryCmd.AddCommand(newQueryCmd(q.use, q.path, q.arg, q.short))
	}
}
