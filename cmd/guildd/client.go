package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calehh/guild-app/app"
	"github.com/calehh/guild-app/crypto"
	"github.com/calehh/guild-app/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
)

type txArguments struct {
	Url    string
	Skey   string
	Nonce  uint64
	NoSend bool
	Commit bool
}

func newClient(url string) (*http.HTTP, error) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	return cli, nil
}

func queryJSON(ctx context.Context, cli *http.HTTP, path string, data []byte, out any) error {
	res, err := cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return fmt.Errorf("query %s: %w", path, err)
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %s: code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	return json.Unmarshal(res.Response.Value, out)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b := common.FromHex(s)
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid proposal hash %q", s)
	}
	return common.BytesToHash(b), nil
}

// sendTx signs payload with the key at args.Skey and broadcasts it.
func sendTx(args *txArguments, tp tx.GuildTxType, payload any) error {
	pv, err := crypto.LoadFilePV(args.Skey)
	if err != nil {
		return err
	}
	cli, err := newClient(args.Url)
	if err != nil {
		return err
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	chainId := gres.Genesis.ChainID

	nonce := args.Nonce
	if nonce == 0 {
		var res app.NonceResponse
		if err := queryJSON(ctx, cli, "/nonce/", pv.Address().Bytes(), &res); err != nil {
			return err
		}
		nonce = res.Nonce
	}
	btx := tx.GuildTx{
		Version: tx.GuildTxVersion0,
		Type:    tp,
		Nonce:   nonce,
		Tx:      payload,
	}
	if err := btx.Sign(pv.PrivKey(), chainId); err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalGuildTx(&btx)
	if err != nil {
		return fmt.Errorf("encode tx: %w", err)
	}
	fmt.Println("sender:", pv.Address().Hex())
	if args.NoSend {
		fmt.Println("tx:", hex.EncodeToString(dat))
		return nil
	}
	if args.Commit {
		res, err := cli.BroadcastTxCommit(ctx, dat)
		if err != nil {
			return fmt.Errorf("broadcast tx: %w", err)
		}
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		if res.CheckTx.Code != 0 {
			return errors.New(res.CheckTx.Log)
		}
		if res.TxResult.Code != 0 {
			return errors.New(res.TxResult.Log)
		}
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if res.Code != 0 {
		return errors.New(res.Log)
	}
	return nil
}
