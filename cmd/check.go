package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/storacha/grantlink/pkg/grant"
)

var CheckCmd = &cli.Command{
	Name:      "check",
	Usage:     "Check that a request would pass input validation.",
	ArgsUsage: "<key> <alias> <hash>",
	Action: func(cCtx *cli.Context) error {
		if cCtx.NArg() != 3 {
			return errors.New("expected a key, an alias and a hash")
		}
		args := cCtx.Args()
		req, err := grant.ParseRequest(args.Get(0), args.Get(1), args.Get(2))
		if err != nil {
			return err
		}
		fmt.Printf("key:   %s\nalias: %s\ngrant: %s\n", req.ResourceKey, req.RequesterAlias, grant.Fingerprint(req.CapabilityHash))
		return nil
	},
}
