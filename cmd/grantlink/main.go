package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/storacha/grantlink/cmd"
)

var log = logging.Logger("grantlink")

func main() {
	logging.SetLogLevel("*", "info")

	app := &cli.App{
		Name:  "grantlink",
		Usage: "Issue authorization-gated download links.",
		Commands: []*cli.Command{
			cmd.ServeCmd,
			cmd.GrantCmd,
			cmd.CheckCmd,
			cmd.VersionCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
