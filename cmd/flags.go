package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/storacha/grantlink/pkg/config"
)

func RequiredStringFlag(strFlag *cli.StringFlag) *cli.StringFlag {
	copy := *strFlag
	copy.Required = true
	return &copy
}

var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "Path to a TOML config file.",
	EnvVars: []string{"GRANTLINK_CONFIG"},
}

var DataDirFlag = &cli.StringFlag{
	Name:    "data-dir",
	Aliases: []string{"d"},
	Usage:   "Root directory the grant store is kept in.",
	EnvVars: []string{"GRANTLINK_DATA_DIR"},
}

var ServerFlags = []cli.Flag{
	ConfigFlag,
	DataDirFlag,
	&cli.StringFlag{
		Name:  "host",
		Usage: "Host to listen on.",
	},
	&cli.IntFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   config.DefaultServicePort,
		Usage:   "Port to bind the server to.",
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level of the link service.",
	},
	&cli.UintFlag{
		Name:  "link-ttl",
		Usage: "Seconds issued links are valid for.",
	},
	&cli.StringFlag{
		Name:  "notify-mode",
		Usage: "What to do when an access event cannot be recorded: best-effort or strict.",
	},
	&cli.StringFlag{
		Name:  "consume-mode",
		Usage: "Who expires one-time grants: workflow or conditional.",
	},
	&cli.StringFlag{
		Name:  "bucket",
		Usage: "Name of the bucket links are signed for.",
	},
	&cli.StringFlag{
		Name:  "bucket-endpoint",
		Usage: "URL of the S3 compatible endpoint serving the bucket.",
	},
	&cli.StringFlag{
		Name:  "bucket-region",
		Usage: "Region of the bucket.",
	},
	&cli.StringFlag{
		Name:  "bucket-access-key-id",
		Usage: "Access key ID links are signed with.",
	},
	&cli.StringFlag{
		Name:  "bucket-secret-access-key",
		Usage: "Secret access key links are signed with.",
	},
}

var KeyFlag = &cli.StringFlag{
	Name:    "key",
	Aliases: []string{"k"},
	Usage:   "Object key, e.g. reports/2024/summary.pdf.",
}
