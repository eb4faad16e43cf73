package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/storacha/grantlink/pkg/grant"
)

var GrantCmd = &cli.Command{
	Name:  "grant",
	Usage: "Manage grants in a local grant store.",
	Subcommands: []*cli.Command{
		{
			Name:  "put",
			Usage: "Grant access to an object. Prints the capability hash.",
			Flags: []cli.Flag{
				DataDirFlag,
				RequiredStringFlag(KeyFlag),
				&cli.StringFlag{
					Name:  "hash",
					Usage: "Capability hash. A new one is generated when not set.",
				},
				&cli.DurationFlag{
					Name:  "valid-for",
					Value: 24 * time.Hour,
					Usage: "How long the grant can be redeemed for.",
				},
				&cli.BoolFlag{
					Name:  "reusable",
					Usage: "Allow the grant to be redeemed more than once.",
				},
			},
			Action: func(cCtx *cli.Context) error {
				dataDir, err := resolveDataDir(cCtx)
				if err != nil {
					return err
				}

				hash := cCtx.String("hash")
				if hash == "" {
					hash, err = newCapabilityHash()
					if err != nil {
						return err
					}
				}
				oneTime := !cCtx.Bool("reusable")
				record := grant.Record{
					Hash:    hash,
					S3Key:   cCtx.String("key"),
					Expires: time.Now().Add(cCtx.Duration("valid-for")).Unix(),
					OneTime: &oneTime,
				}
				// the record must be redeemable through the link service
				if err := grant.Validate(grant.AccessRequest{
					ResourceKey:    record.S3Key,
					RequesterAlias: "cli",
					CapabilityHash: record.Hash,
				}); err != nil {
					return err
				}

				grants, closeStore, err := openGrantStore(dataDir)
				if err != nil {
					return err
				}
				defer closeStore()

				if err := grants.Put(cCtx.Context, record); err != nil {
					return fmt.Errorf("storing grant: %w", err)
				}
				log.Infow("Stored grant", "key", record.S3Key, "grant", grant.Fingerprint(hash), "expires", record.Expires, "onetime", oneTime)
				fmt.Println(hash)
				return nil
			},
		},
	},
}

// newCapabilityHash returns the hex SHA2-256 digest of a random secret.
func newCapabilityHash() (string, error) {
	secret, err := randomSecret()
	if err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	digest := sha256.Sum256(secret)
	return hex.EncodeToString(digest[:]), nil
}
