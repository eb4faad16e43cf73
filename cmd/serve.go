package cmd

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	leveldb "github.com/ipfs/go-ds-leveldb"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/storacha/grantlink/pkg/config"
	"github.com/storacha/grantlink/pkg/notifier"
	"github.com/storacha/grantlink/pkg/presigner"
	"github.com/storacha/grantlink/pkg/server"
	"github.com/storacha/grantlink/pkg/service/links"
	"github.com/storacha/grantlink/pkg/store/grantstore"
)

var log = logging.Logger("cmd")

var ServeCmd = &cli.Command{
	Name:  "serve",
	Usage: "Serve download links from a local grant store.",
	Flags: ServerFlags,
	Action: func(cCtx *cli.Context) error {
		cfg, err := config.LoadConfig(cCtx)
		if err != nil {
			return err
		}
		if err := logging.SetLogLevel("*", cfg.Server.LogLevel); err != nil {
			return fmt.Errorf("setting log level: %w", err)
		}

		grants, closeStore, err := openGrantStore(cfg.Store.DataDir)
		if err != nil {
			return err
		}
		defer closeStore()

		endpoint, err := url.Parse(cfg.Bucket.Endpoint)
		if err != nil {
			return fmt.Errorf("parsing bucket endpoint: %w", err)
		}
		linkPresigner, err := presigner.NewStaticDownloadPresigner(
			cfg.Bucket.AccessKeyID,
			cfg.Bucket.SecretAccessKey,
			*endpoint,
			cfg.Bucket.Region,
			cfg.Bucket.Name,
		)
		if err != nil {
			return fmt.Errorf("creating presigner: %w", err)
		}

		svc, err := links.New(
			links.WithGrantStore(grants),
			links.WithPresigner(linkPresigner),
			links.WithNotifier(notifier.LogNotifier{}),
			links.WithBucket(cfg.Bucket.Name),
			links.WithLinkTTL(time.Duration(cfg.Server.LinkTTL)*time.Second),
			links.WithNotifyMode(links.NotifyMode(cfg.Server.NotifyMode)),
			links.WithConsumeMode(links.ConsumeMode(cfg.Server.ConsumeMode)),
		)
		if err != nil {
			return fmt.Errorf("creating link service: %w", err)
		}

		return server.ListenAndServe(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), server.WithService(svc))
	},
}

// openGrantStore opens the LevelDB backed grant store in dataDir.
func openGrantStore(dataDir string) (*grantstore.DsGrantStore, func() error, error) {
	ds, err := leveldb.NewDatastore(filepath.Join(dataDir, "grants"), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("opening grant datastore: %w", err)
	}
	grants, err := grantstore.NewDsGrantStore(ds)
	if err != nil {
		ds.Close()
		return nil, nil, fmt.Errorf("creating grant store: %w", err)
	}
	return grants, ds.Close, nil
}
