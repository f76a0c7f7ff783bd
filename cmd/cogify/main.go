package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rasterkit/cogify/objstore"
)

var (
	verbose         bool
	envFile         string
	cacheBlocksize  string
	numCachedBlocks int
	startTime       time.Time

	log   zerolog.Logger
	stcl  *s3.Client
	store *objstore.Store
	s3a   *osio.Adapter

	gsOnce sync.Once
	gsCl   *storage.Client
	gsErr  error
)

var rootCmd = &cobra.Command{
	Use:   "cogify",
	Short: "convert satellite imagery to Cloud Optimized GeoTIFFs",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		startTime = time.Now()
		ctx := cmd.Context()

		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			_ = godotenv.Load() // .env is optional
		}

		log = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		if verbose {
			log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("aws config: %w", err)
		}
		stcl = s3.NewFromConfig(cfg)
		store = objstore.New(stcl)

		if s3a, err = objstore.RegisterStreaming(ctx, stcl, nil, objstore.StreamingConfig{
			BlockSize: cacheBlocksize,
			NumBlocks: numCachedBlocks,
		}); err != nil {
			return fmt.Errorf("register streaming: %w", err)
		}
		godal.RegisterAll()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		log.Debug().Msgf("command %s took %.1fs", cmd.Name(), time.Since(startTime).Seconds())
	},
}

// gsClient lazily creates the google storage client; only needed when a
// destination uses gs://.
func gsClient(ctx context.Context) (*storage.Client, error) {
	gsOnce.Do(func() {
		gsCl, gsErr = storage.NewClient(ctx)
	})
	return gsCl, gsErr
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file with credentials and defaults")
	rootCmd.PersistentFlags().StringVar(&cacheBlocksize, "blocksize", "512k", "object store cache blocksize")
	rootCmd.PersistentFlags().IntVar(&numCachedBlocks, "numblocks", 1000, "number of cached object store blocks")
	rootCmd.AddCommand(listCmd, convertCmd, batchCmd, planCmd, checkCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
