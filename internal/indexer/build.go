package indexer

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/DRSN-tech/ecofinds/internal/app"
	config "github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/ecofinds/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/ecofinds/internal/repository/qdrant"
	"github.com/DRSN-tech/ecofinds/internal/similarity"
	"github.com/DRSN-tech/ecofinds/pkg/clients"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type BuildOptions struct {
	Source        string `mapstructure:"source"`
	Manifest      string `mapstructure:"manifest"`
	Dir           string `mapstructure:"dir"`
	Pattern       string `mapstructure:"pattern"`
	Store         string `mapstructure:"store"`
	Out           string `mapstructure:"out"`
	Record        bool   `mapstructure:"record"`
	PublishQdrant bool   `mapstructure:"publish-qdrant"`
	Parallelism   int    `mapstructure:"parallelism"`
	NoProgress    bool   `mapstructure:"no-progress"`
}

// Validate проверяет сочетание флагов до того, как открывать соединения.
func (o *BuildOptions) Validate() error {
	switch o.Source {
	case SourceManifest:
		if o.Manifest == "" {
			return fmt.Errorf("--manifest is required for source %q: %w", o.Source, e.ErrMissingFields)
		}
	case SourceGlob:
		if o.Dir == "" || o.Pattern == "" {
			return fmt.Errorf("--dir and --pattern are required for source %q: %w", o.Source, e.ErrMissingFields)
		}
	case SourceDB:
	default:
		return fmt.Errorf("unknown --source %q: %w", o.Source, e.ErrStatusBadRequest)
	}

	switch o.Store {
	case StoreFile:
		if o.Out == "" {
			return fmt.Errorf("--out is required for store %q: %w", o.Store, e.ErrMissingFields)
		}
	case StoreMinio:
	default:
		return fmt.Errorf("unknown --store %q: %w", o.Store, e.ErrStatusBadRequest)
	}

	if o.Parallelism < 0 {
		return fmt.Errorf("--parallelism must not be negative: %w", e.ErrStatusBadRequest)
	}
	return nil
}

func newBuildCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed the catalog and write index artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts BuildOptions
			if err := st.bindOptions(cmd, &opts); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runBuild(ctx, st, &opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("source", SourceManifest, "catalog source: manifest | glob | db")
	f.String("manifest", "", "YAML manifest with entries [{product_id, image}]")
	f.String("dir", "", "image root for --source glob")
	f.String("pattern", "**/*.{jpg,jpeg,png}", "doublestar pattern relative to --dir")
	f.String("store", StoreFile, "artifact store: file | minio")
	f.String("out", "data", "output directory for --store file")
	f.Bool("record", false, "record the build in the index_builds table")
	f.Bool("publish-qdrant", false, "mirror index rows into the Qdrant collection")
	f.Int("parallelism", 0, "concurrent embeddings (0 = GOMAXPROCS)")
	f.Bool("no-progress", false, "disable the progress bar")

	return cmd
}

func runBuild(ctx context.Context, st *rootState, opts *BuildOptions, out, progressOut io.Writer) error {
	log := st.logger

	simCfg, err := config.LoadSimilarityCfg(log)
	if err != nil {
		return err
	}
	mlCfg, err := config.LoadMLServiceCfg(log)
	if err != nil {
		return err
	}

	encoder, closeEncoder, err := app.NewEncoder(&config.Config{Similarity: simCfg, Ml: mlCfg}, log)
	if err != nil {
		return err
	}
	defer closeEncoder()

	deps := &env{logger: log}
	defer deps.close()

	entries, source, err := deps.catalog(ctx, opts)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return e.Wrap("indexer.build", e.ErrEmptyCatalog)
	}

	fmt.Fprintf(out, "Embedding %d images with %s (dim %d)\n", len(entries), encoder.ModelVersion(), encoder.Dimension())

	builderOpts := []similarity.BuilderOption{}
	if opts.Parallelism > 0 {
		builderOpts = append(builderOpts, similarity.WithParallelism(opts.Parallelism))
	}
	if !opts.NoProgress {
		bar := newProgressBar(len(entries), progressOut)
		builderOpts = append(builderOpts, similarity.WithProgress(func() { _ = bar.Add(1) }))
	}

	builder := similarity.NewBuilder(similarity.NewEmbedder(encoder), source, log, builderOpts...)
	arts, err := builder.Build(ctx, entries)
	if err != nil {
		return err
	}

	store, err := deps.store(ctx, opts.Store, opts.Out)
	if err != nil {
		return err
	}
	location, err := store.Save(ctx, arts)
	if err != nil {
		return err
	}

	build := &domain.IndexBuild{
		BuildID:      arts.BuildID,
		RowCount:     arts.Index.RowCount(),
		Dimension:    arts.Index.Dimension(),
		ModelVersion: arts.ModelVersion,
		Location:     location,
	}

	if opts.Record {
		db, err := deps.database(ctx)
		if err != nil {
			return err
		}
		if _, err := pgdb.NewIndexBuildRepo(db.Pool, pgdbConv.IndexBuildConv{}).Create(ctx, build); err != nil {
			return err
		}
	}

	if opts.PublishQdrant {
		if err := publishQdrant(ctx, st, arts); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\nIndex build complete:\n")
	fmt.Fprintf(out, "  Build ID:   %s\n", build.BuildID)
	fmt.Fprintf(out, "  Rows:       %d\n", build.RowCount)
	fmt.Fprintf(out, "  Dimension:  %d\n", build.Dimension)
	fmt.Fprintf(out, "  Model:      %s\n", build.ModelVersion)
	fmt.Fprintf(out, "  Location:   %s\n", build.Location)
	if opts.Record {
		fmt.Fprintf(out, "  Recorded in index_builds\n")
	}
	if opts.PublishQdrant {
		fmt.Fprintf(out, "  Published to Qdrant\n")
	}
	return nil
}

func publishQdrant(ctx context.Context, st *rootState, arts *similarity.Artifacts) error {
	const op = "indexer.publishQdrant"

	qCfg, err := config.LoadQdrantCfg(st.logger)
	if err != nil {
		return e.Wrap(op, err)
	}
	qc, err := clients.NewQdrantClient(qCfg)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer qc.Client.Close()

	if err := clients.EnsureCollection(ctx, qc, uint64(arts.Index.Dimension())); err != nil {
		return e.Wrap(op, err)
	}

	points, err := arts.Points()
	if err != nil {
		return e.Wrap(op, err)
	}
	return qdrantRepo.NewEmbeddingRepo(qc.Client, qCfg).UpsertPoints(ctx, points)
}

func newProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}
