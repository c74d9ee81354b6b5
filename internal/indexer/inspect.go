package indexer

import (
	"context"
	"fmt"
	"io"
	"slices"

	config "github.com/DRSN-tech/ecofinds/internal/cfg"
	s3Repo "github.com/DRSN-tech/ecofinds/internal/repository/minio"
	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/ecofinds/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/ecofinds/internal/repository/qdrant"
	"github.com/DRSN-tech/ecofinds/internal/similarity"
	"github.com/DRSN-tech/ecofinds/pkg/clients"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/spf13/cobra"
)

type InspectOptions struct {
	Store       string `mapstructure:"store"`
	Location    string `mapstructure:"location"`
	BuildID     string `mapstructure:"build-id"`
	Samples     int    `mapstructure:"samples"`
	CheckQdrant bool   `mapstructure:"check-qdrant"`
}

// SelfQueryReport: итог проверки: каждая выбранная строка должна найти себя на расстоянии 0.
type SelfQueryReport struct {
	Checked       int
	Matched       int
	Mismatches    []int // строки, у которых ближайший сосед дальше нуля
	QdrantChecked int
	QdrantMatched int
}

func newInspectCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print build metadata and run a self-query sanity check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts InspectOptions
			if err := st.bindOptions(cmd, &opts); err != nil {
				return err
			}
			return runInspect(cmd.Context(), st, &opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("store", StoreFile, "artifact store: file | minio")
	f.String("location", "", "artifact directory (file) or bucket prefix (minio)")
	f.String("build-id", "", "minio: build to inspect; empty means the latest recorded build")
	f.Int("samples", 10, "how many rows to self-query")
	f.Bool("check-qdrant", false, "also query the Qdrant mirror with the sampled vectors")

	return cmd
}

func runInspect(ctx context.Context, st *rootState, opts *InspectOptions, out io.Writer) error {
	const op = "indexer.inspect"

	deps := &env{logger: st.logger}
	defer deps.close()

	location, err := inspectLocation(ctx, deps, opts)
	if err != nil {
		return e.Wrap(op, err)
	}

	store, err := deps.store(ctx, opts.Store, location)
	if err != nil {
		return e.Wrap(op, err)
	}

	snap, err := store.Load(ctx, location)
	if err != nil {
		return e.Wrap(op, err)
	}

	fmt.Fprintf(out, "Build ID:   %s\n", snap.BuildID())
	fmt.Fprintf(out, "Rows:       %d\n", snap.RowCount())
	fmt.Fprintf(out, "Dimension:  %d\n", snap.Dimension())

	report, err := SelfQuery(snap, opts.Samples)
	if err != nil {
		return e.Wrap(op, err)
	}

	if opts.CheckQdrant {
		if err := crossCheckQdrant(ctx, st, snap, opts.Samples, report); err != nil {
			return e.Wrap(op, err)
		}
	}

	fmt.Fprintf(out, "Self-query: %d/%d rows found themselves\n", report.Matched, report.Checked)
	if len(report.Mismatches) > 0 {
		fmt.Fprintf(out, "  mismatched rows: %v\n", report.Mismatches)
	}
	if opts.CheckQdrant {
		fmt.Fprintf(out, "Qdrant:     %d/%d top hits agree\n", report.QdrantMatched, report.QdrantChecked)
	}

	if report.Matched != report.Checked {
		return fmt.Errorf("%s: self-query failed for %d rows: %w", op, report.Checked-report.Matched, e.ErrCorruptedArtifact)
	}
	return nil
}

func inspectLocation(ctx context.Context, deps *env, opts *InspectOptions) (string, error) {
	if opts.Location != "" {
		return opts.Location, nil
	}

	switch opts.Store {
	case StoreFile:
		return "", fmt.Errorf("--location is required for store %q: %w", opts.Store, e.ErrMissingFields)
	case StoreMinio:
		if opts.BuildID != "" {
			return s3Repo.BuildPrefix(opts.BuildID), nil
		}
		db, err := deps.database(ctx)
		if err != nil {
			return "", err
		}
		build, err := pgdb.NewIndexBuildRepo(db.Pool, pgdbConv.IndexBuildConv{}).Latest(ctx)
		if err != nil {
			return "", err
		}
		return build.Location, nil
	default:
		return "", fmt.Errorf("unknown --store %q: %w", opts.Store, e.ErrStatusBadRequest)
	}
}

// sampleRows равномерно выбирает до n строк из rows, всегда включая первую и последнюю.
func sampleRows(rows, n int) []int {
	if rows <= 0 || n <= 0 {
		return nil
	}
	if n >= rows {
		res := make([]int, rows)
		for i := range res {
			res[i] = i
		}
		return res
	}
	if n == 1 {
		return []int{0}
	}

	res := make([]int, 0, n)
	for i := 0; i < n; i++ {
		row := i * (rows - 1) / (n - 1)
		if len(res) == 0 || res[len(res)-1] != row {
			res = append(res, row)
		}
	}
	return res
}

// SelfQuery ищет каждую выбранную строку её же вектором. Дубликаты векторов дают ничью
// на расстоянии 0, поэтому совпадением считается нулевое расстояние, а не номер строки.
func SelfQuery(snap *similarity.Snapshot, samples int) (*SelfQueryReport, error) {
	report := &SelfQueryReport{}

	for _, row := range sampleRows(snap.RowCount(), samples) {
		vec, err := snap.Index().Vector(row)
		if err != nil {
			return nil, err
		}
		hits, err := snap.Index().Search(vec, 1)
		if err != nil {
			return nil, err
		}

		report.Checked++
		if len(hits) == 1 && hits[0].Distance == 0 {
			report.Matched++
		} else {
			report.Mismatches = append(report.Mismatches, row)
		}
	}
	return report, nil
}

func crossCheckQdrant(ctx context.Context, st *rootState, snap *similarity.Snapshot, samples int, report *SelfQueryReport) error {
	qCfg, err := config.LoadQdrantCfg(st.logger)
	if err != nil {
		return err
	}
	qc, err := clients.NewQdrantClient(qCfg)
	if err != nil {
		return err
	}
	defer qc.Client.Close()

	repo := qdrantRepo.NewEmbeddingRepo(qc.Client, qCfg)
	for _, row := range sampleRows(snap.RowCount(), samples) {
		vec, err := snap.Index().Vector(row)
		if err != nil {
			return err
		}
		want, err := snap.IDs().Resolve(row)
		if err != nil {
			return err
		}
		got, err := repo.Search(ctx, vec, 1)
		if err != nil {
			return err
		}

		report.QdrantChecked++
		if slices.Contains(got, want) {
			report.QdrantMatched++
		}
	}
	return nil
}
