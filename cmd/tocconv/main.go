// tocconv converts asset tables of contents between formats and imports
// them into the asset database.
//
// Usage:
//
//	go run ./cmd/tocconv yaml <in.(yaml|json|hcl)> <out.yaml>
//	go run ./cmd/tocconv import [-config path] <in.(yaml|json|hcl)>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/l1jgo/assetd/internal/asset"
	"github.com/l1jgo/assetd/internal/config"
	"github.com/l1jgo/assetd/internal/persist"
	"github.com/l1jgo/assetd/internal/toc"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tocconv <yaml|import> ...")
	}
	switch args[0] {
	case "yaml":
		if len(args) != 3 {
			return fmt.Errorf("usage: tocconv yaml <in> <out.yaml>")
		}
		return convertYAML(args[1], args[2], out)
	case "import":
		fs := flag.NewFlagSet("import", flag.ContinueOnError)
		cfgPath := fs.String("config", "config/assetd.toml", "config file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: tocconv import [-config path] <in>")
		}
		return importDB(*cfgPath, fs.Arg(0), out)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func convertYAML(in, outPath string, out io.Writer) error {
	entries, err := toc.LoadFile(in)
	if err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "# Asset toc, generated from %s (%d entries)\n", in, len(entries))
	if err := toc.WriteYAML(f, entries); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d toc entries to %s\n", len(entries), outPath)
	return nil
}

func importDB(cfgPath, in string, out io.Writer) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	entries, err := toc.LoadFile(in)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	return importEntries(ctx, persist.NewAssetRepo(db), entries, in, out)
}

type tocStore interface {
	Upsert(ctx context.Context, id string, e asset.Entry) error
	Count(ctx context.Context) (int, error)
}

func importEntries(ctx context.Context, repo tocStore, entries asset.TOC, in string, out io.Writer) error {
	n, err := upsertAll(ctx, repo, entries)
	if err != nil {
		return err
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d toc entries from %s (%d stored)\n", n, in, total)
	return nil
}

func upsertAll(ctx context.Context, repo tocStore, entries asset.TOC) (int, error) {
	n := 0
	for _, id := range slices.Sorted(maps.Keys(entries)) {
		if err := repo.Upsert(ctx, id, entries[id]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
