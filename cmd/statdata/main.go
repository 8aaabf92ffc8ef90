package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	httpapi "github.com/lichtbaer/StatData/internal/api/http"
	"github.com/lichtbaer/StatData/internal/app"
	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/catalog"
	"github.com/lichtbaer/StatData/internal/config"
	"github.com/lichtbaer/StatData/internal/server"
	"github.com/lichtbaer/StatData/pkg/types"
)

var version = "0.1.0"

func main() {
	// A missing .env file is fine
	godotenv.Load()

	cliApp := &cli.App{
		Name:    "statdata",
		Usage:   "Unified catalog and cache for social science datasets",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (YAML or JSON)",
				EnvVars: []string{"STATDATA_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List known datasets, optionally filtered by source",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Usage: "Restrict to one source"},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the dataset catalog",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Usage: "Restrict to one source"},
					&cli.StringFlag{Name: "variable", Usage: "Require a matching variable name"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of results", Value: 100},
				},
			},
			{
				Name:      "info",
				Usage:     "Show catalog metadata for a dataset",
				ArgsUsage: "<source:dataset[:version]>",
				Action:    infoCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "language", Usage: "Translate labels to this language"},
				},
			},
			{
				Name:      "load",
				Usage:     "Load a cached dataset and print it as JSON",
				ArgsUsage: "<source:dataset[:version]>",
				Action:    loadCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "filter",
						Usage: "Column filter as column=value (repeatable)",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a downloaded archive file into the cache",
				ArgsUsage: "<source:dataset[:version]> <file>",
				Action:    ingestCommand,
			},
			{
				Name:      "fetch",
				Usage:     "Download a file into a dataset's raw directory",
				ArgsUsage: "<source:dataset[:version]> <url>",
				Action:    fetchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "checksum", Usage: "Expected SHA-256 of the file"},
					&cli.StringFlag{Name: "filename", Usage: "Name for the downloaded file"},
				},
			},
			{
				Name:   "rebuild-index",
				Usage:  "Rebuild the search index from cached manifests",
				Action: rebuildCommand,
			},
			{
				Name:  "mirror",
				Usage: "Replicate cache entries to or from the configured mirror",
				Subcommands: []*cli.Command{
					{
						Name:      "push",
						Usage:     "Upload a cache entry to the mirror",
						ArgsUsage: "<source:dataset[:version]>",
						Action:    mirrorPushCommand,
					},
					{
						Name:      "pull",
						Usage:     "Download a cache entry from the mirror",
						ArgsUsage: "<source:dataset[:version]>",
						Action:    mirrorPullCommand,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides config)"},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openApp(c *cli.Context) (*app.App, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	return app.New(c.Context, cfg)
}

func listCommand(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	summaries, err := a.Service.ListDatasets(c.Context, c.String("source"))
	if err != nil {
		return err
	}
	printSummaries(summaries)
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: statdata search <query>")
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	query := c.Args().Get(0)
	var summaries []types.DatasetSummary
	if variable := c.String("variable"); variable != "" {
		summaries, err = a.Service.SearchAdvanced(c.Context, catalog.AdvancedQuery{
			Query:        query,
			Source:       c.String("source"),
			VariableName: variable,
			Limit:        c.Int("limit"),
		})
	} else {
		summaries, err = a.Service.Search(c.Context, query, c.String("source"), c.Int("limit"))
	}
	if err != nil {
		return err
	}
	printSummaries(summaries)
	return nil
}

func infoCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: statdata info <source:dataset[:version]>")
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	record, err := a.Service.GetInfo(c.Context, c.Args().Get(0))
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("dataset %s not found in the catalog", c.Args().Get(0))
	}

	if lang := c.String("language"); lang != "" {
		record.VariableLabels = a.I18n.TranslateVariableLabels(record.VariableLabels, lang, record.ID)
	}
	return printJSON(record)
}

func loadCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: statdata load <source:dataset[:version]>")
	}

	filters := make(map[string]string)
	for _, f := range c.StringSlice("filter") {
		col, val, ok := splitFilter(f)
		if !ok {
			return fmt.Errorf("invalid filter %q, expected column=value", f)
		}
		filters[col] = val
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	table, err := a.Service.Load(c.Context, c.Args().Get(0), filters)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"columns":   table.Columns,
		"rows":      table.Rows,
		"row_count": table.NumRows(),
	})
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: statdata ingest <source:dataset[:version]> <file>")
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.Service.Ingest(c.Context, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}

	fmt.Printf("ingested %s (%d rows) into %s\n", outcome.DatasetID, outcome.RowCount, outcome.EntryDir)
	if outcome.Index.Indexed {
		fmt.Println("search index updated")
	} else {
		fmt.Printf("search index not updated: %s\n", outcome.Index.Reason)
	}
	return nil
}

func fetchCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: statdata fetch <source:dataset[:version]> <url>")
	}

	id, err := types.ParseDatasetID(c.Args().Get(0))
	if err != nil {
		return err
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	entryDir, err := a.Cache.EntryDir(id.Source, id.Dataset, id.Version)
	if err != nil {
		return err
	}

	name := c.String("filename")
	if name == "" {
		name = "download.dat"
	}
	dest := filepath.Join(cachestore.RawDir(entryDir), name)

	if err := a.Downloader.Fetch(c.Context, c.Args().Get(1), dest, c.String("checksum")); err != nil {
		return err
	}
	fmt.Printf("downloaded to %s\n", dest)
	return nil
}

func rebuildCommand(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Service.Rebuild(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d datasets, skipped %d\n", result.Indexed, result.Skipped)
	return nil
}

func mirrorPushCommand(c *cli.Context) error {
	return mirrorTransfer(c, true)
}

func mirrorPullCommand(c *cli.Context) error {
	return mirrorTransfer(c, false)
}

func mirrorTransfer(c *cli.Context, push bool) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: statdata mirror %s <source:dataset[:version]>", direction(push))
	}

	id, err := types.ParseDatasetID(c.Args().Get(0))
	if err != nil {
		return err
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Mirror()
	if err != nil {
		return err
	}

	if push {
		err = m.UploadEntry(c.Context, id.Source, id.Dataset, id.Version)
	} else {
		err = m.DownloadEntry(c.Context, id.Source, id.Dataset, id.Version)
	}
	if err != nil {
		return err
	}
	fmt.Printf("mirror %s complete for %s\n", direction(push), id.String())
	return nil
}

func serveCommand(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}

	addr := a.Config.HTTP.Addr
	if v := c.String("addr"); v != "" {
		addr = v
	}

	apiServer := httpapi.NewServer(a.Service, a.Logger)
	srv := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Router(),
		ReadTimeout:  a.Config.HTTP.ReadTimeout,
		WriteTimeout: a.Config.HTTP.WriteTimeout,
		IdleTimeout:  a.Config.HTTP.IdleTimeout,
	}

	return server.Run(context.Background(), srv, a.Logger, server.CloserFunc(a.Close))
}

func printSummaries(summaries []types.DatasetSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tTITLE")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Source, s.Title)
	}
	w.Flush()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitFilter(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], s[:i] != ""
		}
	}
	return "", "", false
}

func direction(push bool) string {
	if push {
		return "push"
	}
	return "pull"
}
