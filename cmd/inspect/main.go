// Command inspect previews the schema the loader would create for a file
// without touching any database.
//
// It parses the file, runs type inference over every column, and prints one
// line per column: the original header, the normalized column name, the
// inferred type, the detected date layout (if any), and a sample value.
//
// Output modes
//
//   - Default mode: prints an aligned text listing to stdout.
//   - Config mode (-json): emits a batch config skeleton for cmd/tabload,
//     with one override stub per column so an operator can edit types and
//     names in place instead of writing the overrides by hand.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"tabload/internal/config"
	"tabload/internal/infer"
	"tabload/internal/reader"
)

func main() {
	var (
		// flagJSON switches output from the human-readable listing to a batch
		// config skeleton suitable for cmd/tabload.
		flagJSON = flag.Bool("json", false, "emit a batch config skeleton instead of a text listing")

		// flagKind selects the sink kind recorded in the emitted config.
		// Ignored without -json.
		flagKind = flag.String("kind", "postgres", "sink kind for the emitted config: postgres|sqlite|mssql")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: inspect [flags] <file> [<file>...]")
		flag.Usage()
		os.Exit(2)
	}

	var files []config.File

	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		raw, err := reader.ReadTable(path, data)
		if err != nil {
			log.Fatalf("parse %s: %v", path, err)
		}

		previews := infer.PreviewTable(raw)

		if *flagJSON {
			files = append(files, previewFile(path, previews))
			continue
		}

		fmt.Printf("%s: table %s, %d columns, %d rows\n", path, reader.TableName(path), len(raw.Labels), len(raw.Rows))
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  LABEL\tNAME\tTYPE\tLAYOUT\tSAMPLE")
		for _, p := range previews {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", p.Label, p.Name, p.Type, p.Layout, p.Sample)
		}
		if err := w.Flush(); err != nil {
			log.Fatalf("write listing: %v", err)
		}
	}

	if !*flagJSON {
		return
	}

	batch := config.Batch{
		Job:     "tabload",
		Storage: config.Storage{Kind: *flagKind},
		Files:   files,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		log.Fatalf("encode config: %v", err)
	}
}

// previewFile turns one file's previews into a config entry whose overrides
// restate the inferred plan, ready for hand editing.
func previewFile(path string, previews []infer.Preview) config.File {
	overrides := make([]config.Override, 0, len(previews))
	for _, p := range previews {
		overrides = append(overrides, config.Override{
			Column: p.Label,
			Rename: p.Name,
			Type:   string(p.Type),
			Layout: p.Layout,
		})
	}
	return config.File{
		Path:      path,
		Table:     reader.TableName(path),
		Overrides: overrides,
	}
}
