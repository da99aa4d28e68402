package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"tally/internal/config"
	"tally/internal/document"
	"tally/internal/engine"
	"tally/internal/fallback"
	"tally/internal/storage"
	"tally/internal/units"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "tally",
		Short: "Natural-language calculator",
	}
	cfgPath string
	dbPath  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var (
	flagEmBase  int
	flagPpiBase int
	flagPlaces  int
	flagAI      bool
	flagSave    bool
	flagTitle   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "tally.db", "Path to the local document database (SQLite)")

	evalCmd.Flags().IntVar(&flagEmBase, "em-base", 0, "Pixels per em (overrides config)")
	evalCmd.Flags().IntVar(&flagPpiBase, "ppi-base", 0, "Pixels per inch (overrides config)")
	evalCmd.Flags().IntVar(&flagPlaces, "places", -1, "Decimal places (overrides config)")
	evalCmd.Flags().BoolVar(&flagAI, "ai", false, "Escalate unparseable lines to the AI fallback")
	evalCmd.Flags().BoolVar(&flagSave, "save", false, "Persist the evaluated document")
	evalCmd.Flags().StringVar(&flagTitle, "title", "untitled", "Document title")

	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(docsCmd)
}

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Evaluate each line of a file (or stdin) as one document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("em-base") {
			cfg.Engine.EmBase = flagEmBase
		}
		if cmd.Flags().Changed("ppi-base") {
			cfg.Engine.PpiBase = flagPpiBase
		}
		if cmd.Flags().Changed("places") {
			cfg.Engine.DecimalPlaces = flagPlaces
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		lines, err := readLines(args)
		if err != nil {
			return err
		}

		doc := document.New(flagTitle)
		for _, l := range lines {
			doc.AddLine(l)
		}

		ectx := engine.Context{
			Variables:     map[string]engine.Result{},
			EmBase:        cfg.Engine.EmBase,
			PpiBase:       cfg.Engine.PpiBase,
			DecimalPlaces: cfg.Engine.DecimalPlaces,
			Now:           time.Now(),
			Rates:         units.DefaultRates(),
		}
		evaluated := document.EvaluateAll(doc, ectx)

		if flagAI {
			evaluated, err = resolveWithAI(cmd.Context(), cfg, evaluated)
			if err != nil {
				return err
			}
		}

		printDocument(evaluated)

		if flagSave {
			store, err := storage.NewSQLiteStore(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()
			if err := store.SaveDocument(cmd.Context(), evaluated); err != nil {
				return fmt.Errorf("failed to save document: %w", err)
			}
			log.Printf("saved document %s", evaluated.ID)
		}
		return nil
	},
}

// resolveWithAI escalates every locally failed line and waits for the
// commit queue to settle before taking the final snapshot.
func resolveWithAI(ctx context.Context, cfg *config.Config, doc *document.Document) (*document.Document, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("AI fallback requested but no API key configured")
	}
	adapter, err := fallback.NewGeminiAdapter(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback adapter: %w", err)
	}

	committer := document.NewCommitter(doc)
	defer committer.Close()

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var pending []<-chan struct{}
	for _, line := range doc.Lines {
		if line.Result != nil && line.Result.IsError() {
			pending = append(pending, committer.EscalateLine(callCtx, adapter, line))
		}
	}
	for _, done := range pending {
		<-done
	}
	return committer.Snapshot(), nil
}

func printDocument(doc *document.Document) {
	for _, line := range doc.Lines {
		switch {
		case line.Result == nil:
			fmt.Println(line.Input)
		case line.Result.IsError():
			fmt.Printf("%-40s !! %s\n", line.Input, line.Result.Message)
		default:
			fmt.Printf("%-40s => %s\n", line.Input, line.Result.Formatted)
		}
	}
	fmt.Printf("%-40s => %s\n", "total", document.Total(doc).String())
}

func readLines(args []string) ([]string, error) {
	in := os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List stored documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()

		infos, err := store.ListDocuments(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("no documents")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %-30s  %s\n", info.ID, info.Title, info.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	},
}
