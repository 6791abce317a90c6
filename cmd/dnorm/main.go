// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"dnorm/internal/diff"
	"dnorm/internal/emit"
	"dnorm/internal/executor"
	"dnorm/internal/graph"
	"dnorm/internal/process"
	"dnorm/internal/schema"
	"dnorm/internal/tomlschema"
	"dnorm/internal/trigger"
	"dnorm/internal/validate"
)

type compileFlags struct {
	outFile string
}

type applyFlags struct {
	dsn                   string
	dryRun                bool
	transaction           bool
	allowNonTransactional bool
	unsafe                bool
	timeout               int
}

type validateFlags struct{}

type diffFlags struct {
	outFile string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "dnorm",
		Short: "Augmented normalization schema compiler",
	}

	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(diffCmd())
	rootCmd.AddCommand(applyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema.toml>",
		Short: "Check a schema document for unresolved references",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	}
	return cmd
}

func runValidate(path string) error {
	doc, err := loadDocument(path)
	if err != nil {
		return err
	}

	result := validate.Validate(doc)
	if result.OK() {
		fmt.Println("schema is valid")
		return nil
	}

	for _, msg := range result.Messages() {
		fmt.Fprintln(os.Stderr, msg)
	}
	return fmt.Errorf("schema failed validation with %d error(s)", len(result.Errors))
}

func compileCmd() *cobra.Command {
	flags := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "compile <schema.toml>",
		Short: "Compile a schema document into DDL and trigger procedures",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCompile(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.outFile, "output", "o", "", "Output file for the generated SQL")
	return cmd
}

func runCompile(path string, flags *compileFlags) error {
	ps, err := compileSchema(path)
	if err != nil {
		return err
	}

	order, err := topoOrder(ps)
	if err != nil {
		return err
	}

	automations, err := trigger.Analyze(ps)
	if err != nil {
		return fmt.Errorf("analyzing derivation directives: %w", err)
	}
	triggers, err := trigger.GenerateAll(automations)
	if err != nil {
		return fmt.Errorf("generating triggers: %w", err)
	}

	var b strings.Builder
	b.WriteString(emit.EmitSchema(ps, order))
	for _, name := range order {
		table, _ := ps.Table(name)
		if seed := emit.EmitSeedContent(table); seed != "" {
			b.WriteString(seed)
			b.WriteString("\n")
		}
	}
	for _, name := range order {
		tt := triggers[name]
		if tt == nil {
			continue
		}
		b.WriteString(tt.Insert)
		b.WriteString(tt.Update)
		b.WriteString(tt.Delete)
	}

	return writeOutput(b.String(), flags.outFile)
}

func diffCmd() *cobra.Command {
	flags := &diffFlags{}
	cmd := &cobra.Command{
		Use:   "diff <old.toml> <new.toml>",
		Short: "Show the additive changes between two schema documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runDiff(args[0], args[1], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.outFile, "output", "o", "", "Output file for the diff SQL")
	return cmd
}

func runDiff(oldPath, newPath string, flags *diffFlags) error {
	oldSchema, err := compileSchema(oldPath)
	if err != nil {
		return fmt.Errorf("old schema: %w", err)
	}
	newSchema, err := compileSchema(newPath)
	if err != nil {
		return fmt.Errorf("new schema: %w", err)
	}

	schemaDiff := diff.Diff(oldSchema, newSchema)
	for _, w := range schemaDiff.Warnings {
		fmt.Fprintln(os.Stderr, "warning: "+w)
	}
	if schemaDiff.IsEmpty() {
		fmt.Println("-- no additive changes")
		return nil
	}

	statements := diff.SQLStatements(schemaDiff, newSchema)
	return writeOutput(strings.Join(statements, "\n")+"\n", flags.outFile)
}

// compileSchema runs the full pipeline up through the dependency graph
// engine's cycle and reachability checks: parse, validate, process, check
// the foreign key graph, validate automation paths. Callers that only need
// the processed schema (diff) stop here; compile continues on to trigger
// generation and emission.
func compileSchema(path string) (*process.ProcessedSchema, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}

	result := validate.Validate(doc)
	if !result.OK() {
		for _, msg := range result.Messages() {
			fmt.Fprintln(os.Stderr, msg)
		}
		return nil, fmt.Errorf("%s: schema failed validation with %d error(s)", path, len(result.Errors))
	}

	ps, err := process.ProcessSchema(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if _, err := graph.CheckFKGraph(ps); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if pathResult := validate.ValidateAutomationPaths(ps); !pathResult.OK() {
		for _, msg := range pathResult.Messages() {
			fmt.Fprintln(os.Stderr, msg)
		}
		return nil, fmt.Errorf("%s: schema failed validation with %d error(s)", path, len(pathResult.Errors))
	}

	return ps, nil
}

func topoOrder(ps *process.ProcessedSchema) ([]string, error) {
	g := graph.BuildFKGraph(ps)
	return g.TopoSort()
}

func applyCmd() *cobra.Command {
	flags := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply <compiled.sql>",
		Short: "Apply a compiled DDL/trigger file to a database",
		Long: `Connects to your database and applies a file produced by "dnorm compile".

This command runs the same preflight checks dnorm's executor always runs:
- Warns about blocking DDL operations
- Warns about destructive operations (DROP TABLE, DROP COLUMN, etc. — dnorm
  itself never generates these, but a hand-edited file might contain one)
- Checks transaction safety of the statements

Examples:
  dnorm apply schema.sql --dsn "user:pass@tcp(localhost:3306)/mydb"
  dnorm apply schema.sql --dsn "user:pass@tcp(localhost:3306)/mydb" --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runApply(args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "Database connection string (required)")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "d", false, "Print statements and run preflight checks without executing")
	cmd.Flags().BoolVarP(&flags.transaction, "transaction", "t", true, "Run in a transaction if possible")
	cmd.Flags().BoolVar(&flags.allowNonTransactional, "allow-non-transactional", true, "Allow non-transactional DDL (CREATE TRIGGER always is)")
	cmd.Flags().BoolVarP(&flags.unsafe, "unsafe", "u", false, "Allow destructive operations (DROP TABLE, etc.)")
	cmd.Flags().IntVar(&flags.timeout, "timeout", 300, "Connection timeout in seconds")
	return cmd
}

func runApply(path string, flags *applyFlags) error {
	if flags.dsn == "" {
		return fmt.Errorf("--dsn is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	app := executor.NewApplier(executor.Options{
		DSN:                   flags.dsn,
		DryRun:                flags.dryRun,
		Transaction:           flags.transaction,
		AllowNonTransactional: flags.allowNonTransactional,
		Unsafe:                flags.unsafe,
		Out:                   os.Stdout,
	})
	defer func() { _ = app.Close() }()

	statements := app.ParseStatements(string(content))
	if len(statements) == 0 {
		fmt.Println("no SQL statements found")
		return nil
	}

	fmt.Printf("found %d statement(s) in %s\n\n", len(statements), path)
	preflight := app.PreflightChecks(statements, flags.unsafe)

	if flags.dryRun {
		return app.Apply(context.Background(), statements, preflight)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	fmt.Println("connecting to database")
	if err := app.Connect(ctx); err != nil {
		return err
	}
	return app.Apply(ctx, statements, preflight)
}

func loadDocument(path string) (*schema.Document, error) {
	p := tomlschema.NewParser()
	doc, err := p.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func writeOutput(content, outFile string) error {
	if outFile == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.WriteFile(outFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("output saved to %s\n", outFile)
	return nil
}
