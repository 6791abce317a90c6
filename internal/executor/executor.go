// Package executor connects to a user's database and applies a dnorm
// compile/diff output file (CREATE TABLE DDL, generated trigger procedures,
// seed INSERTs, or ALTER TABLE statements from a diff) against it, with
// AST-based preflight checks for blocking and destructive operations and
// transaction-safety analysis before anything runs.
package executor

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pingcap/tidb/pkg/parser/format"
)

// PreflightResult holds the warnings and errors internal/executor's
// statement analyzer found in a compiled output file, plus whether the
// whole batch can run inside one transaction.
type PreflightResult struct {
	Warnings        []Warning
	Errors          []string
	IsTransactional bool
	NonTxReasons    []string
}

// HasDestructiveOperations reports whether the preflight pass found any
// DANGER-level warning (DROP TABLE, TRUNCATE, etc.) — statements dnorm
// itself never generates, but a hand-edited compiled file might contain.
func (p *PreflightResult) HasDestructiveOperations() bool {
	for _, w := range p.Warnings {
		if w.Level == WarnDanger {
			return true
		}
	}
	return false
}

// Warning carries one preflight finding: its severity, a human-readable
// message, and the offending SQL statement.
type Warning struct {
	Level   WarningLevel
	Message string
	SQL     string
}

// WarningLevel is a const that is expandable for later and contains different levels of danger.
type WarningLevel string

const (
	WarnCaution WarningLevel = "CAUTION"
	WarnDanger  WarningLevel = "DANGER"
)

// Options configures one Applier run against a dnorm compiled output file.
type Options struct {
	DSN                   string
	DryRun                bool
	Transaction           bool
	AllowNonTransactional bool
	Unsafe                bool
	Out                   io.Writer
	In                    io.Reader
	SkipConfirmation      bool
}

// structuredOutput is the JSON envelope a dnorm compile/diff run can be
// wrapped in for programmatic callers that want statement-level metadata
// alongside the raw SQL, instead of a plain .sql file.
type structuredOutput struct {
	Format  string   `json:"format"`
	SQL     []string `json:"sql,omitempty"`
	Summary struct {
		SQLStatements int `json:"sqlStatements"`
	} `json:"summary"`
}

// Applier applies a dnorm compiled output file (DDL, generated trigger
// procedures, seed INSERTs) against a target database.
type Applier struct {
	db         *sql.DB
	statements []string
	options    Options
	analyzer   *StatementAnalyzer
	out        io.Writer
	in         io.Reader
}

// NewApplier returns a pointer to Applier for user use, with provided options.
func NewApplier(options Options) *Applier {
	out := options.Out
	if out == nil {
		out = io.Discard
	}
	in := options.In
	if in == nil {
		in = os.Stdin
	}
	return &Applier{
		options:  options,
		analyzer: NewStatementAnalyzer(),
		out:      out,
		in:       in,
	}
}

// We use custom printf to format and print messages to the output writer.
func (a *Applier) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *Applier) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}

// Apply function, look for the dryRun option, runs it, and
// depending on a transactional option, run the appropriate migration.
// If something went wrong, returns an error, otherwise nil.
func (a *Applier) Apply(ctx context.Context, statements []string, preflight *PreflightResult) error {
	a.displayPreflightChecks(preflight)
	a.displayStatements(statements)

	if a.options.DryRun {
		a.println("\n=== DRY RUN MODE ===")
		a.println("Run without --dry-run to apply.")
		return a.validatePreflight(preflight)
	}

	if a.options.Transaction && !preflight.IsTransactional {
		if !a.options.AllowNonTransactional {
			return fmt.Errorf("migration contains non-transactional DDL statements; use --allow-non-transactional to proceed")
		}
	}

	// Validate preflight before asking for confirmation
	if err := a.validatePreflight(preflight); err != nil {
		return err
	}

	// Ask for confirmation
	if !a.options.SkipConfirmation {
		if !a.askConfirmation() {
			a.println("\nMigration canceled.")
			return nil
		}
	}

	a.println("\nExecuting...")

	if a.options.Transaction && preflight.IsTransactional {
		return a.applyWithTransaction(ctx, statements)
	}

	return a.applyWithoutTransaction(ctx, statements)
}

// Connect establishes a connection with a user database and pings it to test a connection.
// If something went wrong, returns an error, otherwise nil.
func (a *Applier) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", a.options.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			return fmt.Errorf("failed to ping database: %w; additionally failed to close connection: %w", pingErr, closeErr)
		}
		return fmt.Errorf("failed to ping database: %w", pingErr)
	}

	a.db = db
	return nil
}

// Close closes a connection with a database from applier
// If something went wrong, returns an error, otherwise nil.
func (a *Applier) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// ParseStatements splits a compiled output file into individual SQL
// statements. It accepts either the structuredOutput JSON envelope or a
// plain .sql file (the format dnorm compile/diff normally writes), splitting
// the latter with the TiDB parser and falling back to semicolon-splitting
// when a statement doesn't parse (e.g. a DELIMITER-wrapped trigger body).
// An envelope whose sql list holds no non-blank entry yields no statements.
func (a *Applier) ParseStatements(content string) []string {
	content = strings.TrimSpace(content)

	var out structuredOutput
	if err := json.Unmarshal([]byte(content), &out); err == nil {
		if out.Format == "json" {
			statements := a.extractStructuredStatements(&out)
			a.statements = statements
			return statements
		}
	}

	return a.parseSQLOutput(content)
}

// PreflightChecks uses the AST-based analyzer to detect dangerous operations
// and transaction safety issues in the provided SQL statements.
func (a *Applier) PreflightChecks(statements []string, unsafe bool) *PreflightResult {
	return a.analyzer.AnalyzeStatements(statements, unsafe)
}

func (a *Applier) extractStructuredStatements(out *structuredOutput) []string {
	var statements []string
	for _, stmt := range out.SQL {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func (a *Applier) parseSQLOutput(content string) []string {
	statements := a.splitStatementsWithParser(content)
	a.statements = statements
	return statements
}

func (a *Applier) splitStatementsWithParser(content string) []string {
	content = strings.TrimSpace(content)
	if statements := a.splitStatementsUsingTiDBParser(content); len(statements) > 0 {
		return statements
	}
	return splitStatementsBySemicolon(content)
}

func (a *Applier) splitStatementsUsingTiDBParser(content string) []string {
	// TODO: add support for charset and collation
	stmtNodes, _, err := a.analyzer.parser.Parse(content, "", "")
	if err != nil || len(stmtNodes) == 0 {
		return nil
	}

	statements := make([]string, 0, len(stmtNodes))
	for _, node := range stmtNodes {
		if node == nil {
			continue
		}
		var sb strings.Builder
		ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
		if restoreErr := node.Restore(ctx); restoreErr != nil {
			continue
		}
		stmt := strings.TrimSpace(sb.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}

	if len(statements) == 0 {
		return nil
	}
	return statements
}

func splitStatementsBySemicolon(content string) []string {
	var statements []string
	var current strings.Builder

	for line := range strings.SplitSeq(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || trimmed == "" {
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}
	return statements
}

func truncateSQL(stmt string, maxLen int) string {
	stmt = strings.TrimSpace(stmt)
	if maxLen <= 0 {
		maxLen = 60
	}
	if len(stmt) > maxLen {
		return stmt[:maxLen-3] + "..."
	}
	return stmt
}

func (a *Applier) displayPreflightChecks(preflight *PreflightResult) {
	a.println("Preflight checks:")

	if a.db != nil {
		a.println("  OK: Database is accessible")
	}

	if len(a.statements) > 0 || len(preflight.Errors) == 0 {
		a.println("  OK: All migrations are valid SQL")
	}

	for _, err := range preflight.Errors {
		a.printf("  ERROR: %s\n", err)
	}

	for _, w := range preflight.Warnings {
		if w.Level == WarnDanger {
			a.printf("  DANGER: %s\n", w.Message)
		} else {
			a.printf("  WARNING: %s\n", w.Message)
		}
	}

	if !preflight.IsTransactional {
		a.println("  WARNING: Migration is NOT transaction-safe")
		for _, reason := range preflight.NonTxReasons {
			a.printf("    - %s\n", reason)
		}
	}
}

func (a *Applier) displayStatements(statements []string) {
	a.println("\nStatements to execute:")
	for i, stmt := range statements {
		a.printf("  %d. %s\n", i+1, stmt)
	}
}

func (a *Applier) validatePreflight(preflight *PreflightResult) error {
	hasDestructive := false
	for _, w := range preflight.Warnings {
		if w.Level == WarnDanger && !a.options.Unsafe {
			hasDestructive = true
			break
		}
	}

	if hasDestructive {
		return fmt.Errorf("preflight checks failed: destructive operations detected without --unsafe flag")
	}

	if a.options.Transaction && !preflight.IsTransactional && !a.options.AllowNonTransactional {
		return fmt.Errorf("preflight checks failed: non-transactional DDL detected without --allow-non-transactional flag")
	}

	return nil
}

func (a *Applier) askConfirmation() bool {
	a.printf("\nExecute? [y/n]: ")
	reader := bufio.NewReader(a.in)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func (a *Applier) applyWithTransaction(ctx context.Context, statements []string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	total := len(statements)
	for i, stmt := range statements {
		start := time.Now()
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			a.printf("  [%d/%d] FAILED: %s\n", i+1, total, truncateSQL(stmt, 50))
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("execute failed: %w; rollback also failed: %w", err, rbErr)
			}
			return fmt.Errorf("execute failed (rolled back): %w\n  Statement: %s", err, truncateSQL(stmt, 80))
		}
		elapsed := time.Since(start)
		a.printf("  [%d/%d] OK: %s (%.2fs)\n", i+1, total, truncateSQL(stmt, 50), elapsed.Seconds())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	a.println("\nMigration complete!")
	return nil
}

func (a *Applier) applyWithoutTransaction(ctx context.Context, statements []string) error {
	total := len(statements)
	successCount := 0
	for i, stmt := range statements {
		start := time.Now()
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			a.printf("  [%d/%d] FAILED: %s\n", i+1, total, truncateSQL(stmt, 50))
			return fmt.Errorf("statement %d failed: %w\n  Statement: %s\n  %d statements were already applied and cannot be automatically rolled back",
				i+1, err, truncateSQL(stmt, 80), successCount)
		}
		elapsed := time.Since(start)
		a.printf("  [%d/%d] OK: %s (%.2fs)\n", i+1, total, truncateSQL(stmt, 50), elapsed.Seconds())
		successCount++
	}

	a.println("\nMigration complete!")
	return nil
}
