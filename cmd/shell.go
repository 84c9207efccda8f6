package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ca-srg/elseql/internal/metrics"
	"github.com/ca-srg/elseql/internal/parser"
	"github.com/ca-srg/elseql/internal/session"
)

const (
	shellPrompt        = "elseql> "
	defaultHistoryFile = ".elseql_history"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell with keyword completion and history",
	Long: `
Start an interactive shell. Each line is one or more statements separated by ';'.

Shell commands:
  explain <query>    run with score explanations
  validate <query>   validate without running
  keywords           list completion keywords
  reload             refetch the index mapping
  debug [on|off]     show or toggle the request/response echo
  help               show this help
  exit, quit         leave the shell
`,
	Args: cobra.NoArgs,
}

// RunE is assigned here because runShell refers back to shellCmd (help text),
// which would otherwise form an initialization cycle.
func init() {
	shellCmd.RunE = runShell
}

func runShell(cmd *cobra.Command, args []string) error {
	a, err := setupApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	metrics.RecordInvocation(metrics.ModeShell)

	sh := &shell{session: a.openSession(ctx, out), out: out, logger: a.logger}
	if !sh.session.Connected() {
		fmt.Fprintln(out, "not connected: statements are echoed but not sent")
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetWordCompleter(func(text string, pos int) (string, []string, string) {
		return completeWord(sh.session.Keywords(ctx), text, pos)
	})

	historyPath := historyFile(a.cfg.HistoryFile)
	if f, err := os.Open(historyPath); err == nil {
		if _, err := line.ReadHistory(f); err != nil {
			a.logger.Debug("failed to read history", zap.String("path", historyPath), zap.Error(err))
		}
		_ = f.Close()
	}
	defer saveHistory(line, historyPath, a.logger)

	for {
		input, err := line.Prompt(shellPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if sh.execute(ctx, input) {
			return nil
		}
	}
}

func historyFile(configured string) string {
	if configured != "" {
		return configured
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultHistoryFile
	}
	return filepath.Join(home, defaultHistoryFile)
}

func saveHistory(line *liner.State, path string, log *zap.Logger) {
	f, err := os.Create(path)
	if err != nil {
		log.Warn("failed to save history", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		log.Warn("failed to save history", zap.String("path", path), zap.Error(err))
	}
}

// shell interprets one input line at a time.
type shell struct {
	session *session.Session
	out     io.Writer
	logger  *zap.Logger
}

// execute runs one line and reports whether the shell should exit.
func (sh *shell) execute(ctx context.Context, input string) bool {
	word, rest := splitWord(input)

	switch strings.ToLower(word) {
	case "exit", "quit", `\q`:
		return true
	case "help", `\h`, "?":
		fmt.Fprint(sh.out, strings.TrimLeft(shellCmd.Long, "\n"))
		return false
	case "keywords":
		for _, kw := range sh.session.Keywords(ctx) {
			fmt.Fprintln(sh.out, kw)
		}
		return false
	case "reload":
		sh.session.Reload()
		fmt.Fprintf(sh.out, "%d keywords\n", len(sh.session.Keywords(ctx)))
		return false
	case "debug":
		sh.debug(rest)
		return false
	case "explain":
		sh.run(ctx, rest, session.Options{Explain: true})
		return false
	case "validate":
		sh.run(ctx, rest, session.Options{Validate: true})
		return false
	}

	sh.run(ctx, input, session.Options{})
	return false
}

func (sh *shell) debug(arg string) {
	switch strings.ToLower(arg) {
	case "on":
		sh.session.SetDebug(true)
	case "off":
		sh.session.SetDebug(false)
		if sh.session.Debug() {
			fmt.Fprintln(sh.out, "debug stays on while not connected")
		}
	case "":
	default:
		fmt.Fprintln(sh.out, "usage: debug [on|off]")
		return
	}

	state := "off"
	if sh.session.Debug() {
		state = "on"
	}
	fmt.Fprintf(sh.out, "debug %s\n", state)
}

func (sh *shell) run(ctx context.Context, text string, opts session.Options) {
	statements := parser.SplitStatements(text)
	if len(statements) == 0 {
		fmt.Fprintln(sh.out, "ERROR: empty statement")
		return
	}

	for _, stmt := range statements {
		status, err := sh.session.Search(ctx, stmt, opts)
		if err != nil {
			sh.logger.Error("failed to write output", zap.Error(err))
			return
		}
		sh.logger.Debug("statement finished", zap.String("status", status.String()))
	}
}

func splitWord(input string) (string, string) {
	word, rest, _ := strings.Cut(strings.TrimSpace(input), " ")
	return word, strings.TrimSpace(rest)
}

// completeWord completes the word ending at pos against keywords,
// case-insensitively, preserving the case of the matching keyword.
func completeWord(keywords []string, line string, pos int) (string, []string, string) {
	runes := []rune(line)
	if pos > len(runes) {
		pos = len(runes)
	}

	start := pos
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}

	head := string(runes[:start])
	word := strings.ToLower(string(runes[start:pos]))
	tail := string(runes[pos:])

	var matches []string
	seen := make(map[string]bool)
	for _, kw := range keywords {
		if strings.HasPrefix(strings.ToLower(kw), word) && !seen[kw] {
			seen[kw] = true
			matches = append(matches, kw)
		}
	}
	sort.Strings(matches)
	return head, matches, tail
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '@'
}
