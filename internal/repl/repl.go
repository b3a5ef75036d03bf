package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/Kjdragan/codescribe/internal/logger"
)

const (
	Prompt = ">> Enter a query: "
	hint   = "Ask me to create, look up, update or delete customers. Type 'quit', 'exit' or 'q' to leave."
)

// Runner answers one query. *agent.Agent satisfies it.
type Runner interface {
	Run(ctx context.Context, input string) (string, error)
}

type Options struct {
	Name        string
	HistoryFile string
	Out         io.Writer
}

type REPL struct {
	runner      Runner
	name        string
	historyFile string
	out         io.Writer
	log         zerolog.Logger
}

func New(runner Runner, opts Options) *REPL {
	r := &REPL{
		runner:      runner,
		name:        opts.Name,
		historyFile: opts.HistoryFile,
		out:         opts.Out,
		log:         logger.Component("repl"),
	}
	if r.name == "" {
		r.name = "codescribe"
	}
	if r.historyFile == "" {
		r.historyFile = filepath.Join(os.TempDir(), ".codescribe_history")
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	return r
}

// IsExit reports whether input is one of the exit tokens.
func IsExit(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// Start prints the banner and reads queries from the terminal until an exit
// token, EOF or Ctrl-C.
func (r *REPL) Start(ctx context.Context) {
	r.banner()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		HistoryFile:     r.historyFile,
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          r.out,
	})
	if err != nil {
		r.fallback(ctx, os.Stdin, err)
		return
	}
	// unblock Readline on SIGTERM
	stop := context.AfterFunc(ctx, func() { rl.Close() })
	defer func() {
		if stop() {
			rl.Close()
		}
	}()

	for {
		if ctx.Err() != nil {
			r.interrupted()
			return
		}
		line, err := rl.Readline()
		switch {
		case ctx.Err() != nil, errors.Is(err, readline.ErrInterrupt):
			r.interrupted()
			return
		case errors.Is(err, io.EOF):
			fmt.Fprintln(r.out, "Goodbye!")
			return
		case err != nil:
			fmt.Fprintf(r.out, "Error reading input: %v\n", err)
			continue
		}
		if r.handle(ctx, line) {
			return
		}
	}
}

func (r *REPL) fallback(ctx context.Context, in io.Reader, cause error) {
	r.log.Warn().Err(cause).Msg("readline unavailable, falling back to simple input mode")
	r.Simple(ctx, in)
}

type readResult struct {
	line string
	err  error
}

// readLines feeds lines from in until a read error or ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan readResult {
	ch := make(chan readResult)
	go func() {
		defer close(ch)
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			select {
			case ch <- readResult{line: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// Simple runs the loop over a plain reader, without line editing or history.
// It stops when ctx is cancelled, even while waiting for input.
func (r *REPL) Simple(ctx context.Context, in io.Reader) {
	lines := readLines(ctx, in)
	for {
		if ctx.Err() != nil {
			r.interrupted()
			return
		}
		fmt.Fprint(r.out, Prompt)

		var (
			next readResult
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			r.interrupted()
			return
		case next, ok = <-lines:
		}

		if !ok || (next.err != nil && next.line == "") {
			if ok && !errors.Is(next.err, io.EOF) {
				fmt.Fprintf(r.out, "\nError reading input: %v\n", next.err)
			}
			fmt.Fprintln(r.out, "\nGoodbye!")
			return
		}
		if r.handle(ctx, next.line) {
			return
		}
		if next.err != nil {
			fmt.Fprintln(r.out, "\nGoodbye!")
			return
		}
	}
}

// handle processes one line and reports whether the loop should stop.
func (r *REPL) handle(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}
	if IsExit(input) {
		fmt.Fprintln(r.out, "Goodbye!")
		return true
	}

	fmt.Fprintln(r.out, "Processing your request...")
	reply, err := r.runner.Run(ctx, input)
	if ctx.Err() != nil {
		r.interrupted()
		return true
	}
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n\n", err)
		return false
	}
	fmt.Fprintf(r.out, "Agent: %s\n\n", reply)
	return false
}

func (r *REPL) interrupted() {
	fmt.Fprintln(r.out, "Interrupted by user. Goodbye!")
}

func (r *REPL) banner() {
	// non-strict so names outside the font do not panic
	fmt.Fprintln(r.out, figure.NewFigure(r.name, "cybermedium", false).String())
	fmt.Fprintln(r.out, hint)
	fmt.Fprintln(r.out)
}
