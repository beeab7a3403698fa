// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pdiddy/manuscript-review/internal/evaluation"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// errAbandon asks for the review to be cancelled.
var errAbandon = errors.New("review abandoned at approval")

// approver decides on a pending evaluation. It returns the replacement
// evaluation, nil to approve unchanged, or errAbandon.
type approver interface {
	Approve(ctx context.Context, eval types.Evaluation) (*types.Evaluation, error)
}

// autoApprover approves every evaluation unchanged. It is used when no
// terminal is attached.
type autoApprover struct{}

func (autoApprover) Approve(context.Context, types.Evaluation) (*types.Evaluation, error) {
	logger.Info("no terminal attached, approving evaluation unchanged")
	return nil, nil
}

// terminalApprover asks on the terminal and edits in $VISUAL or $EDITOR.
type terminalApprover struct {
	in  *bufio.Reader
	out io.Writer

	// edit opens path in the user's editor and returns once it exits.
	edit func(ctx context.Context, path string) error
}

func newTerminalApprover(in io.Reader, out io.Writer) *terminalApprover {
	return &terminalApprover{
		in:   bufio.NewReader(in),
		out:  out,
		edit: runEditor,
	}
}

func (t *terminalApprover) Approve(ctx context.Context, eval types.Evaluation) (*types.Evaluation, error) {
	fmt.Fprintf(t.out, "\n%s\n", evaluation.FormatEditable(eval))

	for {
		fmt.Fprint(t.out, "Approve [a], edit [e], or cancel the review [c]? ")
		line, err := t.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "a", "approve", "y", "yes":
			return nil, nil
		case "c", "cancel", "q", "quit":
			return nil, errAbandon
		case "e", "edit":
			edited, changed, err := t.editEvaluation(ctx, eval)
			if err != nil {
				fmt.Fprintf(t.out, "Edit not used: %v\n", err)
				continue
			}
			if !changed {
				return nil, nil
			}
			return &edited, nil
		default:
			fmt.Fprintln(t.out, "Please answer a, e, or c.")
		}
	}
}

// editEvaluation round-trips eval through a temporary file. changed is
// false when the file comes back untouched.
func (t *terminalApprover) editEvaluation(ctx context.Context, eval types.Evaluation) (types.Evaluation, bool, error) {
	original := evaluation.FormatEditable(eval)

	f, err := os.CreateTemp("", "evaluation-*.md")
	if err != nil {
		return eval, false, err
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(original); err != nil {
		f.Close()
		return eval, false, err
	}
	if err := f.Close(); err != nil {
		return eval, false, err
	}

	if err := t.edit(ctx, path); err != nil {
		return eval, false, fmt.Errorf("running editor: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return eval, false, err
	}
	if string(data) == original {
		return eval, false, nil
	}
	edited, err := evaluation.ParseEditable(string(data))
	if err != nil {
		return eval, false, err
	}
	return edited, true, nil
}

func editorCommand() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

func runEditor(ctx context.Context, path string) error {
	argv := append(editorCommand(), path)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
