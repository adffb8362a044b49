package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/client"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/session"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const takeHelp = "[a-d] answer  n/p move  g N jump  f flag  s submit  q quit"

func takeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take <exam-id>",
		Short: "Start or resume an exam and answer it interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, log, err := setup(cmd)
			if err != nil {
				return err
			}
			return runTake(cmd.Context(), api, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), log, time.Second)
		},
	}
}

// ─── Input ──────────────────────────────────────────────────────────

type action int

const (
	actAnswer action = iota
	actNext
	actPrev
	actJump
	actFlag
	actSubmit
	actConfirm
	actCancel
	actRetry
	actQuit
)

type command struct {
	act    action
	option model.Option
	index  int
}

var errUnknownCommand = errors.New("unknown command, " + takeHelp)

// parseCommand reads one line of terminal input. Jump targets are 1-based.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{}, errUnknownCommand
	}

	if opt, ok := model.ParseOption(fields[0]); ok && len(fields) == 1 {
		return command{act: actAnswer, option: opt}, nil
	}

	switch fields[0] {
	case "n", "next":
		return command{act: actNext}, nil
	case "p", "prev":
		return command{act: actPrev}, nil
	case "g", "go":
		if len(fields) != 2 {
			return command{}, errors.New("usage: g <question number>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return command{}, errors.New("question number must be a positive integer")
		}
		return command{act: actJump, index: n - 1}, nil
	case "f", "flag":
		return command{act: actFlag}, nil
	case "s", "submit":
		return command{act: actSubmit}, nil
	case "y", "yes":
		return command{act: actConfirm}, nil
	case "x", "cancel":
		return command{act: actCancel}, nil
	case "r", "retry":
		return command{act: actRetry}, nil
	case "q", "quit":
		return command{act: actQuit}, nil
	}
	return command{}, errUnknownCommand
}

func apply(ctx context.Context, ctrl *session.Controller, cmd command) error {
	switch cmd.act {
	case actAnswer:
		return ctrl.SelectCurrent(ctx, cmd.option)
	case actNext:
		ctrl.Next()
	case actPrev:
		ctrl.Previous()
	case actJump:
		ctrl.JumpTo(cmd.index)
	case actFlag:
		ctrl.ToggleFlag(ctrl.Snapshot().Current)
	case actSubmit:
		return ctrl.RequestSubmit()
	case actConfirm:
		_, err := ctrl.ConfirmSubmit(ctx)
		return err
	case actCancel:
		ctrl.CancelSubmit()
	case actRetry:
		return ctrl.Load(ctx)
	}
	return nil
}

// ─── Session Loop ───────────────────────────────────────────────────

func runTake(ctx context.Context, api *client.Client, examID string, in io.Reader, out io.Writer, log zerolog.Logger, tickEvery time.Duration) error {
	if _, err := api.Start(ctx, examID); err != nil {
		return err
	}

	ctrl := session.New(api, examID, session.WithAutosave(api), session.WithLogger(log))

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for ctrl.Load(ctx) != nil {
		fmt.Fprintf(out, "Could not load the exam: %v\nType r to retry or q to quit.\n", ctrl.Snapshot().Err)
		line, ok := <-lines
		if !ok {
			return errors.New("exam could not be loaded")
		}
		if cmd, err := parseCommand(line); err != nil || cmd.act != actRetry {
			return nil
		}
	}
	if ctrl.Phase() == session.PhaseEmpty {
		fmt.Fprintln(out, "This exam has no questions yet.")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(tickEvery)
	defer ticker.Stop()

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(runCtx, ticker.C) }()

	render(out, ctrl.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-done:
			if ctrl.Phase() == session.PhaseCompleted {
				fmt.Fprintln(out, "Time is up.")
				return finish(ctx, api, out, ctrl.Snapshot())
			}
			return err

		case line, ok := <-lines:
			if !ok {
				// Input closed; the countdown still submits on its own.
				lines = nil
				continue
			}
			cmd, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if cmd.act == actQuit {
				fmt.Fprintln(out, "Leaving. Your answers are autosaved and the timer keeps running on the server.")
				return nil
			}
			if err := apply(ctx, ctrl, cmd); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if ctrl.Phase() == session.PhaseCompleted {
				cancel()
				<-done
				return finish(ctx, api, out, ctrl.Snapshot())
			}
			render(out, ctrl.Snapshot())
		}
	}
}

func finish(ctx context.Context, api *client.Client, out io.Writer, snap session.Snapshot) error {
	fmt.Fprintf(out, "Submitted. Attempt %s\n\n", snap.AttemptID)
	if err := printAnalysis(ctx, api, snap.AttemptID.String(), out, false); err != nil {
		fmt.Fprintf(out, "Review unavailable right now (%v). Run: alphaexam analysis %s\n", err, snap.AttemptID)
	}
	return nil
}

// ─── Rendering ──────────────────────────────────────────────────────

func render(w io.Writer, s session.Snapshot) {
	fmt.Fprintf(w, "\n%s   [Q %d/%d]   answered %d/%d   time left %s\n",
		s.Title, s.Current+1, s.Total, s.AnsweredSoFar, s.Total, formatClock(s.TimeLeft))
	if len(s.Flagged) > 0 {
		nums := make([]string, len(s.Flagged))
		for i, idx := range s.Flagged {
			nums[i] = strconv.Itoa(idx + 1)
		}
		fmt.Fprintf(w, "Flagged: %s\n", strings.Join(nums, ", "))
	}

	if q := s.Question; q != nil {
		fmt.Fprintf(w, "\n%d. %s\n", s.Current+1, q.QuestionText)
		for _, opt := range []struct {
			key  model.Option
			text string
		}{
			{model.OptionA, q.OptionA},
			{model.OptionB, q.OptionB},
			{model.OptionC, q.OptionC},
			{model.OptionD, q.OptionD},
		} {
			marker := " "
			if s.Answers[q.ID.String()] == opt.key {
				marker = "*"
			}
			fmt.Fprintf(w, " %s %s) %s\n", marker, opt.key, opt.text)
		}
	}

	switch {
	case s.Confirming:
		fmt.Fprintf(w, "\nSubmit %d of %d answers now? y to confirm, x to cancel\n", s.AnsweredSoFar, s.Total)
	case s.Err != nil:
		fmt.Fprintf(w, "\nLast submission failed: %v. Press s to try again.\n", s.Err)
	default:
		fmt.Fprintln(w, "\n"+takeHelp)
	}
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
