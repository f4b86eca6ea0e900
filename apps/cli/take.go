package main

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core/exam"
)

var errBadAnswer = errors.New("answer with <question> <option>, e.g. 2 b or 2 2")

// take runs the interactive loop until quit, end of input or a lost session.
func (cli *commandLine) take(ctx context.Context, testID string) error {
	ctl, r := cli.controller(testID)
	defer ctl.Close()
	if testID != "" {
		// exit goes back to the list
		r.quietly(func() { _ = ctl.ListTests(ctx) })
		if ctl.View().State == exam.StateLoading {
			return errSessionExpired
		}
	}
	ctl.Init(ctx)
	switch ctl.View().State {
	case exam.StateLoading:
		return errSessionExpired
	case exam.StateList:
		r.print("Type a test number to start it, or quit.")
	}

	lines := bufio.NewScanner(cli.in)
	for lines.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		fields := strings.Fields(strings.ToLower(lines.Text()))
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" {
			return nil
		}

		view := ctl.View()
		switch view.State {
		case exam.StateLoading:
			return errSessionExpired
		case exam.StateList:
			cli.onList(ctx, ctl, r, view, fields)
		case exam.StateAttempt:
			cli.onAttempt(ctx, ctl, r, view, fields)
		case exam.StateResult:
			if fields[0] == "back" {
				_ = ctl.BackToList(ctx)
				r.print("Type a test number to start it, or quit.")
			} else {
				r.print("Type back to see the tests, or quit.")
			}
		case exam.StateError:
			if fields[0] == "retry" {
				ctl.Retry(ctx)
			} else {
				r.print("Type retry, or quit.")
			}
		}
		if ctl.View().State == exam.StateLoading {
			return errSessionExpired
		}
	}
	return lines.Err()
}

func (cli *commandLine) onList(ctx context.Context, ctl *exam.Controller, r *renderer, view exam.View, fields []string) {
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 || n > len(view.Tests) {
		r.print("Type a test number between 1 and %d, or quit.", len(view.Tests))
		return
	}
	if err = ctl.StartAttempt(ctx, view.Tests[n-1].ID); err != nil {
		r.print("%v", err)
	}
}

func (cli *commandLine) onAttempt(ctx context.Context, ctl *exam.Controller, r *renderer, view exam.View, fields []string) {
	switch fields[0] {
	case "status":
		printStatus(r, view)
	case "submit":
		if !ctl.SubmitAttempt(ctx) {
			r.print("The attempt is already being submitted.")
		}
	case "exit":
		if err := ctl.Exit(); err != nil {
			r.print("%v", err)
			return
		}
		r.print("Attempt abandoned. Type a test number to start it, or quit.")
	default:
		q, o, err := parseAnswer(fields, view.Test)
		if err == nil {
			err = ctl.SelectOption(q, o)
		}
		if err != nil {
			r.print("%v", err)
			return
		}
		r.print("Question %d: %c", q+1, optionLetter(o))
	}
}

func printStatus(r *renderer, v exam.View) {
	r.print("Time left: %s (%d%%), %d of %d questions answered", v.Clock, v.PercentLeft, len(v.Answers), len(v.Test.Questions))
	for _, ans := range v.Answers {
		r.print("  %d: %c", ans.QuestionIndex+1, optionLetter(ans.SelectedIndex))
	}
}

// parseAnswer reads "<question> <option>": a 1-based question number and an option letter
// or 1-based option number. It returns 0-based indexes. Input of any other shape is
// errBadAnswer, whatever the range.
func parseAnswer(fields []string, t exam.Test) (int, int, error) {
	if len(fields) != 2 {
		return 0, 0, errBadAnswer
	}
	q, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, errBadAnswer
	}
	var o int
	if n, err := strconv.Atoi(fields[1]); err == nil {
		o = n - 1
	} else if len(fields[1]) == 1 && fields[1][0] >= 'a' && fields[1][0] <= 'z' {
		o = int(fields[1][0] - 'a')
	} else {
		return 0, 0, errBadAnswer
	}

	if q < 1 || q > len(t.Questions) {
		return 0, 0, errors.Wrapf(exam.ErrUnknownQuestion, "question %q", fields[0])
	}
	question := t.Questions[q-1]
	if o < 0 || o >= len(question.Options) {
		return 0, 0, errors.Wrapf(exam.ErrOptionOutOfRange, "option %q", fields[1])
	}
	return question.Index, o, nil
}
