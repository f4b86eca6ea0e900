package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/courseapp/courseapp/core/exam"
)

// renderer prints a screen each time the controller changes state or message.
// Plain ticks are not printed; the status command shows the countdown.
type renderer struct {
	mu      sync.Mutex
	out     io.Writer
	last    exam.State
	lastMsg string
	printed bool
	muted   bool
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) render(v exam.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.muted {
		return
	}
	if r.printed && v.State == r.last && v.Message == r.lastMsg {
		return
	}
	sameState := r.printed && v.State == r.last
	r.printed, r.last, r.lastMsg = true, v.State, v.Message

	if sameState {
		if v.Message != "" {
			fmt.Fprintln(r.out, v.Message)
		}
		return
	}
	switch v.State {
	case exam.StateList:
		printTests(r.out, v.Tests)
	case exam.StateAttempt:
		printAttempt(r.out, v)
	case exam.StateResult:
		printResult(r.out, v.Result)
	case exam.StateError:
		fmt.Fprintf(r.out, "Error: %s\nType retry, or quit.\n", v.Message)
	}
}

// quietly runs f without rendering the screens it goes through.
func (r *renderer) quietly(f func()) {
	r.mu.Lock()
	r.muted = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.muted = false
		r.mu.Unlock()
	}()
	f()
}

func (r *renderer) sessionInvalid() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Your session has expired. Run login again.")
}

// print writes a line outside of a state change.
func (r *renderer) print(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

func printTests(out io.Writer, tests []exam.Test) {
	if len(tests) == 0 {
		fmt.Fprintln(out, "No tests available.")
		return
	}
	fmt.Fprintln(out, "Available tests:")
	for i, t := range tests {
		fmt.Fprintf(out, "  %d. %s", i+1, t.Title)
		if t.Subject != "" {
			fmt.Fprintf(out, " (%s)", t.Subject)
		}
		fmt.Fprintf(out, " - %d min, %d questions, %d marks [%s]\n", t.DurationMinutes, len(t.Questions), t.TotalMarks, t.ID)
	}
}

func printAttempt(out io.Writer, v exam.View) {
	fmt.Fprintf(out, "%s\n", v.Test.Title)
	if v.Test.Description != "" {
		fmt.Fprintln(out, v.Test.Description)
	}
	fmt.Fprintf(out, "Time left: %s\n", v.Clock)
	if v.ExpiryEstimated {
		fmt.Fprintln(out, "(the server sent no deadline; the countdown is an estimate)")
	}
	for i, q := range v.Test.Questions {
		fmt.Fprintf(out, "%d. %s (%d marks)\n", i+1, q.Text, q.Marks)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "   %c) %s\n", optionLetter(j), opt)
		}
	}
	fmt.Fprintln(out, "Answer with <question> <option> (e.g. 1 b). Other commands: status, submit, exit, quit.")
}

func printResult(out io.Writer, res *exam.AttemptResult) {
	if res == nil {
		return
	}
	maxScore := res.MaxScore
	if maxScore == 0 {
		maxScore = res.Test.TotalMarks
	}
	if res.Test.Title != "" {
		fmt.Fprintln(out, res.Test.Title)
	}
	fmt.Fprintf(out, "Score: %d / %d (%s)\n", res.Score, maxScore, res.Status)
	fmt.Fprintf(out, "Attempt: %s\n", res.AttemptID)
}

func optionLetter(i int) rune {
	return rune('a' + i)
}
