package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
)

// demo accounts; the password is only meant for a local sandbox
const demoPassword = "sandbox-pass-2026"

var (
	demoUsers = []user.NewUser{
		{Name: "Sandbox Admin", Email: "admin@courseapp.local", Password: demoPassword, Role: user.RoleAdmin},
		{Name: "Sandbox Learner", Email: "learner@courseapp.local", Password: demoPassword, Role: user.RoleLearner},
	}

	demoTests = []exambank.NewTest{
		{
			Title:           "Go basics",
			Subject:         "Programming",
			Description:     "A short warm-up on the Go language.",
			DurationMinutes: 5,
			Questions: []exambank.NewQuestion{
				{Text: "Which keyword starts a goroutine?", Options: []string{"async", "go", "spawn"}, CorrectIndex: 1, Marks: 1},
				{Text: "What does a nil map read return?", Options: []string{"a panic", "the zero value"}, CorrectIndex: 1, Marks: 2},
				{Text: "Which type is an interface satisfied by every type?", Options: []string{"interface{}", "struct{}", "error"}, CorrectIndex: 0, Marks: 2},
			},
		},
		{
			Title:           "Quick maths",
			Subject:         "Maths",
			DurationMinutes: 1,
			Questions: []exambank.NewQuestion{
				{Text: "7 x 8 = ?", Options: []string{"54", "56", "58", "64"}, CorrectIndex: 1, Marks: 1},
				{Text: "2^10 = ?", Options: []string{"1000", "1024"}, CorrectIndex: 1, Marks: 1},
			},
		},
	}
)

// seed adds the demo accounts and tests that are missing. Running it twice is harmless.
func (cli *commandLine) seed() error {
	var admin user.User
	for _, nu := range demoUsers {
		usr, err := cli.usrSvc.GetByEmail(nu.Email)
		if core.IsNotFound(err) {
			if usr, err = cli.usrSvc.Create(nu); err == nil {
				fmt.Printf("seeded %s account %s / %s\n", usr.Role, usr.Email, demoPassword)
			}
		}
		if err != nil {
			return errors.Wrapf(err, "seeding %s", nu.Email)
		}
		if usr.IsAdmin() {
			admin = usr
		}
	}

	existing, err := cli.examSvc.AllTests()
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	titles := make(map[string]bool, len(existing))
	for _, t := range existing {
		titles[t.Title] = true
	}
	for _, nt := range demoTests {
		if titles[nt.Title] {
			continue
		}
		if _, err = cli.examSvc.CreateTest(nt, admin); err != nil {
			return errors.Wrapf(err, "seeding test %q", nt.Title)
		}
	}
	return nil
}
