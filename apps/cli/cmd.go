package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"syscall"

	"golang.org/x/term"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exam"
	"github.com/courseapp/courseapp/services/apiclient"
	"github.com/courseapp/courseapp/services/credentials"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp           = errors.New("help provided")
	errSessionExpired = errors.New("not logged in or session expired: run login first")
)

type commandLine struct {
	conf   *core.Config
	client *apiclient.Client
	creds  *credsvc.FileStore
	logger core.Logger
	clock  core.Clock
	in     io.Reader
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL [-admin]  - log in; the password is prompted next")
	fmt.Fprintln(cli.out, "  logout                       - forget the stored token")
	fmt.Fprintln(cli.out, "  tests                        - list the published tests")
	fmt.Fprintln(cli.out, "  take [-test ID]              - take a test interactively")
	fmt.Fprintln(cli.out, "  result -attempt ID           - show the result of an attempt")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := cli.flagSet("login")
	loginEmail := loginCmd.String("email", "", "The account email. The password will be prompted next.")
	loginAdmin := loginCmd.Bool("admin", false, "Log in to an admin account.")

	takeCmd := cli.flagSet("take")
	takeTest := takeCmd.String("test", "", "Start this test right away instead of listing.")

	resultCmd := cli.flagSet("result")
	resultAttempt := resultCmd.String("attempt", "", "The attempt id.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginEmail, string(pwd), *loginAdmin)
	case "logout":
		if err := cli.creds.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Logged out.")
		return nil
	case "tests":
		return cli.listTests(ctx)
	case "take":
		if err := takeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.take(ctx, *takeTest)
	case "result":
		if err := resultCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resultAttempt == "" {
			resultCmd.Usage()
			return errHelp
		}
		return cli.result(ctx, *resultAttempt)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	fs.Usage = func() {
		fmt.Fprintf(cli.out, "Usage of %s:\n", name)
		fs.SetOutput(cli.out)
		fs.PrintDefaults()
		fs.SetOutput(ioutil.Discard)
	}
	return fs
}

func (cli *commandLine) login(ctx context.Context, email, pwd string, admin bool) error {
	token, err := cli.client.Login(ctx, email, pwd, admin)
	if err != nil {
		return err
	}
	role := credsvc.RoleLearner
	if admin {
		role = credsvc.RoleAdmin
	}
	if err = cli.creds.Store(role, token); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Logged in (%s).\n", role)
	return nil
}

// controller returns a Controller that renders on out.
func (cli *commandLine) controller(deepLinkTestID string) (*exam.Controller, *renderer) {
	r := newRenderer(cli.out)
	ctl := exam.NewController(exam.Options{
		Client:           cli.client,
		Clock:            cli.clock,
		Logger:           cli.logger,
		Session:          cli.creds,
		TickInterval:     cli.conf.Attempt.TickInterval,
		StrictExpiry:     cli.conf.Attempt.StrictExpiry,
		DeepLinkTestID:   deepLinkTestID,
		OnChange:         r.render,
		OnSessionInvalid: r.sessionInvalid,
	})
	return ctl, r
}

func (cli *commandLine) listTests(ctx context.Context) error {
	ctl, _ := cli.controller("")
	defer ctl.Close()
	ctl.Init(ctx)
	return viewErr(ctl.View())
}

func (cli *commandLine) result(ctx context.Context, attemptID string) error {
	ctl, _ := cli.controller("")
	defer ctl.Close()
	if err := ctl.FetchResult(ctx, attemptID); err != nil {
		return err
	}
	return viewErr(ctl.View())
}

// viewErr turns the non-interactive end states into an error.
func viewErr(v exam.View) error {
	switch v.State {
	case exam.StateLoading:
		return errSessionExpired
	case exam.StateError:
		return errors.New(v.Message)
	default:
		return nil
	}
}
