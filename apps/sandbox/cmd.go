package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/courseapp/courseapp/apps/sandbox/echo"
	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
	"github.com/courseapp/courseapp/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable
	notifySignalFunc = signal.Notify     // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("no database configured: set COURSEAPP_DATABASE_URL")
)

type commandLine struct {
	conf    *core.Config
	logger  core.Logger
	db      *sql.DB // nil with the in-memory store
	usrSvc  *user.Service
	examSvc *exambank.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  serve                               - run the sandbox API")
	fmt.Println("  seed                                - add the demo accounts and tests")
	fmt.Println("  adduser -name NAME -email EMAIL [-admin]")
	fmt.Println("                                      - create an account; the password is prompted next")
	fmt.Println("  resetpassword -email EMAIL          - set a new password; it is prompted next")
	fmt.Println("  migrate COMMAND [ARGS]              - run a goose command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email, used to log in. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Create an admin account instead of a learner one.")

	resetPwdCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPwdEmail := resetPwdCmd.String("email", "", "The account email. The new password will be prompted next.")

	switch args[1] {
	case "serve":
		return cli.serve()
	case "seed":
		return cli.seed()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		role := user.RoleLearner
		if *addUserAdmin {
			role = user.RoleAdmin
		}
		return cli.addUser(*addUserName, *addUserEmail, string(pwd), role)
	case "resetpassword":
		if err := resetPwdCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPwdEmail == "" {
			resetPwdCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter new password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPwdCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPwdEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}

// addUser creates an account after checking it the way the API would.
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	validate, translator := echoapi.NewValidator()
	nu := user.NewUser{Name: name, Email: email, Password: pwd, Role: role}
	if err := nu.Validate(validate, translator, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(nu)
	if err != nil {
		return err
	}
	fmt.Printf("created %s account %s (%s)\n", usr.Role, usr.Email, usr.ID)
	return nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	validate, translator := echoapi.NewValidator()
	rp := user.ResetPasswordRequest{Email: email, Password: pwd}
	if err := rp.Validate(validate, translator, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.ResetPassword(rp)
	if err != nil {
		return err
	}
	fmt.Printf("password updated for %s\n", usr.Email)
	return nil
}

// serve runs the API until SIGINT or SIGTERM, then drains the open requests.
// A stop on signal is reported as a shutdown error.
func (cli *commandLine) serve() error {
	if cli.db != nil {
		if err := migrateFunc(cli.db, "up"); err != nil {
			return err
		}
	}
	if cli.conf.Sandbox.Seed {
		if err := cli.seed(); err != nil {
			return err
		}
	}

	srv := echoapi.NewServer(echoapi.Options{
		Conf:    cli.conf,
		Logger:  cli.logger,
		UserSvc: cli.usrSvc,
		ExamSvc: cli.examSvc,
	})
	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()
	cli.logger.Info(fmt.Sprintf("sandbox listening on %s", cli.conf.Server.Address), map[string]interface{}{
		"build":         cli.conf.Build,
		"legacy_result": cli.conf.Sandbox.LegacyResultRoute,
		"postgres":      cli.db != nil,
	})

	shutdown := make(chan os.Signal, 1)
	notifySignalFunc(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-errs:
		return err
	case sig := <-shutdown:
		cli.logger.Info(fmt.Sprintf("%v: start shutdown", sig))
		ctx, cancel := context.WithTimeout(context.Background(), cli.conf.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		if err := <-errs; err != nil {
			return err
		}
		return core.NewShutdownError(fmt.Sprintf("%v: server stopped", sig))
	}
}
