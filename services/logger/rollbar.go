package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/user"
)

// RollbarLogger reports to Rollbar (when a token is configured) and mirrors every entry on a std logger.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

// Close flushes the entries still queued for Rollbar.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

// split pulls the user out of args; the rest is forwarded to Rollbar as is.
func split(args []interface{}) (*user.User, []interface{}) {
	var usr *user.User
	rest := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if u, ok := arg.(user.User); ok {
			if usr == nil {
				usr = &u
			}
			continue
		}
		rest = append(rest, arg)
	}
	return usr, rest
}

func (l *RollbarLogger) report(level, msg string, args []interface{}) {
	usr, rest := split(args)
	if usr != nil {
		rollbar.SetPerson(usr.ID, usr.Name, usr.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, append([]interface{}{msg}, rest...)...)
	l.std.Println(format(strings.ToUpper(level), msg, usr, rest))
}

// format renders one line: LEVEL msg k=v ... err=... user=id
func format(level, msg string, usr *user.User, args []interface{}) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, v[k])
			}
		case error:
			fmt.Fprintf(&b, " err=%q", v.Error())
		default:
			fmt.Fprintf(&b, " %v", v)
		}
	}
	if usr != nil {
		fmt.Fprintf(&b, " user=%s", usr.ID)
	}
	return b.String()
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.report(rollbar.DEBUG, msg, args)
	}
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
