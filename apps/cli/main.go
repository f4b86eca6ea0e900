// Command courseapp takes the timed tests of a course backend from a terminal.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/services/apiclient"
	"github.com/courseapp/courseapp/services/credentials"
	"github.com/courseapp/courseapp/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "courseapp : ", log.LstdFlags), conf)
	creds := credsvc.NewFileStore(conf.Credentials.Path)

	cli := commandLine{
		conf:  conf,
		creds: creds,
		client: apiclient.New(apiclient.Options{
			BaseURL:     conf.API.BaseURL,
			Timeout:     conf.API.Timeout,
			Credentials: creds,
			Logger:      logger,
		}),
		logger: logger,
		clock:  core.SystemClock(),
		in:     os.Stdin,
		out:    os.Stdout,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.run(ctx, os.Args)
	cancel()
	logger.Close()
	if err != nil {
		if err != errHelp {
			log.Printf("error: %v", err)
		}
		os.Exit(1)
	}
}
