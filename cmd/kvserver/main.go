// Command kvserver runs the concurrent in-memory key-value TCP server.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joeycumines/kvreactor/internal/config"
	"github.com/joeycumines/kvreactor/internal/reactor"
	"github.com/joeycumines/kvreactor/internal/serverlog"
)

const defaultPort = 12345

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("kvserver", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: kvserver [port]\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	port := defaultPort
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "kvserver: too many arguments")
		fs.Usage()
		return 2
	}
	if fs.NArg() == 1 {
		p, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "kvserver: invalid port %q: %s\n", fs.Arg(0), err)
			return 2
		}
		port = p
	}

	// SIGPIPE must be ignored process-wide before any socket I/O: a write
	// to a peer that has reset the connection should surface as EPIPE, not
	// terminate the process.
	signal.Ignore(syscall.SIGPIPE)

	log := serverlog.NewDefault(serverlog.LevelInfo)
	srv := reactor.New(config.New(config.WithPort(port), config.WithLogger(log)))

	if err := srv.Listen(); err != nil {
		fmt.Fprintf(os.Stderr, "kvserver: %s\n", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		srv.Stop()
	}()

	log.Log(serverlog.Entry{Level: serverlog.LevelInfo, Message: fmt.Sprintf("listening on port %d", port)})
	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "kvserver: %s\n", err)
		return 1
	}
	return 0
}
