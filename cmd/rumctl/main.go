// Command rumctl plays the UI side of the method channel against a running
// bridge: it can invoke methods, listen for pushes and print argument
// schemas.
package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

type globalOptions struct {
	Addr    string        `short:"a" long:"addr" default:"localhost:7070" description:"bridge gRPC address"`
	Output  string        `short:"o" long:"output" default:"yaml" choice:"yaml" choice:"json" description:"output format"`
	Timeout time.Duration `long:"timeout" default:"5s" description:"per-call timeout for invoke"`
}

var global globalOptions

func main() {
	parser := flags.NewParser(&global, flags.Default)
	parser.AddCommand("invoke", "Invoke a channel method", "Sends one method call and prints the result.", &invokeCmd{})
	parser.AddCommand("listen", "Print pushed notifications", "Attaches as the UI side and prints every notification until interrupted.", &listenCmd{})
	parser.AddCommand("schema", "Print argument schemas", "Lists the recognised methods, or prints the JSON schema of one.", &schemaCmd{})

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
