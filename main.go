// Ripstream is a CLI tool that downloads music from streaming providers,
// tags the resulting files, and keeps a durable ledger of what it has
// already fetched.
package main

import "github.com/avoronov/ripstream/cmd"

func main() {
	cmd.Execute()
}
