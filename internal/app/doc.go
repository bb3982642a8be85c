// Package app wires the CLI commands to the download engine. It builds the
// provider clients, opens the download ledger, assembles the rip service, and
// runs the requested command.
package app
