// Command cardkeep is the CLI for scanning cards into a staged
// holding area and committing them into durable collections.
package main
