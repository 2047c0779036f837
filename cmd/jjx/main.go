// Command jjx is an agent-oriented porcelain over a jj repository colocated
// with Git: a narrow, structured, machine-parseable surface for making,
// validating, and rolling back repository changes through the intent
// transaction engine in internal/intent.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
