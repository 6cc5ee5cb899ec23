package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}

// exitOnError prints the error to stderr and exits non-zero.
func exitOnError(err error) {
	os.Stderr.WriteString("Error: " + err.Error() + "\n")
	os.Exit(1)
}
