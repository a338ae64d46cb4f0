package main

// Exit codes for the chartdeck CLI.
const (
	ExitOK             = 0
	ExitFailure        = 1 // Invalid arguments or nothing produced.
	ExitPartialFailure = 2 // Output written, but some sections or charts failed.
)

// exitCodeError carries a specific exit code out of a command.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }
