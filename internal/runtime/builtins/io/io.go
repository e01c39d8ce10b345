package io

import "errors"

// IO is the minimal interface needed by the machine's input and output
// operators (print, printf, read, getline).
type IO interface {
	// Print writes s to the program's standard output.
	Print(s string)
	// ReadNumber consumes one decimal number. It returns io.EOF at end of
	// input and ErrNotANumber when the next item is not a number.
	ReadNumber() (float64, error)
	// ReadLine consumes one line without its trailing newline. It returns
	// io.EOF at end of input.
	ReadLine() (string, error)
}

var ErrNotANumber = errors.New("non-number read")
