// Package loader reads instruction traces from files.
package loader

import (
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/pipesim/insts"
)

// IOError reports a file that could not be read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (err *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", err.Op, err.Path, err.Err)
}

func (err *IOError) Unwrap() error {
	return err.Err
}

// Load reads and parses the trace at path.
// It returns an *IOError if the file cannot be read and the parser's
// *insts.ParseError if a line is malformed.
func Load(path string) (*insts.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	prog, err := insts.Parse(f)
	if err != nil {
		var pe *insts.ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	return prog, nil
}
