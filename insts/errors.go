package insts

import (
	"errors"
	"fmt"
)

// Parse errors. A ParseError wraps exactly one of these.
var (
	ErrOpcodeInvalid   = errors.New("opcode invalid")
	ErrOperandCount    = errors.New("wrong operand count")
	ErrRegisterInvalid = errors.New("register invalid")
	ErrValueInvalid    = errors.New("value invalid")
	ErrMemOperand      = errors.New("memory operand invalid")
	ErrOffsetInvalid   = errors.New("branch offset invalid")
	ErrEquateSyntax    = errors.New(".equ syntax")
	ErrEquateDuplicate = errors.New(".equ duplicated")
	ErrExpression      = errors.New("expression invalid")
	ErrLineTooLong     = errors.New("line too long")
)

// ParseError names the trace line that could not be parsed.
type ParseError struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", err.LineNo, err.Line, err.Err)
}

func (err *ParseError) Unwrap() error {
	return err.Err
}
