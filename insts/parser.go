package insts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var mnemonics = map[string]Op{
	"ADD":   OpADD,
	"SUB":   OpSUB,
	"MUL":   OpMUL,
	"AND":   OpAND,
	"OR":    OpOR,
	"XOR":   OpXOR,
	"SLT":   OpSLT,
	"SLL":   OpSLL,
	"SRL":   OpSRL,
	"ADDI":  OpADDI,
	"LOAD":  OpLOAD,
	"LW":    OpLOAD,
	"STORE": OpSTORE,
	"SW":    OpSTORE,
	"BEQ":   OpBEQ,
	"BNE":   OpBNE,
	"J":     OpJ,
	"NOP":   OpNOP,
}

var formats = map[Op]Format{
	OpADD:   FormatReg,
	OpSUB:   FormatReg,
	OpMUL:   FormatReg,
	OpAND:   FormatReg,
	OpOR:    FormatReg,
	OpXOR:   FormatReg,
	OpSLT:   FormatReg,
	OpSLL:   FormatReg,
	OpSRL:   FormatReg,
	OpADDI:  FormatImm,
	OpLOAD:  FormatLoad,
	OpSTORE: FormatStore,
	OpBEQ:   FormatBranch,
	OpBNE:   FormatBranch,
	OpJ:     FormatJump,
	OpNOP:   FormatNone,
}

var operandCount = map[Format]int{
	FormatReg:    3,
	FormatImm:    3,
	FormatLoad:   2,
	FormatStore:  2,
	FormatBranch: 3,
	FormatJump:   1,
	FormatNone:   0,
}

// MaxLineLength is the longest trace line the parser accepts.
const MaxLineLength = 1 << 20

var (
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	registerRe = regexp.MustCompile(`^[Rr]([0-9]+)$`)
)

// Parser is a single pass trace parser. Names defined by .equ are visible
// to the lines that follow them only.
type Parser struct {
	Equate map[string]int64

	prog *Program
}

// NewParser creates a parser with no equates defined.
func NewParser() *Parser {
	return &Parser{Equate: map[string]int64{}}
}

// Parse parses a complete trace.
func Parse(r io.Reader) (*Program, error) {
	return NewParser().Parse(r)
}

// ParseString parses a trace held in a string.
func ParseString(text string) (*Program, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads the trace from r. Read errors are returned unwrapped; syntax
// problems, including lines longer than MaxLineLength, are returned as
// *ParseError.
func (p *Parser) Parse(r io.Reader) (*Program, error) {
	if p.Equate == nil {
		p.Equate = map[string]int64{}
	}
	p.prog = &Program{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), MaxLineLength)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if err := p.parseLine(line, lineNo); err != nil {
			return nil, &ParseError{LineNo: lineNo, Line: line, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &ParseError{LineNo: lineNo + 1, Err: ErrLineTooLong}
		}
		return nil, err
	}

	return p.prog, nil
}

func (p *Parser) parseLine(line string, lineNo int) error {
	text, err := p.expandExpressions(stripComment(line))
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	mnemonic, rest := text, ""
	if sp := strings.IndexAny(text, " \t"); sp >= 0 {
		mnemonic, rest = text[:sp], strings.TrimSpace(text[sp+1:])
	}

	switch strings.ToLower(mnemonic) {
	case ".equ":
		return p.parseEquate(rest)
	case ".word":
		return p.parseWord(rest)
	}

	op, ok := mnemonics[strings.ToUpper(mnemonic)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrOpcodeInvalid, mnemonic)
	}

	inst := &Instruction{
		Op:     op,
		Format: formats[op],
		Index:  len(p.prog.Insts),
		LineNo: lineNo,
	}

	args := splitOperands(rest)
	if len(args) != operandCount[inst.Format] {
		return fmt.Errorf("%w: %v takes %d, got %d",
			ErrOperandCount, op, operandCount[inst.Format], len(args))
	}

	if err := p.decodeOperands(inst, args); err != nil {
		return err
	}

	p.prog.Insts = append(p.prog.Insts, inst)
	return nil
}

func (p *Parser) decodeOperands(inst *Instruction, args []string) (err error) {
	switch inst.Format {
	case FormatReg:
		if inst.Rd, err = parseRegister(args[0]); err != nil {
			return err
		}
		if inst.Rs, err = parseRegister(args[1]); err != nil {
			return err
		}
		inst.Rt, err = parseRegister(args[2])
	case FormatImm:
		if inst.Rd, err = parseRegister(args[0]); err != nil {
			return err
		}
		if inst.Rs, err = parseRegister(args[1]); err != nil {
			return err
		}
		inst.Imm, err = p.valueOf(args[2])
	case FormatLoad:
		if inst.Rd, err = parseRegister(args[0]); err != nil {
			return err
		}
		inst.Rs, inst.Imm, err = p.parseMemOperand(args[1])
	case FormatStore:
		if inst.Rt, err = parseRegister(args[0]); err != nil {
			return err
		}
		inst.Rs, inst.Imm, err = p.parseMemOperand(args[1])
	case FormatBranch:
		if inst.Rs, err = parseRegister(args[0]); err != nil {
			return err
		}
		if inst.Rt, err = parseRegister(args[1]); err != nil {
			return err
		}
		inst.Imm, err = p.parseOffset(args[2], inst.Index)
	case FormatJump:
		inst.Imm, err = p.parseOffset(args[0], inst.Index)
	}
	return err
}

// parseEquate handles ".equ NAME VALUE".
func (p *Parser) parseEquate(rest string) error {
	words := strings.Fields(rest)
	if len(words) != 2 || !identRe.MatchString(words[0]) || registerRe.MatchString(words[0]) {
		return ErrEquateSyntax
	}
	if _, ok := p.Equate[words[0]]; ok {
		return fmt.Errorf("%w: %v", ErrEquateDuplicate, words[0])
	}

	value, err := p.valueOf(words[1])
	if err != nil {
		return err
	}
	p.Equate[words[0]] = value
	return nil
}

// parseWord handles ".word ADDR, VALUE".
func (p *Parser) parseWord(rest string) error {
	args := splitOperands(rest)
	if len(args) != 2 {
		return fmt.Errorf("%w: .word takes 2, got %d", ErrOperandCount, len(args))
	}
	addr, err := p.valueOf(args[0])
	if err != nil {
		return err
	}
	value, err := p.valueOf(args[1])
	if err != nil {
		return err
	}
	p.prog.Data = append(p.prog.Data, DataWord{Addr: uint64(addr), Value: uint64(value)})
	return nil
}

// parseOffset reads a branch offset relative to the branch at index.
// The target index must be representable.
func (p *Parser) parseOffset(word string, index int) (int64, error) {
	offset, err := p.valueOf(word)
	if err != nil {
		return 0, err
	}
	if offset < 1 {
		return 0, fmt.Errorf("%w: %d is not positive", ErrOffsetInvalid, offset)
	}
	if uint64(offset) > uint64(math.MaxInt-index) {
		return 0, fmt.Errorf("%w: %d overflows the target", ErrOffsetInvalid, offset)
	}
	return offset, nil
}

// parseMemOperand handles "[Rn]", "[value]", "[Rn+value]" and "[Rn-value]".
func (p *Parser) parseMemOperand(word string) (base uint8, disp int64, err error) {
	if len(word) < 3 || word[0] != '[' || word[len(word)-1] != ']' {
		return 0, 0, fmt.Errorf("%w: %q", ErrMemOperand, word)
	}
	inner := strings.Join(strings.Fields(word[1:len(word)-1]), "")
	if inner == "" {
		return 0, 0, fmt.Errorf("%w: %q", ErrMemOperand, word)
	}

	split := strings.IndexAny(inner[1:], "+-") + 1
	if split == 0 {
		if registerRe.MatchString(inner) {
			base, err = parseRegister(inner)
			return base, 0, err
		}
		disp, err = p.valueOf(inner)
		return 0, disp, err
	}

	baseWord, dispWord := inner[:split], inner[split+1:]
	if !registerRe.MatchString(baseWord) {
		return 0, 0, fmt.Errorf("%w: %q", ErrMemOperand, word)
	}
	if base, err = parseRegister(baseWord); err != nil {
		return 0, 0, err
	}
	if disp, err = p.valueOf(dispWord); err != nil {
		return 0, 0, err
	}
	if inner[split] == '-' {
		disp = -disp
	}
	return base, disp, nil
}

// valueOf returns the value of an integer literal or an equate name.
func (p *Parser) valueOf(word string) (int64, error) {
	if value, ok := p.Equate[word]; ok {
		return value, nil
	}
	value, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		// Allow unsigned 64-bit literals such as 0xFFFFFFFFFFFFFFFF.
		u, uerr := strconv.ParseUint(word, 0, 64)
		if uerr != nil {
			return 0, fmt.Errorf("%w: %q", ErrValueInvalid, word)
		}
		value = int64(u)
	}
	return value, nil
}

func parseRegister(word string) (uint8, error) {
	m := registerRe.FindStringSubmatch(word)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrRegisterInvalid, word)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n >= NumRegs {
		return 0, fmt.Errorf("%w: %q", ErrRegisterInvalid, word)
	}
	return uint8(n), nil
}

// expandExpressions replaces every $(expr) with its decimal value.
func (p *Parser) expandExpressions(line string) (string, error) {
	var sb strings.Builder
	for {
		start := strings.Index(line, "$(")
		if start < 0 {
			sb.WriteString(line)
			return sb.String(), nil
		}
		end := matchParen(line, start+1)
		if end < 0 {
			return "", fmt.Errorf("%w: unbalanced %q", ErrExpression, line[start:])
		}
		value, err := p.evalExpression(line[start+2 : end])
		if err != nil {
			return "", err
		}
		sb.WriteString(line[:start])
		sb.WriteString(strconv.FormatInt(value, 10))
		line = line[end+1:]
	}
}

// evalExpression evaluates expr as Starlark with every equate predeclared.
func (p *Parser) evalExpression(expr string) (int64, error) {
	thread := &starlark.Thread{Name: "expr"}
	opts := &syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, value := range p.Equate {
		pred[key] = starlark.MakeInt64(value)
	}

	dict, err := starlark.ExecFileOptions(opts, thread, "expr", "rc = "+expr+"\n", pred)
	if err != nil {
		return 0, fmt.Errorf("%w: $(%v): %v", ErrExpression, expr, err)
	}
	rc, ok := dict["rc"].(starlark.Int)
	if !ok {
		return 0, fmt.Errorf("%w: $(%v) is not an integer", ErrExpression, expr)
	}
	value, ok := rc.Int64()
	if !ok {
		return 0, fmt.Errorf("%w: $(%v) overflows", ErrExpression, expr)
	}
	return value, nil
}

// matchParen returns the index of the ')' closing the '(' at open.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripComment removes '#', ';' and '//' comments that are not inside $().
func stripComment(line string) string {
	depth := 0
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '$' && i+1 < len(line) && line[i+1] == '(':
			depth++
			i++
		case c == '(' && depth > 0:
			depth++
		case c == ')' && depth > 0:
			depth--
		case depth > 0:
		case c == '#' || c == ';':
			return line[:i]
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}

// splitOperands splits on commas outside brackets and trims each operand.
func splitOperands(rest string) []string {
	if strings.TrimSpace(rest) == "" {
		return nil
	}
	var args []string
	depth, start := 0, 0
	for i, c := range rest {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(rest[start:i]))
				start = i + 1
			}
		}
	}
	return append(args, strings.TrimSpace(rest[start:]))
}
