package parser

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardKnop/minitable/internal/minitable"
)

var (
	ErrUnrecognizedStatement = errors.New("unrecognized keyword at start of statement")
	ErrSyntax                = errors.New("syntax error, could not parse statement")
	ErrNegativeID            = errors.New("id must be positive")
	ErrStringTooLong         = errors.New("string is too long")
)

type step int

const (
	stepBeginning step = iota + 1
	stepInsertID
	stepInsertUsername
	stepInsertEmail
	stepStatementEnd
)

type parser struct {
	minitable.Statement
	i      int // index of the next token
	tokens []string
	step   step
	logger *zap.Logger
}

func New(logger *zap.Logger) *parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &parser{logger: logger}
}

// Parse turns a single line into a statement. Supported statements are
// `insert <id> <username> <email>` and `select`, tokens are separated
// by whitespace.
func (p *parser) Parse(ctx context.Context, line string) (minitable.Statement, error) {
	p.reset()
	p.tokens = strings.Fields(line)

	aStatement, err := p.doParse()
	if err != nil {
		p.logger.Sugar().With(
			"line", line,
			"token_index", p.i,
			"error", err,
		).Debug("parse failed")
		return minitable.Statement{}, err
	}
	return aStatement, nil
}

func (p *parser) reset() {
	p.Statement = minitable.Statement{}
	p.tokens = nil
	p.step = stepBeginning
	p.i = 0
}

func (p *parser) doParse() (minitable.Statement, error) {
	for {
		switch p.step {
		case stepBeginning:
			switch strings.ToLower(p.peek()) {
			case "insert":
				p.Kind = minitable.Insert
				p.pop()
				p.step = stepInsertID
			case "select":
				p.Kind = minitable.Select
				p.pop()
				p.step = stepStatementEnd
			default:
				return minitable.Statement{}, fmt.Errorf("%w: %q", ErrUnrecognizedStatement, p.peek())
			}
		case stepInsertID:
			id, err := p.popID()
			if err != nil {
				return minitable.Statement{}, err
			}
			p.Row.ID = id
			p.step = stepInsertUsername
		case stepInsertUsername:
			username, err := p.popString(minitable.UsernameSize)
			if err != nil {
				return minitable.Statement{}, err
			}
			p.Row.Username = username
			p.step = stepInsertEmail
		case stepInsertEmail:
			email, err := p.popString(minitable.EmailSize)
			if err != nil {
				return minitable.Statement{}, err
			}
			p.Row.Email = email
			p.step = stepStatementEnd
		case stepStatementEnd:
			if p.i < len(p.tokens) {
				return minitable.Statement{}, fmt.Errorf("%w: unexpected %q", ErrSyntax, p.peek())
			}
			return p.Statement, nil
		}
	}
}

func (p *parser) peek() string {
	if p.i >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.i]
}

func (p *parser) pop() string {
	peeked := p.peek()
	if p.i < len(p.tokens) {
		p.i += 1
	}
	return peeked
}

func (p *parser) popID() (uint32, error) {
	token := p.pop()
	if token == "" {
		return 0, fmt.Errorf("%w: missing id", ErrSyntax)
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", ErrSyntax, token)
	}
	if id < 0 {
		return 0, ErrNegativeID
	}
	if id > math.MaxUint32 {
		return 0, fmt.Errorf("%w: id %d out of range", ErrSyntax, id)
	}
	return uint32(id), nil
}

func (p *parser) popString(maxSize int) (string, error) {
	token := p.pop()
	if token == "" {
		return "", fmt.Errorf("%w: missing value", ErrSyntax)
	}
	if len(token) > maxSize {
		return "", fmt.Errorf("%w: %d bytes, maximum is %d", ErrStringTooLong, len(token), maxSize)
	}
	if strings.IndexByte(token, 0) >= 0 {
		return "", fmt.Errorf("%w: zero byte in %q", ErrSyntax, token)
	}
	return token, nil
}
