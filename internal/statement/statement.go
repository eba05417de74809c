package statement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/RichardKnop/sqlitoy/internal/record"
)

var (
	ErrUnrecognizedStatement = errors.New("unrecognized statement")
	ErrSyntax                = errors.New("syntax error")
	ErrNegativeID            = errors.New("ID must be positive")
	ErrStringTooLong         = record.ErrStringTooLong
)

type Kind int

const (
	Insert Kind = iota + 1
	Select
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "INSERT"
	case Select:
		return "SELECT"
	default:
		return "UNKNOWN"
	}
}

type Statement struct {
	Kind Kind
	// User to insert, only set for Insert statements
	User record.User
}

type parser struct{}

func New() *parser {
	return new(parser)
}

// Parse prepares a single statement. Two forms are recognized:
//
//	insert <id> <username> <email>
//	select
func (p *parser) Parse(ctx context.Context, input string) (Statement, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Statement{}, fmt.Errorf("%w: empty input", ErrUnrecognizedStatement)
	}

	switch strings.ToLower(fields[0]) {
	case "insert":
		return p.parseInsert(fields[1:])
	case "select":
		if len(fields) > 1 {
			return Statement{Kind: Select}, fmt.Errorf("%w: select takes no arguments", ErrSyntax)
		}
		return Statement{Kind: Select}, nil
	default:
		return Statement{}, fmt.Errorf("%w: %q", ErrUnrecognizedStatement, fields[0])
	}
}

func (p *parser) parseInsert(args []string) (Statement, error) {
	aStatement := Statement{Kind: Insert}

	if len(args) != 3 {
		return aStatement, fmt.Errorf("%w: insert expects id, username and email, got %d values", ErrSyntax, len(args))
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return aStatement, fmt.Errorf("%w: invalid id %q", ErrSyntax, args[0])
	}
	if id < 0 {
		return aStatement, ErrNegativeID
	}
	if id > int64(^uint32(0)) {
		return aStatement, fmt.Errorf("%w: id %d out of range", ErrSyntax, id)
	}

	aStatement.User = record.User{
		ID:       uint32(id),
		Username: args[1],
		Email:    args[2],
	}
	if err := aStatement.User.Validate(); err != nil {
		return aStatement, err
	}

	return aStatement, nil
}
