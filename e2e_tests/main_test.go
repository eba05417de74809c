package e2etests

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/suite"

	_ "github.com/RichardKnop/sqlitoy"
	"github.com/RichardKnop/sqlitoy/internal/record"
)

var gen = newDataGen(uint64(time.Now().Unix()))

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed uint64) *dataGen {
	g := dataGen{
		Faker: gofakeit.New(seed),
	}

	return &g
}

func (g *dataGen) User(id uint32) record.User {
	email := g.Email()
	if len(email) > record.EmailMaxLength {
		email = email[:record.EmailMaxLength]
	}
	return record.User{
		ID:       id,
		Username: g.Username(),
		Email:    email,
	}
}

type TestSuite struct {
	suite.Suite
	dbPath string
	db     *sql.DB
}

func TestEndToEnd(t *testing.T) {
	suite.Run(t, new(TestSuite))
}

func (s *TestSuite) SetupTest() {
	s.dbPath = filepath.Join(s.T().TempDir(), "e2e.db")
	s.db = s.open("max_pages=1000")
}

func (s *TestSuite) TearDownTest() {
	if s.db != nil {
		s.Require().NoError(s.db.Close())
	}
}

func (s *TestSuite) open(params string) *sql.DB {
	db, err := sql.Open("sqlitoy", s.dbPath+"?log_level=warn&"+params)
	s.Require().NoError(err)
	return db
}

// reopen closes every connection, flushing the file, and opens it again.
func (s *TestSuite) reopen() {
	s.Require().NoError(s.db.Close())
	s.db = s.open("max_pages=1000")
}

func (s *TestSuite) insertUser(aUser record.User) error {
	_, err := s.db.Exec(fmt.Sprintf("insert %d %s %s", aUser.ID, aUser.Username, aUser.Email))
	return err
}

func (s *TestSuite) selectUsers() []record.User {
	rows, err := s.db.Query("select")
	s.Require().NoError(err)
	defer rows.Close()

	users := []record.User{}
	for rows.Next() {
		var aUser record.User
		s.Require().NoError(rows.Scan(&aUser.ID, &aUser.Username, &aUser.Email))
		users = append(users, aUser)
	}
	s.Require().NoError(rows.Err())
	return users
}
