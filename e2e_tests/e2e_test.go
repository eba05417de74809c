package e2etests

import (
	"slices"

	"github.com/RichardKnop/sqlitoy"
	"github.com/RichardKnop/sqlitoy/internal/record"
)

func (s *TestSuite) TestEmptyDatabase() {
	err := s.db.Ping()
	s.Require().NoError(err)

	s.Empty(s.selectUsers())
}

func (s *TestSuite) TestInsertAndSelect() {
	users := make([]record.User, 0, 500)
	for i := range 500 {
		users = append(users, gen.User(uint32(i+1)))
	}
	gen.ShuffleAnySlice(users)

	s.Run("Insert users in random order", func() {
		for _, aUser := range users {
			s.Require().NoError(s.insertUser(aUser))
		}
	})

	expected := slices.Clone(users)
	slices.SortFunc(expected, func(a, b record.User) int {
		return int(a.ID) - int(b.ID)
	})

	s.Run("Select returns users ordered by ID", func() {
		s.Equal(expected, s.selectUsers())
	})

	s.Run("Users survive reopening the file", func() {
		s.reopen()
		s.Equal(expected, s.selectUsers())
	})

	s.Run("Inserts after reopening keep the order", func() {
		aUser := gen.User(0)
		s.Require().NoError(s.insertUser(aUser))

		actual := s.selectUsers()
		s.Require().Len(actual, len(expected)+1)
		s.Equal(aUser, actual[0])
	})
}

func (s *TestSuite) TestDuplicateKey() {
	aUser := gen.User(42)
	s.Require().NoError(s.insertUser(aUser))

	err := s.insertUser(gen.User(42))
	s.Require().ErrorIs(err, sqlitoy.ErrDuplicateKey)

	s.Equal([]record.User{aUser}, s.selectUsers())
}

func (s *TestSuite) TestTableFull() {
	s.Require().NoError(s.db.Close())
	s.db = s.open("max_pages=3")

	var err error
	inserted := 0
	for id := uint32(1); ; id++ {
		if err = s.insertUser(gen.User(id)); err != nil {
			break
		}
		inserted += 1
	}

	s.Require().ErrorIs(err, sqlitoy.ErrTableFull)
	s.Equal(20, inserted)
	s.Len(s.selectUsers(), inserted)
}

func (s *TestSuite) TestTransactionsNotSupported() {
	_, err := s.db.Begin()
	s.Require().ErrorIs(err, sqlitoy.ErrTxNotSupported)
}
