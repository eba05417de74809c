package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/RichardKnop/sqlitoy"
	"github.com/RichardKnop/sqlitoy/internal/pkg/logging"
	"github.com/RichardKnop/sqlitoy/internal/record"
)

const defaultCount = 100

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: add-test-data <connection string> [count]")
		os.Exit(1)
	}

	count := defaultCount
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 0 {
			fmt.Printf("Invalid count %q\n", os.Args[2])
			os.Exit(1)
		}
		count = n
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config, err := sqlitoy.ParseConnectionString(os.Args[1])
	if err != nil {
		panic(err)
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	logger, err := logging.New(level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // flushes buffer, if any

	aDB, err := sqlitoy.New(ctx, logger, config)
	if err != nil {
		panic(err)
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))
	inserted, err := addTestData(ctx, logger, aDB, faker, count)
	closeErr := aDB.Close(ctx)
	if err != nil {
		panic(err)
	}
	if closeErr != nil {
		panic(closeErr)
	}

	fmt.Printf("Inserted %d users.\n", inserted)
}

// addTestData inserts up to n random users. IDs continue after the
// current number of rows, taken IDs are skipped. It stops early once
// the table is full.
func addTestData(ctx context.Context, logger *zap.Logger, aDB *sqlitoy.DB, faker *gofakeit.Faker, n int) (int, error) {
	existing, err := aDB.Count(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for id := uint32(existing) + 1; inserted < n; id++ {
		err := aDB.Insert(ctx, fakeUser(faker, id))
		if errors.Is(err, sqlitoy.ErrDuplicateKey) {
			continue
		}
		if errors.Is(err, sqlitoy.ErrTableFull) {
			logger.Sugar().With("inserted", inserted).Warn("table is full")
			break
		}
		if err != nil {
			return inserted, err
		}
		inserted += 1
	}

	return inserted, nil
}

func fakeUser(faker *gofakeit.Faker, id uint32) record.User {
	username := faker.Username()
	if len(username) > record.UsernameMaxLength {
		username = username[:record.UsernameMaxLength]
	}
	email := faker.Email()
	if len(email) > record.EmailMaxLength {
		email = email[:record.EmailMaxLength]
	}
	return record.User{
		ID:       id,
		Username: username,
		Email:    email,
	}
}
