package inmemdb

import (
	"sync"

	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
)

type (
	// DB keeps every table in memory. It backs the sandbox when no database URL is configured, and the tests.
	DB struct {
		user    *userTable
		test    *testTable
		attempt *attemptTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	testTable struct {
		mutex sync.RWMutex
		table map[string]*exambank.Test
	}

	attemptTable struct {
		mutex sync.RWMutex
		table map[string]*exambank.Attempt
	}
)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		test:    &testTable{table: make(map[string]*exambank.Test)},
		attempt: &attemptTable{table: make(map[string]*exambank.Attempt)},
	}
}
