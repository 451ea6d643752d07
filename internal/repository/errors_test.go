package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ordermgmt/internal/database/dbtest"
)

func TestIsDuplicateKey_MySQL(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@example.com' for key 'users.email'"}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate entry", dup, true},
		{"wrapped duplicate entry", fmt.Errorf("insert user: %w", dup), true},
		{"foreign key failure", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, false},
		{"other mysql error", &mysql.MySQLError{Number: 1045, Message: "Access denied"}, false},
		{"plain error", errors.New("Duplicate entry"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isDuplicateKey(tc.err))
		})
	}
}

func TestIsDuplicateKey_SQLite(t *testing.T) {
	db := dbtest.New(t)

	_, err := db.Exec("INSERT INTO roles (id, name) VALUES (3, 'ADMIN')")
	require.Error(t, err)
	assert.True(t, isDuplicateKey(err), "unique name")

	_, err = db.Exec("INSERT INTO roles (id, name) VALUES (1, 'SUPPORT')")
	require.Error(t, err)
	assert.True(t, isDuplicateKey(err), "primary key")

	_, err = db.Exec("INSERT INTO roles (id) VALUES (4)")
	require.Error(t, err)
	assert.False(t, isDuplicateKey(err), "not null is not a duplicate")
}
