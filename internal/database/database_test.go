package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"deadlock", &mysql.MySQLError{Number: 1213}, ErrorClassDeadlock},
		{"wrapped lock wait", fmt.Errorf("insert sale: %w", &mysql.MySQLError{Number: 1205}), ErrorClassTransient},
		{"duplicate", &mysql.MySQLError{Number: 1062}, ErrorClassPermanent},
		{"bad conn", mysql.ErrInvalidConn, ErrorClassTransient},
		{"plain", errors.New("boom"), ErrorClassPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(fmt.Errorf("create: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsDuplicate(nil))
}

func TestDSN(t *testing.T) {
	cfg, err := mysql.ParseDSN(DSN("app", "secret", "db", "3306", "zaiko"))
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "zaiko", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "'+00:00'", cfg.Params["time_zone"])

	assert.Contains(t, DSN("app", "", "db", "3306", "zaiko"), "app@tcp(db:3306)/zaiko")
}

func TestSplitStatements(t *testing.T) {
	body := "-- header\nCREATE TABLE a (\n  id INT\n);\n\nCREATE TABLE b (id INT);\n"
	stmts := splitStatements(body)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (\n  id INT\n)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (id INT)", stmts[1])
}

func TestEmbeddedMigrationsOrdered(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "0001_users.up.sql", files[0])
	for _, f := range files {
		body, err := migrationFS.ReadFile("migrations/" + f)
		require.NoError(t, err)
		assert.NotEmpty(t, splitStatements(string(body)), f)
	}
}
