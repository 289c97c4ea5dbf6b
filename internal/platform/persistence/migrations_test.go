package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_InputValidation(t *testing.T) {
	t.Run("empty migrations path", func(t *testing.T) {
		err := RunMigrations("postgres://localhost/corebank", "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "migrations path cannot be empty")
	})

	t.Run("empty database URL", func(t *testing.T) {
		err := RunMigrations("", "migrations/postgres")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database URL cannot be empty")
	})
}
