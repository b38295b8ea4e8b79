package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceURL(t *testing.T) {
	assert.Equal(t, "file:///srv/app/migrations", SourceURL("/srv/app/migrations"))
}

func TestRollbackRejectsNonPositiveSteps(t *testing.T) {
	err := Rollback(nil, "migrations", 0)
	assert.EqualError(t, err, "steps must be positive, got 0")
}
