package sqlbase

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationManager_LatestVersion(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	assert.Equal(t, 0, NewMigrationManager(logger, nil, nil).LatestVersion())
	assert.Equal(t, 7, NewMigrationManager(logger, nil, map[int]string{3: "", 7: "", 1: ""}).LatestVersion())
}
