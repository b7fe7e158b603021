package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joss/pairkit/internal/testutil"
)

func TestEnvironmentCached(t *testing.T) {
	isolate(t)
	testutil.SetEnv(t, "PAIRKIT_LOG_LEVEL", "debug")
	ResetEnv()

	assert.Equal(t, "debug", Environment().LogLevel)

	testutil.SetEnv(t, "PAIRKIT_LOG_LEVEL", "error")
	assert.Equal(t, "debug", Environment().LogLevel, "read once")

	ResetEnv()
	assert.Equal(t, "error", Environment().LogLevel)
}

func TestPathUnderHome(t *testing.T) {
	home := isolate(t)
	assert.Equal(t, home+"/"+DirName+"/ledger.db", Path("ledger.db"))
}
