package logsvc

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func TestRollbarLogger_print(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDiscardLogger()
	logger.std = log.New(&buf, "API : ", 0)

	logger.Error("boom", errors.New("cause"), core.Person{ID: "u1"}, map[string]interface{}{"k": "v"})

	assert.Equal(t, "API : boom\nAPI : cause\nAPI : map[k:v]\n", buf.String())
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewDiscardLogger()
	err := errors.New("cause")

	args := logger.prepare("msg", []interface{}{err, core.Person{ID: "u1"}, core.Person{ID: "u2"}})
	assert.Equal(t, []interface{}{"msg", err}, args)
}

func TestNewLogWriter_sharedFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "api.log")
	out := NewLogWriter(logFile)
	api := NewStdLogger("API : ", out, 0)
	db := NewStdLogger("DB : ", out, 0)

	api.Println("hello file")
	db.Println("hello db")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "API : hello file\nDB : hello db\n", string(data))
}

func TestNewLogWriter_stdout(t *testing.T) {
	assert.Equal(t, os.Stdout, NewLogWriter(""))
}
