package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("NOT_FOUND", "node 3 does not exist", map[string]int{"node": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "node 3 does not exist", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("document is valid"))
	require.NoError(t, formatter.Error("INVALID_EDGE", "self-loop", "details hidden"))

	out := buf.String()
	assert.Contains(t, out, "✓ document is valid")
	assert.Contains(t, out, "✗ [INVALID_EDGE] self-loop")
	assert.NotContains(t, out, "details hidden")
}

func TestOutputFormatter_TextDetailsWhenVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("E", "failed", "more context"))
	assert.Contains(t, buf.String(), "more context")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestOutputFormatter_Fail(t *testing.T) {
	t.Run("tree error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}

		err := formatter.Fail(fmt.Errorf("doc.json: %w", &tree.Error{Code: tree.CodeDanglingEdge, Message: "connection to node 9"}))
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.True(t, tree.IsDanglingEdge(err))

		resp := decodeResponse(t, buf.String())
		assert.Equal(t, "DANGLING_EDGE", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "doc.json")
	})

	t.Run("command error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}

		err := formatter.Fail(errors.New("read document: no such file"))
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		resp := decodeResponse(t, buf.String())
		assert.Equal(t, ErrCodeCommand, resp.Error.Code)
	})
}

func TestExitError(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "write document", inner)

	assert.Equal(t, "write document: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitFailure, GetExitCode(inner))
	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}
