package printer

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
)

func TestNew_NonTerminalDisablesColor(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Successf("saved %s", "1@newsletter")

	assert.Equal(t, Check+" saved 1@newsletter\n", buf.String())
}

func TestWithColor(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf).WithColor(true)

	p.Errorf("boom")

	assert.Equal(t, ColorRed+Cross+" boom"+ColorReset+"\n", buf.String())
}

func TestFatalError_ValidationBox(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	var errs criterio.FieldErrorsBuilder
	errs = errs.Append("view_role", fmt.Errorf("invalid role %q", "KING"))
	err := fmt.Errorf("load config: invalid config: %w", errs.ToError())

	p.FatalError(err)

	out := buf.String()
	assert.Contains(t, out, "╭ Validation Error")
	assert.Contains(t, out, "load config: invalid config")
	assert.Contains(t, out, Cross+" view_role: invalid role \"KING\"")
}

func TestField(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Field("name", "Daily")

	assert.Equal(t, "  name: Daily\n", buf.String())
}
