package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatErrorPlain(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  *CLIError
		want []string
	}{
		"validation with remediation": {
			err:  ValidationFailed(1, 3),
			want: []string{"Error [Validation Error]: 1 of 3 document(s) failed validation", "To fix this:", "  • Use --strict"},
		},
		"argument with usage": {
			err:  MissingDocumentArgument("queenbee dag validate <file>..."),
			want: []string{"Error [Argument Error]", "Usage: queenbee dag validate <file>..."},
		},
		"not found": {
			err:  DocumentNotFound("dag.yaml"),
			want: []string{"Error [Prerequisite Error]: file not found: dag.yaml"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := FormatErrorPlain(tt.err)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			assert.True(t, strings.HasSuffix(got, "\n"))
		})
	}
}

func TestFprintError(t *testing.T) {
	t.Parallel()

	var empty bytes.Buffer
	FprintError(&empty, nil)
	assert.Empty(t, empty.String())

	var buf bytes.Buffer
	FprintError(&buf, NewConfigError("cannot locate the user config directory", "Set HOME"))
	assert.Contains(t, buf.String(), "cannot locate the user config directory")
	assert.Contains(t, buf.String(), "Set HOME")
	assert.Empty(t, FormatErrorPlain(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("boom")
	err := ConfigLoadFailed(cause)
	assert.Equal(t, Configuration, err.Category)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load configuration: boom", err.Error())

	assert.Nil(t, Wrap(nil, Runtime))
}

func TestAsCLIError(t *testing.T) {
	t.Parallel()

	cliErr := NewRuntimeError("x")
	wrapped := fmt.Errorf("context: %w", cliErr)

	require.NotNil(t, AsCLIError(wrapped))
	assert.Same(t, cliErr, AsCLIError(wrapped))
	assert.Nil(t, AsCLIError(stderrors.New("plain")))
}
