// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package terminal

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearPreviousLines(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		width      int
		wantClears int
	}{
		{"empty", 0, 80, 2},
		{"one line", 40, 80, 2},
		{"exactly full", 80, 80, 2},
		{"wraps", 81, 80, 3},
		{"default width", 100, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ClearPreviousLines(&buf, tt.length, tt.width)
			assert.Equal(t, tt.wantClears, strings.Count(buf.String(), "\x1b[2K"))
			assert.Equal(t, tt.wantClears-1, strings.Count(buf.String(), "\x1b[1A"))
		})
	}
}

func TestReadLineAndSecretFromPipe(t *testing.T) {
	var out bytes.Buffer
	got, err := ReadLine(strings.NewReader("  postgres://u@h/d  \nignored\n"), &out, "DSN: ")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u@h/d", got)
	assert.Equal(t, "DSN: ", out.String())

	got, err = ReadSecret(strings.NewReader("dbr_key"), &out, "Key: ")
	require.NoError(t, err)
	assert.Equal(t, "dbr_key", got)

	_, err = ReadLine(strings.NewReader(""), &out, "")
	assert.ErrorIs(t, err, io.EOF)
}

func TestNonTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
	assert.Equal(t, DefaultWidth, Width(&bytes.Buffer{}))
}
