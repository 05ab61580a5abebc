package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredRepeatsOnEmpty(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("\n  \njohn@demo.com\n"), &out)
	v, err := p.Required("Email")
	require.NoError(t, err)
	assert.Equal(t, "john@demo.com", v)
	assert.Equal(t, 2, strings.Count(out.String(), "Email cannot be empty."))
	assert.False(t, p.Interactive())
}

func TestLineEOF(t *testing.T) {
	p := New(strings.NewReader("last"), &bytes.Buffer{})
	v, err := p.Line("x")
	require.NoError(t, err)
	assert.Equal(t, "last", v)
	_, err = p.Line("x")
	assert.ErrorIs(t, err, ErrAborted)
}

func TestNewSecretValidatesAndConfirms(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("12\n1234\n4321\n1234\n1234\n")
	p := New(in, &out)
	short := errors.New("PIN must be 4 digits")
	v, err := p.NewSecret("New PIN", func(s string) error {
		if len(s) != 4 {
			return short
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "1234", v)
	assert.Contains(t, out.String(), "PIN must be 4 digits")
	assert.Contains(t, out.String(), "Entries do not match")
	assert.Contains(t, out.String(), "Confirm new PIN")
}

func TestConfirm(t *testing.T) {
	p := New(strings.NewReader("Yes\nn\n"), &bytes.Buffer{})
	ok, err := p.Confirm("Send?")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.Confirm("Send?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "a***e", Mask("abcde"))
	assert.Equal(t, "**", Mask("ab"))
	assert.Equal(t, "", Mask(""))
}
