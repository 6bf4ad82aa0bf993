package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter_SecretFromScriptedStdin(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("ana\ncorrect-horse\n"))
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	p := newPrompter(cmd)
	assert.False(t, p.noEcho)

	user, err := p.ask("Username")
	require.NoError(t, err)
	assert.Equal(t, "ana", user)

	secret, err := p.askSecret("Password")
	require.NoError(t, err)
	assert.Equal(t, "correct-horse", secret)
	assert.Equal(t, "Username: Password: ", stderr.String())
}

func TestPrompter_PipeIsNotATerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	_, err = w.WriteString("battery-staple\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	cmd := &cobra.Command{}
	cmd.SetIn(r)
	cmd.SetErr(&bytes.Buffer{})

	p := newPrompter(cmd)
	assert.False(t, p.noEcho, "a pipe keeps the line reader")

	secret, err := p.askSecret("Password")
	require.NoError(t, err)
	assert.Equal(t, "battery-staple", secret)
}

func TestPrompter_EmptyStdin(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(""))
	cmd.SetErr(&bytes.Buffer{})

	_, err := newPrompter(cmd).askSecret("Password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read password")
}
