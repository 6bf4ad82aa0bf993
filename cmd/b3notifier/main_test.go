package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/b3notifier/internal/clients/backend/backendtest"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/report"
)

type cli struct {
	t          *testing.T
	fake       *backendtest.Server
	configPath string
	dir        string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	fake := backendtest.New()
	t.Cleanup(fake.Close)
	fake.AddUser("ana", "ana@example.com", "correct-horse")

	dir := t.TempDir()
	content := `[api]
base_url = "` + fake.URL + `"
rate_limit = 0

[storage]
backend = "sqlite"
path = "` + filepath.ToSlash(filepath.Join(dir, "session.db")) + `"

[logging]
outputs = []
`
	path := filepath.Join(dir, "b3notifier.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &cli{t: t, fake: fake, configPath: path, dir: dir}
}

// run executes one command as a separate process would: a fresh App per call,
// sharing only the session database.
func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", c.configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) login() {
	c.t.Helper()
	out, err := c.run("correct-horse\n", "login", "--username", "ana")
	require.NoError(c.t, err)
	require.Equal(c.t, "Logged in as ana\n", out)
}

func TestLoginStatusLogout(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in.\n", out)

	c.login()

	out, err = c.run("", "status")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Logged in as ana <ana@example.com>\n"), out)

	out, err = c.run("", "status", "-o", "json")
	require.NoError(t, err)
	var st report.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "ready", st.State)

	out, err = c.run("", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out.\n", out)

	out, err = c.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in.\n", out)
}

func TestLogin_WrongPassword(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("nope\n", "login", "--username", "ana")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials))

	out, err := c.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in.\n", out)
}

func TestPrivateCommandsNeedLogin(t *testing.T) {
	c := newCLI(t)

	for _, args := range [][]string{
		{"stocks", "list"},
		{"alerts", "list"},
		{"updates"},
	} {
		_, err := c.run("", args...)
		require.Error(t, err, args)
		assert.True(t, errors.Is(err, models.ErrNotAuthenticated), args)
	}
	assert.Empty(t, c.fake.RequestsTo("/stock/"), "nothing is requested without a session")
}

func TestStocksLifecycle(t *testing.T) {
	c := newCLI(t)
	c.login()

	out, err := c.run("", "stocks", "add", "itub4", "-p", "15", "-o", "json")
	require.NoError(t, err)
	var rows []report.AssetRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "ITUB4.SA", rows[0].Ticker)

	_, err = c.run("", "stocks", "edit", "ITUB4", "-p", "30")
	require.NoError(t, err)
	require.Len(t, c.fake.Assets(), 1)
	assert.Equal(t, 30, c.fake.Assets()[0].Periodicity)

	out, err = c.run("", "stocks", "list", "--search", "itu")
	require.NoError(t, err)
	assert.Contains(t, out, "ITUB4.SA")

	out, err = c.run("", "alerts", "list", "-o", "json")
	require.NoError(t, err)
	var alerts []report.AlertRow
	require.NoError(t, json.Unmarshal([]byte(out), &alerts))
	var types []string
	for _, a := range alerts {
		types = append(types, a.Type)
	}
	assert.ElementsMatch(t, []string{"addition", "edition"}, types)

	out, err = c.run("", "stocks", "rm", "itub4")
	require.NoError(t, err)
	assert.Equal(t, "ITUB4.SA removed from the watchlist\n", out)
	assert.Empty(t, c.fake.Assets())

	_, err = c.run("", "stocks", "rm", "itub4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not on the watchlist")
}

func TestStocksList_FilterFlagsAreExclusive(t *testing.T) {
	c := newCLI(t)
	c.login()

	_, err := c.run("", "stocks", "list", "--near-buy", "--near-sell")
	require.Error(t, err)
}

func TestStocksChart(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.fake.SetAssets(backendtest.Asset{Name: "ITUB4.SA", Periodicity: 15, CurrentPrice: "29.00", LowerLimit: "25.00", UpperLimit: "30.00"})

	target := filepath.Join(c.dir, "chart.png")
	_, err := c.run("", "stocks", "chart", "--out", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestRegister(t *testing.T) {
	c := newCLI(t)

	stdin := "123456\nbruno\nbattery-staple\nbattery-staple\n"
	out, err := c.run(stdin, "register", "--email", "bruno@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Code sent.")
	assert.Contains(t, out, "Account created.")

	_, err = c.run("battery-staple\n", "login", "--username", "bruno")
	require.NoError(t, err)
}

func TestRegister_ValidationStopsBeforeRequest(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "register", "--email", "not-an-email")
	require.Error(t, err)
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)
	assert.Empty(t, c.fake.RequestsTo("/user/"))
}

func TestUnknownOutputFormat(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "status", "-o", "xml")
	require.Error(t, err)
}
