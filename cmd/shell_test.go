package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ca-srg/elseql/internal/session"
)

func newLocalShell() (*shell, *bytes.Buffer) {
	var buf bytes.Buffer
	s := session.New(nil, nil, &buf, zap.NewNop())
	return &shell{session: s, out: &buf, logger: zap.NewNop()}, &buf
}

func TestShellExecuteCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("exit", func(t *testing.T) {
		sh, _ := newLocalShell()
		assert.True(t, sh.execute(ctx, "exit"))
		assert.True(t, sh.execute(ctx, "QUIT"))
	})

	t.Run("debug cannot be turned off without a connection", func(t *testing.T) {
		sh, buf := newLocalShell()
		assert.False(t, sh.execute(ctx, "debug off"))
		assert.Equal(t, "debug stays on while not connected\ndebug on\n", buf.String())
	})

	t.Run("debug usage", func(t *testing.T) {
		sh, buf := newLocalShell()
		sh.execute(ctx, "debug maybe")
		assert.Equal(t, "usage: debug [on|off]\n", buf.String())
	})

	t.Run("keywords", func(t *testing.T) {
		sh, buf := newLocalShell()
		sh.execute(ctx, "keywords")
		assert.Contains(t, strings.Split(buf.String(), "\n"), "between")
	})

	t.Run("validate prefix", func(t *testing.T) {
		sh, buf := newLocalShell()
		sh.execute(ctx, "validate select * from logs")
		assert.Contains(t, buf.String(), "GET logs/_validate/query {explain=true, pretty=true}")
	})

	t.Run("explain prefix", func(t *testing.T) {
		sh, buf := newLocalShell()
		sh.execute(ctx, "explain select * from logs")
		assert.Contains(t, buf.String(), `"explain": true`)
	})

	t.Run("several statements on one line", func(t *testing.T) {
		sh, buf := newLocalShell()
		sh.execute(ctx, "select * from a; select * from b")
		assert.Contains(t, buf.String(), "GET a/search")
		assert.Contains(t, buf.String(), "GET b/search")
	})

	t.Run("parse error", func(t *testing.T) {
		sh, buf := newLocalShell()
		assert.False(t, sh.execute(ctx, "selec * from a"))
		assert.Contains(t, buf.String(), "ERROR: ")
	})

	t.Run("empty statement", func(t *testing.T) {
		sh, buf := newLocalShell()
		sh.execute(ctx, "explain ;")
		assert.Equal(t, "ERROR: empty statement\n", buf.String())
	})
}

func TestCompleteWord(t *testing.T) {
	keywords := []string{"from", "filter", "facets", "host", "hostname", "where"}

	head, matches, tail := completeWord(keywords, "select * FR", 11)
	assert.Equal(t, "select * ", head)
	assert.Equal(t, []string{"from"}, matches)
	assert.Equal(t, "", tail)

	head, matches, tail = completeWord(keywords, "select ho from logs", 9)
	assert.Equal(t, "select ", head)
	assert.Equal(t, []string{"host", "hostname"}, matches)
	assert.Equal(t, " from logs", tail)

	_, matches, _ = completeWord(keywords, "select * from logs wh", 100)
	assert.Equal(t, []string{"where"}, matches)
}

func TestHistoryFile(t *testing.T) {
	assert.Equal(t, "/tmp/h", historyFile("/tmp/h"))
	assert.True(t, strings.HasSuffix(historyFile(""), defaultHistoryFile))
}
