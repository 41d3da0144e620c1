package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"first line heading", "# Hello\nWorld", "Hello"},
		{"heading after text", "intro\n# Later\n# Second", "Later"},
		{"indented heading", "   # Indented  \nbody", "Indented"},
		{"no heading", "plain text\nmore", DefaultTitle},
		{"empty", "", DefaultTitle},
		{"h2 ignored", "## Sub\ntext", DefaultTitle},
		{"hash without space", "#tag\n# Real", "Real"},
		{"crlf", "# Windows\r\nbody", "Windows"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Title(tc.content))
		})
	}
}

func TestTitle_Idempotent(t *testing.T) {
	content := "text\n# Stable\nmore"
	first := Title(content)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, Title(content))
	}
}

func TestLinks(t *testing.T) {
	content := "See [[12]] and [[7|the seventh]].\nAlso [label](3) and [[12]] again, [[abc]] is ignored."
	assert.Equal(t, []int64{12, 7, 3}, Links(content))
}

func TestLinks_None(t *testing.T) {
	assert.Empty(t, Links("no links [here](http://example.com)"))
}
