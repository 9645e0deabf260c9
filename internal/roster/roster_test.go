package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/Flowman/homeport/internal/errors"
	"github.com/Flowman/homeport/internal/fsys"
)

func writeRoster(t *testing.T, content string) *fsys.FS {
	t.Helper()
	fs := fsys.NewInMemoryFS()
	require.NoError(t, fs.WriteFile("/roster.csv", []byte(content), 0o644))
	return fs
}

func TestLoad_FullRoster(t *testing.T) {
	fs := writeRoster(t, `identity,source,folder
alice@example.com,/home/alice,alice-home
bob@example.com,/home/bob,
carol@example.com,/srv/users/carol
`)

	got, err := Load(fs, "/roster.csv")
	require.NoError(t, err)

	want := []Assignment{
		{Identity: "alice@example.com", SourceDir: "/home/alice", Folder: "alice-home"},
		{Identity: "bob@example.com", SourceDir: "/home/bob", Folder: "bob"},
		{Identity: "carol@example.com", SourceDir: "/srv/users/carol", Folder: "carol"},
	}
	assert.Equal(t, want, got)
}

func TestLoad_SkipsBlankLines(t *testing.T) {
	fs := writeRoster(t, `identity,source,folder

alice@example.com,/home/alice,docs

bob@example.com,/home/bob,docs
`)

	got, err := Load(fs, "/roster.csv")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice@example.com", got[0].Identity)
	assert.Equal(t, "bob@example.com", got[1].Identity)
}

func TestLoad_TwoColumnRoster(t *testing.T) {
	fs := writeRoster(t, `identity,source
alice,/home/alice
`)

	got, err := Load(fs, "/roster.csv")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Assignment{Identity: "alice", SourceDir: "/home/alice", Folder: "alice"}, got[0])
}

func TestLoad_QuotedFields(t *testing.T) {
	fs := writeRoster(t, `identity,source,folder
"alice","/home/users, archived/alice","alice, 2024"
`)

	got, err := Load(fs, "/roster.csv")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/home/users, archived/alice", got[0].SourceDir)
	assert.Equal(t, "alice, 2024", got[0].Folder)
}

func TestLoad_MalformedRows(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{
			name:    "empty roster",
			content: "",
			wantIn:  "roster is empty",
		},
		{
			name:    "wrong header",
			content: "user,dir\nalice,/home/alice\n",
			wantIn:  "header must be identity,source,folder",
		},
		{
			name:    "missing source",
			content: "identity,source,folder\nalice\n",
			wantIn:  "expected 2 or 3 fields, got 1",
		},
		{
			name:    "too many fields",
			content: "identity,source,folder\nalice,/home/alice,docs,extra\n",
			wantIn:  "expected 2 or 3 fields, got 4",
		},
		{
			name:    "blank identity",
			content: "identity,source,folder\n ,/home/alice,docs\n",
			wantIn:  "line 2: identity is empty",
		},
		{
			name:    "blank source",
			content: "identity,source,folder\nalice,,docs\n",
			wantIn:  "line 2: source is empty",
		},
		{
			name:    "malformed row later in the file",
			content: "identity,source,folder\nalice,/home/alice,docs\n,,\n",
			wantIn:  "line 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := writeRoster(t, tt.content)

			_, err := Load(fs, "/roster.csv")
			require.Error(t, err)
			assert.True(t, errs.IsRosterMalformed(err), "want roster-malformed, got %v", err)
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}

func TestLoad_FileMissing(t *testing.T) {
	fs := fsys.NewInMemoryFS()

	_, err := Load(fs, "/roster.csv")
	require.Error(t, err)
	assert.False(t, errs.IsRosterMalformed(err))
}
