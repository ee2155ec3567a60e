package iojson

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFileReader_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"from file","count":2}`), 0o600))

	tests := []struct {
		name    string
		path    string
		stdin   string
		want    sample
		wantErr string
	}{
		{name: "file", path: path, want: sample{Name: "from file", Count: 2}},
		{name: "stdin", stdin: `{"name":"piped","count":1}`, want: sample{Name: "piped", Count: 1}},
		{name: "dash reads stdin", path: "-", stdin: `{"name":"dash"}`, want: sample{Name: "dash"}},
		{name: "missing file", path: filepath.Join(dir, "nope.json"), wantErr: "open file"},
		{name: "unknown field", stdin: `{"name":"x","colour":"red"}`, wantErr: "unknown field"},
		{name: "empty input", stdin: "", wantErr: "empty input"},
		{name: "malformed", stdin: `{"name":`, wantErr: "decode JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &FileReader[sample]{path: tt.path}

			got, err := fr.Read(strings.NewReader(tt.stdin))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileReader_Flag(t *testing.T) {
	fr := &FileReader[sample]{}
	flag := fr.Flag()

	assert.Equal(t, "file", flag.Name)
	assert.Equal(t, []string{"f"}, flag.Aliases)
}
