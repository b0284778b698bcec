package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		envVars map[string]string
		want    string
		wantErr string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "literal string", input: "literal-value", want: "literal-value"},
		{name: "bare dollar kept", input: "pa$$word$HOME", want: "pa$$word$HOME"},
		{
			name:    "simple reference",
			input:   "${HX_TEST_TOKEN}",
			envVars: map[string]string{"HX_TEST_TOKEN": "secret123"},
			want:    "secret123",
		},
		{
			name:    "reference inside text",
			input:   "${HX_TEST_USER}:${HX_TEST_PASS}@db",
			envVars: map[string]string{"HX_TEST_USER": "birder", "HX_TEST_PASS": "s3cret"},
			want:    "birder:s3cret@db",
		},
		{
			name:    "default ignored when set",
			input:   "${HX_TEST_TOKEN:-fallback}",
			envVars: map[string]string{"HX_TEST_TOKEN": "actual"},
			want:    "actual",
		},
		{name: "default used when unset", input: "${HX_TEST_UNSET:-fallback}", want: "fallback"},
		{name: "empty default", input: "${HX_TEST_UNSET:-}", want: ""},
		{name: "missing variables", input: "${HX_TEST_A}-${HX_TEST_B}", wantErr: "HX_TEST_A, HX_TEST_B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			got, err := ExpandString(tt.input)
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

func TestReadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{name: "trailing newline trimmed", path: write("token", "abc123\n"), want: "abc123"},
		{name: "inner spaces kept", path: write("spaced", " a b \r\n"), want: " a b "},
		{name: "empty file", path: write("empty", "\n"), wantErr: "empty"},
		{name: "missing file", path: filepath.Join(dir, "missing"), wantErr: "not found"},
		{name: "directory", path: dir, wantErr: "not a regular file"},
		{name: "empty path", path: "", wantErr: "path is empty"},
		{name: "too large", path: write("large", string(make([]byte, maxSecretFileSize+1))), wantErr: "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadFile(tt.path)
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

func TestResolvePrefersFile(t *testing.T) {
	t.Setenv("HX_TEST_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	got, err := Resolve(path, "${HX_TEST_TOKEN}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Resolve("", "${HX_TEST_TOKEN}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Resolve(filepath.Join(t.TempDir(), "missing"), "literal")
	require.Error(t, err)
}
