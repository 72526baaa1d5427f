// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, FilePassword, "  hunter2  \n")
				writeFile(t, dir, FileBindDN, "uid=svc,ou=People,o=University of Minnesota,c=US")
				writeFile(t, dir, FileLogin, "svc\n")
				return dir
			},
			want: map[string]string{
				FilePassword: "hunter2",
				FileBindDN:   "uid=svc,ou=People,o=University of Minnesota,c=US",
				FileLogin:    "svc",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, FilePassword, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				FilePassword: "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, FileLogin, "svc")
				return dir
			},
			want: map[string]string{
				FileLogin: "svc",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, FileBindDN, "uid=svc")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				FileBindDN: "uid=svc",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "LDAP_SERVER=\"ldap://ldap.umn.edu:389\"\nBASE_DN='o=University of Minnesota,c=US'\nLDAP_LOGIN=svc\nEMPTY=''\n")
	writeFile(t, dir, ".env.local", "LDAP_LOGIN=other\n")

	got, err := LoadEnv(filepath.Join(dir, ".env"), filepath.Join(dir, ".env.local"), filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		EnvServer: "ldap://ldap.umn.edu:389",
		EnvBaseDN: "o=University of Minnesota,c=US",
		EnvLogin:  "other",
	}, got)
}

func TestApplyDirectory(t *testing.T) {
	for _, k := range []string{EnvServer, EnvBaseDN, EnvBindDN, EnvLogin, EnvPassword} {
		t.Setenv(k, "")
	}
	t.Setenv(EnvPassword, "'from-process'")

	cfg := types.DirectoryConfig{URL: "ldap://configured:389"}
	files := map[string]string{FileBindDN: "uid=file", FilePassword: "from-file", FileLogin: "file-login"}
	env := map[string]string{EnvServer: "ldap://dotenv:389", EnvBaseDN: "o=dotenv", EnvLogin: "dotenv-login"}
	ApplyDirectory(&cfg, files, env)

	assert.Equal(t, types.DirectoryConfig{
		URL:      "ldap://configured:389",
		BaseDN:   "o=dotenv",
		BindDN:   "uid=file",
		Password: "from-process",
		Login:    "dotenv-login",
	}, cfg)
}
