// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads directory credentials from a directory of plain-text
// files and from dotenv files. Each file in the secrets directory represents
// one secret: the filename is the key name and the file contents (trimmed)
// are the value.
//
// Supported key files: ldap-bind-dn, ldap-password, ldap-login.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

// Secret file names.
const (
	FileBindDN   = "ldap-bind-dn"
	FilePassword = "ldap-password"
	FileLogin    = "ldap-login"
)

// Environment keys read from dotenv files and the process environment.
const (
	EnvServer   = "LDAP_SERVER"
	EnvBaseDN   = "BASE_DN"
	EnvBindDN   = "BIND_DN"
	EnvLogin    = "LDAP_LOGIN"
	EnvPassword = "LDAP_PASSWORD"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv reads dotenv files in order without touching the process
// environment. Later files override earlier ones. Missing files are
// skipped. Surrounding quotes left on a value are stripped.
func LoadEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		for k, v := range values {
			if v = unquote(v); v != "" {
				env[k] = v
			}
		}
	}
	return env, nil
}

// ApplyDirectory fills cfg from the process environment, then env, then
// the secret files. A field already set in cfg is left unchanged.
func ApplyDirectory(cfg *types.DirectoryConfig, files, env map[string]string) {
	lookup := func(envKey, fileKey string) string {
		if v := unquote(os.Getenv(envKey)); v != "" {
			return v
		}
		if v := env[envKey]; v != "" {
			return v
		}
		return files[fileKey]
	}
	fill := func(dst *string, envKey, fileKey string) {
		if *dst == "" {
			*dst = lookup(envKey, fileKey)
		}
	}

	fill(&cfg.URL, EnvServer, "")
	fill(&cfg.BaseDN, EnvBaseDN, "")
	fill(&cfg.BindDN, EnvBindDN, FileBindDN)
	fill(&cfg.Password, EnvPassword, FilePassword)
	fill(&cfg.Login, EnvLogin, FileLogin)
}

func unquote(v string) string {
	return strings.Trim(strings.TrimSpace(v), `'"`)
}
