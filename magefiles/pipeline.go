//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline runs CLI stages against the local data directory.
type Pipeline mg.Namespace

func stage(args ...string) error {
	mg.Deps(Init)
	return sh.RunV("go", append([]string{"run", cmdPkg}, args...)...)
}

// All fetches, looks up, refines, and joins in one run.
func (Pipeline) All() error { return stage("run") }

// Offline reruns the pipeline from the existing raw projects and person cache.
func (Pipeline) Offline() error { return stage("run", "--skip-fetch", "--skip-lookup") }

// Refine remaps the cached departments with verbose output.
func (Pipeline) Refine() error { return stage("refine", "--verbose") }

// Rules checks the pattern table for shadowed or undeclared rules.
func (Pipeline) Rules() error { return stage("refine", "rules") }

// Tree rebuilds the organization tree.
func (Pipeline) Tree() error { return stage("tree") }

// Roster reloads the SQLite roster from the joined projects.
func (Pipeline) Roster() error { return stage("roster", "ingest") }
