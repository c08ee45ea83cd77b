//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the vbranch project using Mage.
//
// Usage:
//
//	mage build          Compile vbranch to bin/
//	mage install        Install vbranch to GOPATH/bin
//	mage clean          Remove build artifacts
//	mage test:all       Run all tests
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Write coverage.out and print a per-function summary
//	mage lint           Run golangci-lint
//	mage vet            Run go vet
//	mage stats          Print Go LOC and documentation word counts
//	mage fixture        Write a small synthetic dataset (--dir, --samples)
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "vbranch"
	binaryDir  = "bin"
	cmdDir     = "./cmd/vbranch"
	versionVar = "github.com/mesh-intelligence/vbranch/internal/cli.Version"
)

// ldflags stamps the version from the nearest git tag, when there is one.
func ldflags() string {
	tag, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || tag == "" {
		return ""
	}
	return "-X " + versionVar + "=" + strings.TrimPrefix(tag, "v")
}

// Build compiles the vbranch binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if f := ldflags(); f != "" {
		args = append(args, "-ldflags", f)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	for _, p := range []string{binaryDir, coverProfile} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
