//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"path"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	BINARY_NAME                  = "signal-server"
	BINARY_DIR                   = "bin"
	IMAGE_NAME                   = "conferencing-platform-signal-server"
	DOCKER_BUILDX_BUILDER_NAME   = "container"
	DOCKER_BUILDX_CACHE_DIR_NAME = ".dockercache"
)

// Generate regenerates gomock mocks.
func Generate() error {
	fmt.Println("[Go] Generate mocks")
	return sh.RunV("go", "generate", "./...")
}

// Build compiles the signal server into bin/.
func Build() error {
	mg.Deps(Generate)

	output := path.Join(BINARY_DIR, BINARY_NAME)
	fmt.Printf("[Go] Build %s\n", output)
	return sh.RunV("go", "build", "-o", output, "./cmd/signal-server")
}

// Test runs every package test with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Run starts the signal server with the local .env.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(path.Join(BINARY_DIR, BINARY_NAME))
}

// Image builds the docker image with a local buildx cache.
func Image() error {
	dirPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("unable get pwd of project root. Err: %w", err)
	}

	if err := sh.Run("docker", "buildx", "create", "--name", DOCKER_BUILDX_BUILDER_NAME, "--driver=docker-container"); err != nil {
		fmt.Println("[Docker] Reuse existing builder", DOCKER_BUILDX_BUILDER_NAME)
	}

	cache := path.Join(dirPath, DOCKER_BUILDX_CACHE_DIR_NAME)
	fmt.Printf("[Docker] Use CACHE_DIR: %s | BUILDER_NAME: %s\n", cache, DOCKER_BUILDX_BUILDER_NAME)

	return sh.RunV("docker", "buildx", "build",
		fmt.Sprintf("--builder=%s", DOCKER_BUILDX_BUILDER_NAME),
		fmt.Sprintf("--cache-to=type=local,dest=%s", cache),
		fmt.Sprintf("--cache-from=type=local,src=%s", cache),
		"--tag", fmt.Sprintf("%s:latest", IMAGE_NAME),
		"--load",
		".",
	)
}
