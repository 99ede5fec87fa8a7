// Package dockerutil holds the docker plumbing shared by the integration test containers.
package dockerutil

import (
	"fmt"
	"os/exec"
	"strings"
)

// Ensure reports whether the docker CLI is available.
func Ensure() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker executable not found: %w", err)
	}
	return nil
}

// Run executes a docker subcommand and folds its output into the error.
func Run(args ...string) error {
	output, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker %s failed: %w: %s", args[0], err, output)
	}
	return nil
}

// Stop stops a container, treating an absent container as success.
func Stop(name string) error {
	output, err := exec.Command("docker", "stop", name).CombinedOutput()
	if err != nil {
		if strings.Contains(string(output), "No such container") {
			return nil
		}
		return fmt.Errorf("docker stop failed: %w: %s", err, output)
	}
	return nil
}
