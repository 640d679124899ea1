//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
var Default = Build

// Build compiles every executable into ./bin
func Build() error {
	mg.Deps(BuildJitter, BuildMeasureAlgos, BuildOnline)
	fmt.Println("Compilation finished")
	return nil
}

func BuildJitter() error {
	fmt.Println("Building jitter executable...")
	return goBuild("./bin/jitter", "./jitter")
}

func BuildMeasureAlgos() error {
	fmt.Println("Building measureAlgos executable...")
	return goBuild("./bin/measureAlgos", "./measureAlgos")
}

func BuildOnline() error {
	fmt.Println("Building online executable...")
	return goBuild("./bin/online", "./online")
}

// Test runs the unit tests of every package
func Test() error {
	fmt.Println("Running tests...")
	cmd := exec.Command("go", "test", "./...")
	cmd.Env = cgoEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func goBuild(output, pkg string) error {
	cmd := exec.Command("go", "build", "-o", output, pkg)
	cmd.Env = cgoEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// hdf5 needs cgo; the library paths come from the calling environment.
func cgoEnv() []string {
	return append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", os.Getenv("CGO_LDFLAGS")),
		fmt.Sprintf("CGO_CFLAGS=%s", os.Getenv("CGO_CFLAGS")))
}
