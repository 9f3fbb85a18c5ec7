package e2e

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"rtmask/internal/mask"
	"rtmask/internal/maskio"
)

// binaryPath is set once by TestMain.
var binaryPath string

// testContext carries the state of one scenario: its scratch directory and
// the result of the last rtmask invocation.
type testContext struct {
	tmpDir   string
	exitCode int
	output   string
}

// sub expands the {tmpdir} placeholder used throughout the feature file.
func (tc *testContext) sub(s string) string {
	return strings.ReplaceAll(s, "{tmpdir}", tc.tmpDir)
}

func buildBinary() (string, func(), error) {
	dir, err := os.MkdirTemp("", "rtmask-e2e-bin")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	_, thisFile, _, _ := runtime.Caller(0)
	bin := filepath.Join(dir, "rtmask")

	cmd := exec.Command("go", "build", "-o", bin, "./cmd/rtmask")
	cmd.Dir = filepath.Join(filepath.Dir(thisFile), "..", "..")
	if out, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("go build: %w\n%s", err, out)
	}
	return bin, cleanup, nil
}

func TestMain(m *testing.M) {
	bin, cleanup, err := buildBinary()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	binaryPath = bin

	code := m.Run()
	cleanup()
	os.Exit(code)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := &testContext{}

	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tmpDir, err := os.MkdirTemp("", "rtmask-e2e-*")
		if err != nil {
			return ctx, err
		}
		tc.tmpDir = tmpDir
		return ctx, nil
	})
	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.tmpDir != "" {
			os.RemoveAll(tc.tmpDir)
		}
		return ctx, nil
	})

	sc.Step(`^rtmask is built$`, tc.rtmaskIsBuilt)
	sc.Step(`^I run rtmask with "([^"]*)"$`, tc.iRunRtmaskWith)
	sc.Step(`^the exit code should be (\d+)$`, tc.theExitCodeShouldBe)
	sc.Step(`^the output should contain "([^"]*)"$`, tc.theOutputShouldContain)
	sc.Step(`^a mask stack with a filled block exists at "([^"]*)"$`, tc.maskStackExists)
	sc.Step(`^"([^"]*)" should exist$`, tc.shouldExist)
	sc.Step(`^"([^"]*)" should contain (\d+) DICOM files$`, tc.shouldContainDICOMFiles)
	sc.Step(`^the mask stacks at "([^"]*)" and "([^"]*)" should match$`, tc.maskStacksShouldMatch)
}

func (tc *testContext) rtmaskIsBuilt() error {
	if _, err := os.Stat(binaryPath); err != nil {
		return fmt.Errorf("rtmask binary: %w", err)
	}
	return nil
}

func (tc *testContext) iRunRtmaskWith(args string) error {
	cmd := exec.Command(binaryPath, strings.Fields(tc.sub(args))...)
	out, err := cmd.CombinedOutput()
	tc.output = string(out)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("run rtmask: %w", err)
		}
	}
	tc.exitCode = cmd.ProcessState.ExitCode()
	return nil
}

func (tc *testContext) theExitCodeShouldBe(expected int) error {
	if tc.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nOutput:\n%s", expected, tc.exitCode, tc.output)
	}
	return nil
}

func (tc *testContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(tc.output, expected) {
		return fmt.Errorf("output does not contain %q\nOutput:\n%s", expected, tc.output)
	}
	return nil
}

// maskStackExists writes a 16x16x3 stack with a block on the middle slice,
// matching the default geometry of synth mode.
func (tc *testContext) maskStackExists(path string) error {
	m := mask.New(16, 16, 3)
	for r := 4; r <= 9; r++ {
		for c := 5; c <= 11; c++ {
			m.Set(c, r, 1, true)
		}
	}
	return maskio.WriteStack(tc.sub(path), m)
}

func (tc *testContext) shouldExist(path string) error {
	if _, err := os.Stat(tc.sub(path)); err != nil {
		return fmt.Errorf("expected path: %w", err)
	}
	return nil
}

func (tc *testContext) shouldContainDICOMFiles(path string, count int) error {
	files, err := findDICOMFiles(tc.sub(path))
	if err != nil {
		return fmt.Errorf("failed to find DICOM files: %w", err)
	}
	if len(files) != count {
		return fmt.Errorf("expected %d DICOM files, found %d", count, len(files))
	}
	return nil
}

func (tc *testContext) maskStacksShouldMatch(a, b string) error {
	a, b = tc.sub(a), tc.sub(b)
	ma, err := maskio.ReadStack(a)
	if err != nil {
		return fmt.Errorf("reading %s: %w", a, err)
	}
	mb, err := maskio.ReadStack(b)
	if err != nil {
		return fmt.Errorf("reading %s: %w", b, err)
	}
	if !ma.Equal(mb) {
		return fmt.Errorf("mask stacks %s and %s differ", a, b)
	}
	return nil
}

// findDICOMFiles collects the generated image files (IMG*) under root.
func findDICOMFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), "IMG") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
