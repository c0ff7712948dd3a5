package agent

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
)

// devDependencies are installed into every scaffolded project so the
// quality and test loops can run.
var devDependencies = []string{"pytest", "pylint", "autopep8", "pytest-cov", "complexipy"}

const testsInitContent = "# Test package initialization file\n"

// GenerateProjectName returns a fresh project_NNN directory name.
func GenerateProjectName() string {
	return fmt.Sprintf("project_%d", rand.Intn(900)+100)
}

// bootstrapProject verifies the toolchain, scaffolds the uv project, and
// prepares the tests package.
func (s *Session) bootstrapProject(ctx context.Context) error {
	// The environment root must exist before any command can use it as
	// a working directory.
	if err := s.env.Initialize(); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	if err := s.toolchain.EnsureUV(ctx); err != nil {
		return err
	}

	parentDir := filepath.Dir(s.env.WorkingDirectory())
	if err := s.toolchain.InitProject(ctx, parentDir, s.projectName); err != nil {
		return err
	}

	result, err := s.toolchain.AddPackages(ctx, devDependencies...)
	if err != nil {
		return fmt.Errorf("install dev dependencies: %w", err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("install dev dependencies: %s", result.Output())
	}

	if err := s.env.WriteFile(filepath.Join("tests", "__init__.py"), testsInitContent); err != nil {
		return fmt.Errorf("create tests package: %w", err)
	}

	// uv seeds the project with a hello script that would pollute
	// coverage.
	if s.env.FileExists("hello.py") {
		if err := s.env.RemoveAll("hello.py"); err != nil {
			return fmt.Errorf("remove scaffold script: %w", err)
		}
	}

	return nil
}
