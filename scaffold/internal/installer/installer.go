// Package installer copies skills, templates and guides from the template
// cache into a project.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/vattention/facio-superpowers/internal/console"
	"github.com/vattention/facio-superpowers/scaffold/internal/cache"
)

// ErrProjectDocMissing is returned by Init when the project has no CLAUDE.md
var ErrProjectDocMissing = errors.New("project document not found")

// Installer applies the manifest to a project directory
type Installer struct {
	cache    *cache.Cache
	manifest Manifest
	workDir  string
	out      *console.Printer
	logger   logrus.FieldLogger

	failures int
}

// New creates an installer for the project at workDir
func New(c *cache.Cache, manifest Manifest, workDir string, out *console.Printer, logger logrus.FieldLogger) *Installer {
	return &Installer{
		cache:    c,
		manifest: manifest,
		workDir:  workDir,
		out:      out,
		logger:   logger,
	}
}

// Failures returns the number of artifacts that could not be written in the last run
func (i *Installer) Failures() int {
	return i.failures
}

// Init scaffolds the project. Only a missing project document is fatal;
// per-artifact problems are reported and skipped.
func (i *Installer) Init(ctx context.Context) error {
	i.failures = 0
	i.out.Success("\n🚀 Initializing Facio Superpowers\n")

	if err := i.cache.Ensure(ctx); err != nil {
		return err
	}

	i.out.Section("📁 Creating directories...")
	i.createDirs()

	i.out.Section("\n📚 Installing skills...")
	i.installSkills()

	i.out.Section("\n📄 Installing templates...")
	i.copyFiles(CommandInit)

	i.out.Section("\n📋 Creating document indexes...")
	i.writeIndexes()

	i.out.Section("\n⚙️  Configuring " + i.manifest.ProjectDoc + "...")
	if err := i.configureProjectDoc(); err != nil {
		return err
	}

	i.out.Section("\n📖 Installing documentation guide...")
	i.copyFile(Guide, CommandInit)

	i.out.Success("\n✅ Initialization complete!\n")
	i.printNextSteps()
	i.reportFailures()
	return nil
}

// Sync refreshes skills, templates and the guide from the cache. It never
// creates project directories or touches the project document.
func (i *Installer) Sync(ctx context.Context) error {
	i.failures = 0
	i.out.Section("\n🔄 Syncing skills from facio-superpowers\n")

	if err := i.cache.Ensure(ctx); err != nil {
		return err
	}

	i.out.Section("📚 Updating skills...")
	i.installSkills()

	i.out.Section("\n📄 Updating templates...")
	i.copyFiles(CommandSync)

	i.out.Section("\n📖 Updating documentation guide...")
	i.copyFile(Guide, CommandSync)

	i.out.Success("\n✅ Sync complete!\n")
	i.reportFailures()
	return nil
}

func (i *Installer) project(rel string) string {
	return filepath.Join(i.workDir, filepath.FromSlash(rel))
}

func (i *Installer) createDirs() {
	for _, dir := range i.manifest.Dirs {
		full := i.project(dir)
		if isDir(full) {
			i.out.Warn(fmt.Sprintf("  - %s (already exists)", dir))
			continue
		}
		if err := os.MkdirAll(full, 0755); err != nil {
			i.fail(dir, err)
			continue
		}
		i.out.Success("  ✓ " + dir)
	}
}

// installSkills always replaces each bundle in every target
func (i *Installer) installSkills() {
	for _, skill := range i.manifest.Skills {
		src := i.cache.Path(filepath.FromSlash(i.manifest.SkillsSource), skill)
		if !isDir(src) {
			i.out.Error(fmt.Sprintf("  ✗ %s (not found)", skill))
			i.logger.WithField("skill", skill).Debug("Skill bundle missing from cache")
			continue
		}

		ok := true
		for _, target := range i.manifest.SkillTargets {
			dest := i.project(filepath.ToSlash(filepath.Join(target, skill)))
			if err := replaceTree(src, dest); err != nil {
				i.fail(skill, err)
				ok = false
			}
		}
		if ok {
			i.out.Success("  ✓ " + skill)
		}
	}
}

func (i *Installer) copyFiles(cmd Command) {
	for _, f := range i.manifest.Files {
		i.copyFile(f, cmd)
	}
}

func (i *Installer) copyFile(f FileArtifact, cmd Command) {
	policy := f.PolicyFor(cmd)
	if policy == Ignore {
		return
	}

	src := i.cache.Path(filepath.FromSlash(f.Source))
	if !exists(src) {
		i.out.Error(fmt.Sprintf("  ✗ %s (not found)", f.Source))
		i.logger.WithField("source", src).Debug("Template missing from cache")
		return
	}

	dest := i.project(f.Dest)
	if policy == SkipIfExists && exists(dest) {
		i.out.Warn(fmt.Sprintf("  - %s (already exists, skipping)", f.Dest))
		return
	}

	if err := copyFile(src, dest, f.Mode); err != nil {
		i.fail(f.Dest, err)
		return
	}
	i.out.Success("  ✓ " + f.Dest)
}

func (i *Installer) writeIndexes() {
	for _, idx := range i.manifest.Indexes {
		dest := i.project(idx.Dest)
		if exists(dest) {
			i.out.Warn(fmt.Sprintf("  - %s (already exists)", idx.Dest))
			continue
		}
		if err := os.WriteFile(dest, []byte(idx.Content), 0644); err != nil {
			i.fail(idx.Dest, err)
			continue
		}
		i.out.Success("  ✓ " + idx.Dest)
	}
}

func (i *Installer) configureProjectDoc() error {
	name := i.manifest.ProjectDoc
	path := i.project(name)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		i.printMissingProjectDoc()
		return fmt.Errorf("%w: %s", ErrProjectDocMissing, path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	content := string(data)
	block, err := os.ReadFile(i.cache.Path(filepath.FromSlash(i.manifest.WorkflowFile)))
	if err != nil {
		if _, done := InjectWorkflow(content, ""); !done {
			i.out.Warn(fmt.Sprintf("  - %s already configured (workflow found)", name))
			return nil
		}
		i.fail(i.manifest.WorkflowFile, err)
		return nil
	}

	updated, injected := InjectWorkflow(content, string(block))
	if !injected {
		i.out.Warn(fmt.Sprintf("  - %s already configured (workflow found)", name))
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	i.out.Success(fmt.Sprintf("  ✓ Injected workflow instructions into %s", name))
	return nil
}

func (i *Installer) printMissingProjectDoc() {
	i.out.Warn(fmt.Sprintf("  ⚠️  %s not found", i.manifest.ProjectDoc))
	i.out.Blank()
	i.out.Warn("It looks like this project hasn't been initialized with Claude Code yet.")
	i.out.Blank()
	i.out.Section("Please run this first:")
	i.out.Success("  claude init")
	i.out.Blank()
	i.out.Section("Then run facio-superpowers init again.")
	i.out.Blank()
}

func (i *Installer) printNextSteps() {
	i.out.Section("Next steps:")
	i.out.Plain("1. Review docs/MODULAR-DOCS-GUIDE.md for documentation system overview")
	i.out.Plain("2. Edit CLAUDE.md to add project-specific information")
	i.out.Plain("3. Review CLAUDE-TEAM.md for team standards")
	i.out.Plain("4. Create module documentation:")
	i.out.Plain("   mkdir -p docs/modules/your-module")
	i.out.Plain("   cp templates/MODULE-README.md docs/modules/your-module/README.md")
	i.out.Plain("5. Start using skills:")
	i.out.Plain("   - /prepare-context (before development)")
	i.out.Plain("   - /verification-before-completion (after development)")
	i.out.Plain("\n📚 Documentation: https://github.com/vattention/facio-superpowers\n")
}

func (i *Installer) fail(item string, err error) {
	i.failures++
	i.out.Error(fmt.Sprintf("  ✗ %s (%v)", item, err))
	i.logger.WithField("item", item).WithError(err).Warn("Skipped artifact")
}

func (i *Installer) reportFailures() {
	if i.failures > 0 {
		i.out.Warn(fmt.Sprintf("⚠️  %d item(s) could not be written, see messages above", i.failures))
	}
}
