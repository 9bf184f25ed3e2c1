package installer

import "os"

// Policy says what a command does with an artifact
type Policy int

const (
	// Ignore leaves the artifact alone
	Ignore Policy = iota
	// SkipIfExists writes only when the destination is absent
	SkipIfExists
	// Overwrite replaces the destination unconditionally
	Overwrite
)

func (p Policy) String() string {
	switch p {
	case SkipIfExists:
		return "skip-if-exists"
	case Overwrite:
		return "overwrite"
	}
	return "ignore"
}

// Command identifies the installer command a policy applies to
type Command int

const (
	CommandInit Command = iota
	CommandSync
)

// FileArtifact is a single file copied from the cache into the project
type FileArtifact struct {
	Source string // relative to the cache root
	Dest   string // relative to the project root
	Mode   os.FileMode
	Init   Policy
	Sync   Policy
}

// PolicyFor returns the artifact policy for a command
func (a FileArtifact) PolicyFor(cmd Command) Policy {
	if cmd == CommandSync {
		return a.Sync
	}
	return a.Init
}

// GeneratedFile is a fixed-content file the installer writes itself
type GeneratedFile struct {
	Dest    string
	Content string
}

// Manifest lists every artifact the installer manages
type Manifest struct {
	Dirs         []string
	Skills       []string
	SkillsSource string   // cache directory holding the skill bundles
	SkillTargets []string // project directories receiving a copy of every bundle
	Files        []FileArtifact
	Indexes      []GeneratedFile
	ProjectDoc   string // root configuration document receiving the workflow block
	WorkflowFile string // cache path of the workflow block
}

// DefaultManifest returns the facio-superpowers scaffold
func DefaultManifest() Manifest {
	return Manifest{
		Dirs: []string{
			".claude/skills",
			".cursor/skills",
			"docs/adr",
			"docs/plans",
			"docs/modules",
			"docs/examples",
			"templates",
			"scripts",
		},
		Skills:       []string{"verification-before-completion", "prepare-context"},
		SkillsSource: "skills",
		SkillTargets: []string{".claude/skills", ".cursor/skills"},
		Files: []FileArtifact{
			{Source: "templates/adr-template.md", Dest: "templates/adr-template.md", Init: SkipIfExists, Sync: Overwrite},
			{Source: "templates/README-ROOT.md", Dest: "templates/README-ROOT.md", Init: SkipIfExists, Sync: Overwrite},
			{Source: "templates/DOCUMENTATION-MAP.md", Dest: "templates/DOCUMENTATION-MAP.md", Init: SkipIfExists, Sync: Overwrite},
			{Source: "templates/MODULE-README.md", Dest: "templates/MODULE-README.md", Init: SkipIfExists, Sync: Overwrite},
			{Source: "templates/MODULE-ARCHITECTURE.md", Dest: "templates/MODULE-ARCHITECTURE.md", Init: SkipIfExists, Sync: Overwrite},
			{Source: "templates/CLAUDE-TEAM.md", Dest: "CLAUDE-TEAM.md", Init: SkipIfExists, Sync: Overwrite},
			{Source: "templates/CLAUDE-PROJECT.md", Dest: "CLAUDE.md", Init: SkipIfExists, Sync: Ignore},
			{Source: "templates/sync-skills.sh", Dest: "scripts/sync-skills.sh", Mode: 0755, Init: Overwrite, Sync: Ignore},
		},
		Indexes: []GeneratedFile{
			{Dest: "docs/adr/README.md", Content: adrIndex},
			{Dest: "docs/plans/README.md", Content: plansIndex},
		},
		ProjectDoc:   "CLAUDE.md",
		WorkflowFile: "templates/CLAUDE-WORKFLOW.md",
	}
}

// Guide is copied after the project document has been configured
var Guide = FileArtifact{
	Source: "MODULAR-DOCS-GUIDE.md",
	Dest:   "docs/MODULAR-DOCS-GUIDE.md",
	Init:   SkipIfExists,
	Sync:   Overwrite,
}

const adrIndex = "# Architecture Decision Records\n" +
	"\n" +
	"## Current Decisions\n" +
	"\n" +
	"| Number | Title | Date | Status |\n" +
	"|--------|-------|------|--------|\n" +
	"| - | No ADRs yet | - | - |\n" +
	"\n" +
	"## How to Add ADR\n" +
	"\n" +
	"Use `/verification-before-completion` skill after making architectural decisions.\n"

const plansIndex = "# Design Documents & Implementation Plans\n" +
	"\n" +
	"## Recent Documents\n" +
	"\n" +
	"| Date | Feature | Type | Status |\n" +
	"|------|---------|------|--------|\n" +
	"| - | No documents yet | - | - |\n" +
	"\n" +
	"## How to Create\n" +
	"\n" +
	"- Design: Use `/brainstorming` skill\n" +
	"- Implementation Plan: Use `/writing-plans` skill\n"
