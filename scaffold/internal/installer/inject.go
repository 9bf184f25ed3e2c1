package installer

import "strings"

// WorkflowMarker identifies a project document that already has the workflow block
const WorkflowMarker = "## Mandatory Development Workflow"

// InjectWorkflow inserts block after the first top-level heading line of content,
// or at the start when there is none. The block is surrounded by blank lines.
// Content that already contains the marker is returned unchanged with false.
func InjectWorkflow(content, block string) (string, bool) {
	if strings.Contains(content, WorkflowMarker) {
		return content, false
	}

	lines := strings.Split(content, "\n")
	insertAt := 0
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") {
			insertAt = i + 1
			break
		}
	}

	out := make([]string, 0, len(lines)+3)
	out = append(out, lines[:insertAt]...)
	out = append(out, "", block, "")
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n"), true
}
