package quality

import (
	"fmt"
	"path"
	"strings"

	"github.com/codescope-io/codescope/pkg/models"
)

// PromptRenderer turns a check item's prompt template and a snapshot into the
// text handed to a model-driven checker. The snapshot excerpt is capped so a
// large service cannot blow the prompt budget.
type PromptRenderer struct {
	MaxFiles       int
	MaxFileSize    int
	MaxSnapshotLen int
}

func NewPromptRenderer(cfg models.CheckerConfig) *PromptRenderer {
	r := &PromptRenderer{
		MaxFiles:       cfg.MaxFiles,
		MaxFileSize:    cfg.MaxFileSize,
		MaxSnapshotLen: cfg.MaxSnapshotLen,
	}
	if r.MaxFiles <= 0 {
		r.MaxFiles = 30
	}
	if r.MaxFileSize <= 0 {
		r.MaxFileSize = 15000
	}
	if r.MaxSnapshotLen <= 0 {
		r.MaxSnapshotLen = 150000
	}
	return r
}

func (r *PromptRenderer) Render(serviceName string, item models.CheckItem, snapshot models.FileSnapshot) string {
	template := cleanTemplate(item.PromptTemplate)
	if template == "" {
		template = fmt.Sprintf("Check the %s code below for: %s.\n{{code}}", serviceName, item.ItemName)
	}

	var sb strings.Builder
	files := 0
	for _, filePath := range snapshot.Paths() {
		if !sourceExtensions[strings.ToLower(path.Ext(filePath))] {
			continue
		}
		if files >= r.MaxFiles || sb.Len() >= r.MaxSnapshotLen {
			break
		}
		content := snapshot[filePath]
		if len(content) > r.MaxFileSize {
			content = content[:r.MaxFileSize]
		}
		fmt.Fprintf(&sb, "=== %s ===\n%s\n", filePath, content)
		files++
	}

	rendered := strings.ReplaceAll(template, "{{code}}", sb.String())
	rendered = strings.ReplaceAll(rendered, "{{service}}", serviceName)
	return rendered
}

// cleanTemplate normalizes whitespace without touching the template's body.
func cleanTemplate(template string) string {
	lines := strings.Split(strings.TrimSpace(template), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
