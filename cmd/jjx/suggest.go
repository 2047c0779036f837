package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/taxonomy"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <path>...",
	Short: "Suggest a change type for a set of paths, from extension heuristics and change history",
	Long: `suggest is a read-only heuristic: it looks at each path's extension and at
what type past typed-changes touching similar paths recorded, and proposes the
change type and category an Intent for these paths would most plausibly carry.
It never writes anything; the caller still decides.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}

type suggestOutput struct {
	Type       taxonomy.ChangeType      `json:"type"`
	Category   *taxonomy.ChangeCategory `json:"category,omitempty"`
	Confidence string                   `json:"confidence"`
	Rationale  []string                 `json:"rationale"`
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	byType := map[taxonomy.ChangeType]int{}
	var rationale []string

	for _, p := range args {
		if t, ok := changeTypeFromExtension(p); ok {
			byType[t]++
			rationale = append(rationale, fmt.Sprintf("%s looks like a %s change by extension", p, t))
		}
	}

	all, err := a.changes.List()
	if err != nil {
		return err
	}
	for _, c := range all {
		for _, f := range c.Files {
			for _, p := range args {
				if filepath.Dir(f) == filepath.Dir(p) {
					byType[c.Type] += 2
					rationale = append(rationale, fmt.Sprintf("change %s (type %s) previously touched %s, alongside %s", c.ChangeID, c.Type, f, p))
				}
			}
		}
	}

	result := suggestOutput{Type: taxonomy.ChangeTypeBehavioral, Confidence: "low", Rationale: rationale}
	best := 0
	for t, score := range byType {
		if score > best {
			best = score
			result.Type = t
		}
	}
	if best >= 2 {
		result.Confidence = "high"
	} else if best == 1 {
		result.Confidence = "medium"
	}

	setExitCode(0)
	return a.out.Emit(result, func(w io.Writer) error {
		fmt.Fprintf(w, "suggested type: %s (confidence: %s)\n", result.Type, result.Confidence)
		for _, r := range result.Rationale {
			fmt.Fprintf(w, "  - %s\n", r)
		}
		return nil
	})
}

func changeTypeFromExtension(path string) (taxonomy.ChangeType, bool) {
	base := strings.ToLower(filepath.Base(path))
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case strings.Contains(base, "_test.") || strings.Contains(base, ".test.") || strings.HasSuffix(base, "_spec.go"):
		return taxonomy.ChangeTypeTest, true
	case ext == ".md" || ext == ".rst" || ext == ".adoc":
		return taxonomy.ChangeTypeDocs, true
	case base == "go.mod" || base == "go.sum" || base == "package.json" || base == "package-lock.json" ||
		base == "requirements.txt" || base == "cargo.toml" || base == "cargo.lock":
		return taxonomy.ChangeTypeDeps, true
	case ext == ".toml" || ext == ".yaml" || ext == ".yml" || ext == ".ini" || ext == ".env":
		return taxonomy.ChangeTypeConfig, true
	case ext == ".proto" || strings.Contains(base, "schema"):
		return taxonomy.ChangeTypeSchema, true
	default:
		return "", false
	}
}
