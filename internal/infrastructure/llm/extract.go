package llm

import (
	"regexp"
	"strings"
)

// fencePattern matches the first fenced block, optionally tagged terraform, hcl
// or tf. The capture is non-greedy, so nested or unbalanced fences are cut at
// the nearest closing fence.
var fencePattern = regexp.MustCompile("(?is)```(?:terraform|hcl|tf)?\\s*(.*?)\\s*```")

// ExtractTerraformCode strips a markdown code fence from a model reply. Text
// without a fence is returned trimmed.
func ExtractTerraformCode(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
