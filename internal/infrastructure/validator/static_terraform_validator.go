package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"infrachat/internal/domain/entity"
	"infrachat/internal/domain/repository"
	"infrachat/internal/infrastructure/metrics"
)

var SensitiveKeywords = []string{"password", "secret", "token", "access_key", "secret_key", "private_key"}

// TerraformAnalyzer does a best-effort static pass over generated HCL. It
// only reports; terraform plan stays the source of truth.
type TerraformAnalyzer struct{}

var _ repository.CodeAnalyzer = (*TerraformAnalyzer)(nil)

func NewTerraformAnalyzer() *TerraformAnalyzer {
	return &TerraformAnalyzer{}
}

func (a *TerraformAnalyzer) Analyze(code string) []entity.Finding {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL([]byte(code), "main.tf")
	if !diags.HasErrors() {
		diags = append(diags, a.analyzeFile(file.Body)...)
	}

	findings := toFindings(diags)

	var errs, warns int
	for _, f := range findings {
		if f.Severity == entity.SeverityError {
			errs++
		} else {
			warns++
		}
	}
	metrics.AddStaticFindings(string(entity.SeverityError), errs)
	metrics.AddStaticFindings(string(entity.SeverityWarning), warns)

	return findings
}

func (a *TerraformAnalyzer) analyzeFile(body hcl.Body) hcl.Diagnostics {
	var diags hcl.Diagnostics

	schema := &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "terraform"},
			{Type: "provider", LabelNames: []string{"name"}},
			{Type: "resource", LabelNames: []string{"type", "name"}},
			{Type: "data", LabelNames: []string{"type", "name"}},
			{Type: "variable", LabelNames: []string{"name"}},
			{Type: "output", LabelNames: []string{"name"}},
			{Type: "module", LabelNames: []string{"name"}},
			{Type: "locals"},
		},
	}

	content, _, contentDiags := body.PartialContent(schema)
	diags = append(diags, contentDiags...)

	diags = append(diags, a.analyzeTerraformBlocks(content)...)
	diags = append(diags, a.analyzeProviderBlocks(content)...)
	diags = append(diags, a.analyzeResourceBlocks(content)...)

	return diags
}

func (a *TerraformAnalyzer) analyzeTerraformBlocks(content *hcl.BodyContent) hcl.Diagnostics {
	var diags hcl.Diagnostics

	found := false
	for _, block := range content.Blocks.OfType("terraform") {
		tfSchema := &hcl.BodySchema{
			Blocks: []hcl.BlockHeaderSchema{
				{Type: "required_providers"},
			},
		}
		tfContent, _, tfDiags := block.Body.PartialContent(tfSchema)
		diags = append(diags, tfDiags...)

		for _, rpBlock := range tfContent.Blocks.OfType("required_providers") {
			found = true
			attrs, attrsDiags := rpBlock.Body.JustAttributes()
			diags = append(diags, attrsDiags...)

			for _, providerName := range sortedKeys(attrs) {
				attr := attrs[providerName]
				val, valDiags := attr.Expr.Value(nil)
				if valDiags.HasErrors() {
					continue
				}
				if val.Type().IsObjectType() {
					if !val.Type().HasAttribute("version") {
						diags = append(diags, &hcl.Diagnostic{
							Severity: hcl.DiagWarning,
							Summary:  fmt.Sprintf("Provider %s missing version constraint", providerName),
							Subject:  attr.Range.Ptr(),
						})
					}
				} else {
					diags = append(diags, &hcl.Diagnostic{
						Severity: hcl.DiagWarning,
						Summary:  fmt.Sprintf("Provider %s has non-object requirement", providerName),
						Subject:  attr.Range.Ptr(),
					})
				}
			}
		}
	}

	if !found {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagWarning,
			Summary:  "Missing terraform required_providers block",
		})
	}
	return diags
}

func (a *TerraformAnalyzer) analyzeProviderBlocks(content *hcl.BodyContent) hcl.Diagnostics {
	if len(content.Blocks.OfType("provider")) > 0 {
		return nil
	}
	return hcl.Diagnostics{{
		Severity: hcl.DiagWarning,
		Summary:  "Missing provider configuration block",
	}}
}

func (a *TerraformAnalyzer) analyzeResourceBlocks(content *hcl.BodyContent) hcl.Diagnostics {
	var diags hcl.Diagnostics

	for _, block := range content.Blocks.OfType("resource") {
		resType, resName := block.Labels[0], block.Labels[1]

		resSchema := &hcl.BodySchema{
			Attributes: []hcl.AttributeSchema{
				{Name: "tags"},
			},
		}
		resContent, _, resDiags := block.Body.PartialContent(resSchema)
		diags = append(diags, resDiags...)

		tags, hasTags := resContent.Attributes["tags"]
		switch {
		case !hasTags:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagWarning,
				Summary:  fmt.Sprintf("Resource %s.%s missing tags attribute", resType, resName),
				Subject:  block.DefRange.Ptr(),
			})
		case !hasNameTag(tags.Expr):
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagWarning,
				Summary:  fmt.Sprintf("Resource %s.%s tags have no Name key", resType, resName),
				Subject:  tags.Range.Ptr(),
			})
		}

		syntaxBody, ok := block.Body.(*hclsyntax.Body)
		if !ok {
			continue
		}
		for _, attrName := range sortedKeys(syntaxBody.Attributes) {
			attr := syntaxBody.Attributes[attrName]
			if !isSensitive(attrName) || len(attr.Expr.Variables()) > 0 {
				continue
			}
			if _, valDiags := attr.Expr.Value(nil); valDiags.HasErrors() {
				continue
			}
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagWarning,
				Summary:  fmt.Sprintf("Potential hardcoded sensitive value in attribute %s of resource %s.%s", attrName, resType, resName),
				Subject:  attr.SrcRange.Ptr(),
			})
		}
	}
	return diags
}

// hasNameTag reports whether a tags expression contains a Name key. Tags
// built from references (merge(), locals) are given the benefit of the doubt.
func hasNameTag(expr hcl.Expression) bool {
	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		return true
	}
	for _, pair := range pairs {
		key := hcl.ExprAsKeyword(pair.Key)
		if key == "" {
			v, d := pair.Key.Value(nil)
			if d.HasErrors() || v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
				continue
			}
			key = v.AsString()
		}
		if key == "Name" {
			return true
		}
	}
	return false
}

func isSensitive(attrName string) bool {
	name := strings.ToLower(attrName)
	for _, kw := range SensitiveKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func toFindings(diags hcl.Diagnostics) []entity.Finding {
	findings := make([]entity.Finding, 0, len(diags))
	for _, diag := range diags {
		f := entity.Finding{
			Severity: entity.SeverityWarning,
			Summary:  diag.Summary,
		}
		if diag.Severity == hcl.DiagError {
			f.Severity = entity.SeverityError
		}
		if diag.Detail != "" {
			f.Summary = fmt.Sprintf("%s: %s", diag.Summary, diag.Detail)
		}
		if diag.Subject != nil {
			f.Line = diag.Subject.Start.Line
			f.Column = diag.Subject.Start.Column
		}
		findings = append(findings, f)
	}
	return findings
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
