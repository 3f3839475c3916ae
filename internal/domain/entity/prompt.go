package entity

type MessageRole string

const (
	RoleSystem MessageRole = "system"
	RoleUser   MessageRole = "user"
)

type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

type Prompt struct {
	ID   string
	Text string
}

const terraformPrompt = `You are an expert AWS infrastructure engineer. Generate ONLY raw Terraform code using the AWS provider.
Rules:
- NEVER wrap code in ` + "```" + ` or any markdown.
- NEVER explain or add comments.
- Include required_providers and provider blocks.
- Use AWS provider "~> 5.0".
- Tag all resources with Name = "<descriptive>".
- Use realistic CIDRs and AZs (e.g., us-east-1a).
- Assume region is specified or default to us-east-1.`

var TerraformPrompt = Prompt{
	ID:   "terraform-aws",
	Text: terraformPrompt,
}

// BuildMessages pairs the Terraform system instruction with the user query.
// The query is passed through untouched.
func BuildMessages(query string) []Message {
	return []Message{
		{Role: RoleSystem, Content: TerraformPrompt.Text},
		{Role: RoleUser, Content: query},
	}
}
