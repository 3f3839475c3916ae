package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"infrachat/app/config"
	"infrachat/internal/infrastructure/llm"
)

type runFunc func(ctx context.Context, cfg *config.Config) error

type rootOptions struct {
	provider     string
	model        string
	terraformBin string
	initTimeout  time.Duration
	planTimeout  time.Duration
}

func newRootCmd(run runFunc) *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:   "infrachat",
		Short: "Turn a plain-English request into Terraform and dry-run it with terraform plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			return run(cmd.Context(), cfg)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.Flags().StringVar(&opts.provider, "provider", "", "LLM provider (gemini|openai), overrides LLM_PROVIDER")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model id, overrides LLM_MODEL")
	cmd.Flags().StringVar(&opts.terraformBin, "terraform-bin", "", "Path to the terraform binary, overrides TERRAFORM_BIN")
	cmd.Flags().DurationVar(&opts.initTimeout, "init-timeout", 0, "terraform init timeout, overrides TERRAFORM_INIT_TIMEOUT")
	cmd.Flags().DurationVar(&opts.planTimeout, "plan-timeout", 0, "terraform plan timeout, overrides TERRAFORM_PLAN_TIMEOUT")
	return cmd
}

// apply copies explicitly set flags over the environment config.
func (o rootOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.LLM.Provider = o.provider
		if os.Getenv("LLM_MODEL") == "" {
			cfg.LLM.Model = llm.DefaultModel(o.provider)
		}
	}
	if flags.Changed("model") {
		cfg.LLM.Model = o.model
	}
	if flags.Changed("terraform-bin") {
		cfg.Terraform.Binary = o.terraformBin
	}
	if flags.Changed("init-timeout") {
		cfg.Terraform.InitTimeout = o.initTimeout
	}
	if flags.Changed("plan-timeout") {
		cfg.Terraform.PlanTimeout = o.planTimeout
	}
}
