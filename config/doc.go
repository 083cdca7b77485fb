/*
Package config loads and validates OpenClaw configuration.

Configuration merges three layers in fixed precedence: compiled-in
defaults, an optional YAML file, and OPENCLAW_* environment variables.
A missing file is not an error; the defaults are complete enough to run
with.

	cfg, err := config.NewLoader().
		WithConfigPath("openclaw.yaml").
		WithValidator(func(c *config.Config) error { return c.Validate() }).
		Load()

Environment keys follow the struct nesting, so memory.context_budget
becomes OPENCLAW_MEMORY_CONTEXT_BUDGET. Durations accept Go syntax
("60s", "5m"); string slices accept comma-separated values.
*/
package config
