package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage reviewlens configuration.

Running bare 'reviewlens config' is the same as 'reviewlens config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
// API keys are never written; set them here by hand or via the environment.
const configTemplate = `# reviewlens configuration
# See: reviewlens config show (for effective values and sources)

llm:
  # Insight service: "anthropic" or "gemini"
  provider: "{{ .Provider }}"

  # Per-request deadline for the insight service
  timeout: "{{ .Timeout }}"

anthropic:
  # api_key: "" (falls back to $ANTHROPIC_API_KEY)
  model: "{{ .AnthropicModel }}"

gemini:
  # api_key: "" (falls back to $GEMINI_API_KEY)
  model: "{{ .GeminiModel }}"

review:
  # Strip HTML tags, URLs, punctuation and non-ASCII before analysis
  normalize: {{ .Normalize }}

  # Rating used when none is entered (1-5)
  default_rating: {{ .DefaultRating }}

ledger:
  # Session store: "memory" or "sqlite" (in-memory database, never a file)
  backend: "{{ .Backend }}"
  # 'reviewlens serve' ends sessions idle this long; 0 keeps them
  session_ttl: {{ .SessionTTL }}

# HTTP port for 'reviewlens serve'
port: {{ .Port }}
`

type configTemplateData struct {
	Provider       string
	Timeout        string
	AnthropicModel string
	GeminiModel    string
	Normalize      bool
	DefaultRating  int
	Backend        string
	SessionTTL     string
	Port           int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func renderConfig() ([]byte, error) {
	data := configTemplateData{
		Provider:       viper.GetString("llm.provider"),
		Timeout:        viper.GetDuration("llm.timeout").String(),
		AnthropicModel: viper.GetString("anthropic.model"),
		GeminiModel:    viper.GetString("gemini.model"),
		Normalize:      viper.GetBool("review.normalize"),
		DefaultRating:  viper.GetInt("review.default_rating"),
		Backend:        viper.GetString("ledger.backend"),
		SessionTTL:     viper.GetDuration("ledger.session_ttl").String(),
		Port:           viper.GetInt("port"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("template execute error: %w", err)
	}
	return buf.Bytes(), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	content, err := renderConfig()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, string(content))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// The file may later hold API keys.
	if err := os.WriteFile(cfgPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, string(content))
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "llm.provider", EnvVar: "REVIEWLENS_LLM_PROVIDER"},
	{Key: "llm.timeout", EnvVar: "REVIEWLENS_LLM_TIMEOUT"},
	{Key: "anthropic.api_key", EnvVar: "REVIEWLENS_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "REVIEWLENS_ANTHROPIC_MODEL"},
	{Key: "gemini.api_key", EnvVar: "REVIEWLENS_GEMINI_API_KEY", Secret: true},
	{Key: "gemini.model", EnvVar: "REVIEWLENS_GEMINI_MODEL"},
	{Key: "review.normalize", EnvVar: "REVIEWLENS_REVIEW_NORMALIZE"},
	{Key: "review.default_rating", EnvVar: "REVIEWLENS_REVIEW_DEFAULT_RATING"},
	{Key: "ledger.backend", EnvVar: "REVIEWLENS_LEDGER_BACKEND"},
	{Key: "ledger.session_ttl", EnvVar: "REVIEWLENS_LEDGER_SESSION_TTL"},
	{Key: "port", EnvVar: "REVIEWLENS_PORT"},
}

// maskSecret hides all but the last four characters of a key.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + v[len(v)-4:]
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			val = maskSecret(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set, set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'reviewlens config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
