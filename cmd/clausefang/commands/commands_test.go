package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clausefang/cmd/clausefang/commands"
	"github.com/Sumatoshi-tech/clausefang/pkg/config"
	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/render"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
	"github.com/Sumatoshi-tech/clausefang/pkg/textutil"
)

const agreement = "MASTER SERVICES AGREEMENT between Acme Corp and Globex LLC.\n\n" +
	"1. Indemnification. The Supplier shall indemnify the Customer for unlimited losses arising from any breach.\n\n" +
	"2. Termination. Either party may terminate this agreement upon thirty days written notice to the other.\n\n" +
	"3. Governing Law. This agreement is governed by the laws of the State of Delaware without regard to conflicts.\n"

const testConfig = `inference:
  provider: mock
store:
  backend: memory
observability:
  log_level: error
`

// writeFile writes content under a fresh temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := commands.NewRootCommand()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", writeFile(t, "config.yaml", testConfig)}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	var names []string
	for _, sub := range commands.NewRootCommand().Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{"review", "segment", "serve", "mcp", "playbook", "show", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestReview_TableFromFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "globex-msa.txt", agreement)

	out, err := execute(t, "", "review", path, "--no-color", "--redlines")
	require.NoError(t, err)

	assert.Contains(t, out, "globex-msa")
	assert.Contains(t, out, "Indemnification")
	assert.Contains(t, out, "Governing Law")
	assert.Contains(t, out, "redline")
}

func TestReview_JSONFromStdin(t *testing.T) {
	t.Parallel()

	out, err := execute(t, agreement, "review", "-", "--format", "json", "--contract-type", "NDA")
	require.NoError(t, err)

	var rec store.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))

	assert.Equal(t, store.StatusCompleted, rec.Status)
	assert.Equal(t, 100, rec.Progress)
	require.NotNil(t, rec.Classification)
	assert.Equal(t, "NDA", rec.Classification.ContractType)
	assert.Equal(t, "MASTER SERVICES AGREEMENT between Acme Corp and Globex LLC.", rec.Title)
	assert.NotEmpty(t, rec.Findings)
}

func TestReview_HTMLToFile(t *testing.T) {
	t.Parallel()

	report := filepath.Join(t.TempDir(), "report.html")

	out, err := execute(t, agreement, "review", "--format", "html", "--output", report, "--title", "Globex")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")
	assert.Contains(t, string(data), "Globex")
}

func TestReview_SaveAndShow(t *testing.T) {
	t.Parallel()

	snapshot := filepath.Join(t.TempDir(), "globex.json.lz4")

	_, err := execute(t, agreement, "review", "--save", snapshot, "--format", "json", "--title", "Globex")
	require.NoError(t, err)

	table, err := execute(t, "", "show", snapshot, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, table, "Globex")
	assert.Contains(t, table, "Indemnification")

	_, err = execute(t, "", "show", writeFile(t, "empty.json", "{}"))
	require.ErrorIs(t, err, store.ErrInvalidRecord)
}

func TestReview_Rejections(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "review", writeFile(t, "contract.pdf", "%PDF-1.7"))
	require.ErrorIs(t, err, textutil.ErrUnsupportedFormat)

	_, err = execute(t, "", "review", writeFile(t, "contract.txt", "\x00\x01\x02"))
	require.ErrorIs(t, err, textutil.ErrBinary)

	_, err = execute(t, "   \n", "review")
	require.ErrorIs(t, err, pipeline.ErrEmptyDocument)

	_, err = execute(t, agreement, "review", "--format", "xml")
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestReview_ProviderOverride(t *testing.T) {
	t.Parallel()

	_, err := execute(t, agreement, "--provider", "telepathy", "review")
	require.ErrorIs(t, err, config.ErrInvalidProvider)
}

func TestSegment_TableAndJSON(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, "small.yaml", testConfig+`pipeline:
  small_document_threshold: 200
  target_size: 150
  min_size: 100
  max_size: 300
  overlap: 40
`)

	run := func(args ...string) string {
		cmd := commands.NewRootCommand()

		var out bytes.Buffer

		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader(agreement))
		cmd.SetArgs(append([]string{"--config", cfgPath, "segment"}, args...))
		require.NoError(t, cmd.Execute())

		return out.String()
	}

	table := run()
	assert.Contains(t, table, "Begins with")
	assert.Contains(t, table, "segments via")

	var plan struct {
		Segments []json.RawMessage `json:"segments"`
	}
	require.NoError(t, json.Unmarshal([]byte(run("--format", "json")), &plan))
	assert.Greater(t, len(plan.Segments), 1)
}

func TestPlaybook_ShowAndValidate(t *testing.T) {
	t.Parallel()

	table, err := execute(t, "", "playbook", "show", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, table, "Indemnity Cap")
	assert.Contains(t, table, "15 of 15 rules enabled")

	exported, err := execute(t, "", "playbook", "show", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, exported, "profiles:")

	out, err := execute(t, "", "playbook", "validate", writeFile(t, "playbook.yaml", exported))
	require.NoError(t, err)
	assert.Contains(t, out, "1 profiles, 15 rules (15 enabled)")

	_, err = execute(t, "", "playbook", "validate", writeFile(t, "broken.yaml", "profiles: []\n"))
	require.Error(t, err)
}

func TestPlaybook_AddRule(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "playbook.yaml")

	out, err := execute(t, "", "playbook", "add-rule", path,
		"--name", "Venue", "--category", "Governing Law", "--condition", "Disputes heard in Delaware courts")
	require.NoError(t, err)
	assert.Contains(t, out, `added "Venue"`)

	out, err = execute(t, "", "playbook", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 profiles, 16 rules (16 enabled)")

	_, err = execute(t, "", "playbook", "add-rule", path,
		"--name", "Jury Waiver", "--condition", "Both parties waive jury trial", "--severity", "info", "--disabled")
	require.NoError(t, err)

	out, err = execute(t, "", "playbook", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 profiles, 17 rules (16 enabled)")

	_, err = execute(t, "", "playbook", "add-rule", path, "--name", "venue", "--condition", "Again")
	require.Error(t, err)

	_, err = execute(t, "", "playbook", "add-rule", path, "--name", "Venue 2", "--condition", "X", "--profile", "Missing")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "clausefang "))
}

func TestMCPCommand_Flags(t *testing.T) {
	t.Parallel()

	var mcpCmd *cobra.Command

	for _, sub := range commands.NewRootCommand().Commands() {
		if sub.Name() == "mcp" {
			mcpCmd = sub
		}
	}

	require.NotNil(t, mcpCmd)
	assert.NotEmpty(t, mcpCmd.Long)

	flag := mcpCmd.Flags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	t.Parallel()

	var serveCmd *cobra.Command

	for _, sub := range commands.NewRootCommand().Commands() {
		if sub.Name() == "serve" {
			serveCmd = sub
		}
	}

	require.NotNil(t, serveCmd)
	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
}
