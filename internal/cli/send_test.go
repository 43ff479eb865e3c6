package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mockwire/mockwire/internal/testutil"
)

// newSendCommand builds a command carrying the same flag set the real
// binary registers, wired to a SendHandler.
func newSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "mockwire [url]",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewSendHandler(zerolog.Nop()).Execute(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringP("request", "X", "GET", "")
	flags.StringSliceP("header", "H", nil, "")
	flags.StringP("data", "d", "", "")
	flags.String("base", "", "")
	flags.Duration("timeout", 0, "")
	flags.String("rules", "", "")
	flags.String("openapi", "", "")
	flags.String("record", "", "")
	flags.Bool("passthrough", false, "")
	flags.BoolP("verbose", "v", false, "")
	flags.BoolP("include", "i", false, "")
	flags.String("log-file", "", "")
	return cmd
}

func runSend(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newSendCommand()
	cmd.SetArgs(args)
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)

	// renderResponse writes straight to stdout; capture it.
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	runErr := cmd.Execute()
	w.Close()
	os.Stdout = old

	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		t.Fatalf("reading captured output: %v", err)
	}
	return out.String(), runErr
}

func writeRulesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(testutil.BasicRules), 0o644); err != nil {
		t.Fatalf("writing rules: %v", err)
	}
	return path
}

func TestSendMockedByRules(t *testing.T) {
	out, err := runSend(t, "--rules", writeRulesFile(t), "https://api.example.com/users")
	testutil.AssertNoError(t, err, "send")
	testutil.AssertStringContains(t, out, "200", "status line")
	testutil.AssertStringContains(t, out, `[{"id": 9}]`, "mocked body")
}

func TestSendIncludeHeaders(t *testing.T) {
	out, err := runSend(t, "--rules", writeRulesFile(t), "-i", "https://api.example.com/users")
	testutil.AssertNoError(t, err, "send")
	testutil.AssertStringContains(t, out, "Content-Type", "header name shown")
	testutil.AssertStringContains(t, out, "application/json", "header value shown")
}

func TestSendRequiresURL(t *testing.T) {
	_, err := runSend(t, "--rules", writeRulesFile(t))
	testutil.AssertErrorContains(t, err, "URL is required", "missing target")
}

func TestSendRequiresMockSource(t *testing.T) {
	_, err := runSend(t, "https://api.example.com/users")
	testutil.AssertErrorContains(t, err, "no mock source", "validation")
}

func TestSendRejectsMalformedHeader(t *testing.T) {
	_, err := runSend(t,
		"--rules", writeRulesFile(t),
		"-H", "not-a-header",
		"https://api.example.com/users")
	testutil.AssertErrorContains(t, err, "malformed header", "header parsing")
}

func TestSendRejectsRelativeBase(t *testing.T) {
	_, err := runSend(t,
		"--rules", writeRulesFile(t),
		"--base", "/just/a/path",
		"https://api.example.com/users")
	testutil.AssertErrorContains(t, err, "absolute", "base validation")
}

func TestSendPassthroughAgainstRealServer(t *testing.T) {
	server := testutil.NewEchoTestServer()
	defer server.Close()

	out, err := runSend(t, "--passthrough", "--timeout", (5 * time.Second).String(), server.URL+"/users")
	testutil.AssertNoError(t, err, "send")
	testutil.AssertStringContains(t, out, "Test User", "real body")
}

func TestSendRecordsExchanges(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "rec.db")
	_, err := runSend(t,
		"--rules", writeRulesFile(t),
		"--record", dbPath,
		"https://api.example.com/users")
	testutil.AssertNoError(t, err, "send")

	if _, statErr := os.Stat(dbPath); statErr != nil {
		t.Fatalf("record database not created: %v", statErr)
	}
}
