package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mockwire/mockwire/internal/cli"
	"github.com/mockwire/mockwire/internal/errors"
	"github.com/mockwire/mockwire/internal/logger"
)

var (
	method         string
	headers        []string
	data           string
	base           string
	timeout        time.Duration
	rulesFile      string
	openAPIURL     string
	recordDB       string
	passthrough    bool
	verbose        bool
	debug          bool
	includeHeaders bool
	logFile        string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.UserMessage(err))
		os.Exit(1)
	}
}

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "mockwire [url]",
		Short: "Send HTTP requests through a mock interception layer",
		Long: `mockwire sends HTTP requests through an intercepted client.
A resolver built from rule files or an OpenAPI document decides per
request whether to fabricate the response or let it through to the
real network; either way the result looks the same to the caller.`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         runSend,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&method, "request", "X", "GET", "HTTP method (GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS)")
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "Pass custom header(s) to server (can be used multiple times)")
	rootCmd.PersistentFlags().StringVarP(&data, "data", "d", "", "HTTP POST/PUT/PATCH data")
	rootCmd.PersistentFlags().StringVar(&base, "base", "", "Base URL for relative request paths")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (0 means none)")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "Mock rules YAML file")
	rootCmd.PersistentFlags().StringVar(&openAPIURL, "openapi", "", "OpenAPI document URL or file to mock from")
	rootCmd.PersistentFlags().StringVar(&recordDB, "record", "", "SQLite database to record settled exchanges into")
	rootCmd.PersistentFlags().BoolVar(&passthrough, "passthrough", false, "Allow sending with no mock source configured")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug logging with caller info")
	rootCmd.PersistentFlags().BoolVarP(&includeHeaders, "include", "i", false, "Include response headers in output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this rotating file")

	rootCmd.RegisterFlagCompletionFunc("request", methodCompletion)

	rootCmd.AddCommand(generateCompletionCmd())
}

func runSend(cmd *cobra.Command, args []string) error {
	log := logger.SetupFromFlags(verbose, debug, logFile)
	handler := cli.NewSendHandler(log)
	return handler.Execute(cmd, args)
}

func methodCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	methods := []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}
	return methods, cobra.ShellCompDirectiveNoFileComp
}

func generateCompletionCmd() *cobra.Command {
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:

  # Load for current session:
  $ source <(mockwire completion bash)

  # Load for all sessions (add to ~/.bashrc):
  $ echo 'source <(mockwire completion bash)' >> ~/.bashrc

Zsh:

  # Load for current session:
  $ source <(mockwire completion zsh)

  # Load for all sessions (add to ~/.zshrc):
  $ echo 'source <(mockwire completion zsh)' >> ~/.zshrc

Fish:

  # Load for current session:
  $ mockwire completion fish | source

  # Load for all sessions:
  $ mockwire completion fish > ~/.config/fish/completions/mockwire.fish

PowerShell:

  # Load for current session:
  PS> mockwire completion powershell | Out-String | Invoke-Expression

  # Load for all sessions (add to PowerShell profile):
  PS> Add-Content $PROFILE 'mockwire completion powershell | Out-String | Invoke-Expression'
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
		},
	}

	return completionCmd
}
