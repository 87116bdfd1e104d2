package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cli/go-gh/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/naka-gawa/github-opened/internal/config"
	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/gateway"
	"github.com/naka-gawa/github-opened/internal/parser"
	"github.com/naka-gawa/github-opened/internal/report"
	"github.com/naka-gawa/github-opened/internal/usecase"
)

var openedCmd = &cobra.Command{
	Use:   "opened",
	Short: "Lists open pull requests and issues and writes a report",
	Long: `Resolves the repositories of the given users and of the watch list, crawls
their open pull requests and, where the repository reports open issues, their
open issues. The result is written as an HTML page (default), a terminal table
or JSON.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := newLogger(verbose)

		input, err := config.Load(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
			os.Exit(1)
		}
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get working directory: %v\n", err)
			os.Exit(1)
		}
		settings, err := config.Process(input, wd, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
			os.Exit(1)
		}

		os.Exit(run(cmd.Context(), settings, logger, os.Stdout, os.Stderr))
	},
}

func init() {
	fs := openedCmd.Flags()
	fs.StringSliceP("user", "u", nil, "GitHub user whose repositories are crawled (repeatable)")
	fs.StringSliceP("repo", "r", nil, "Repository to watch as owner/name (repeatable)")
	fs.StringP("json", "j", "", "JSON watch file mapping an owner to repository names")
	fs.IntP("days", "d", 0, "Only report entries opened less than this many days ago (0 = no limit)")
	fs.StringP("sort", "s", string(domain.SortByOpening), "Sort key: opening, repo or author")
	fs.String("token", "", "GitHub token (default: $GITHUB_TOKEN, then the gh CLI credential)")
	fs.StringP("output", "o", string(report.HTML), "Output format: html, table or json")
	fs.String("file", config.DefaultFile, "Path of the HTML report")
	fs.Bool("open", false, "Open the HTML report in the browser")
	fs.Bool("color", true, "Colorize the terminal table")
	fs.Duration("timeout", 0, "Abort the run after this duration (0 = no limit)")
	fs.Int("concurrency", usecase.DefaultConcurrency, "Maximum number of listings crawled at once")
	fs.Bool("include-pull-only", false, "Also crawl repositories with open pull requests but no open issues (needs a token)")
	fs.String("web-url", gateway.DefaultWebURL, "Base URL of the GitHub web site")
	fs.String("api-url", gateway.DefaultAPIURL, "Base URL of the GitHub REST API")

	if err := bindFlags(fs); err != nil {
		log.Fatalf("Error binding opened flags: %v", err)
	}
}

// bindFlags binds every flag to the setting of the same name, except the
// repeatable user and repo flags which feed the plural settings.
func bindFlags(fs *pflag.FlagSet) error {
	renamed := map[string]string{"user": "users", "repo": "repos"}
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if k, ok := renamed[key]; ok {
			key = k
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil && err == nil {
			err = fmt.Errorf("failed to bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// run performs one run with validated settings and returns the exit code.
func run(ctx context.Context, s *config.Settings, logger *log.Logger, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	// Inject dependencies and run the main business logic.
	counter := &domain.RequestCounter{}
	githubGateway, err := gateway.NewGitHubGateway(gateway.Config{
		Token:  s.Token,
		WebURL: s.WebURL,
		APIURL: s.APIURL,
	}, counter, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create GitHub gateway: %v\n", err)
		return 1
	}
	crawler := usecase.NewCrawler(githubGateway, parser.New(logger), logger)
	runner := usecase.NewRunner(
		usecase.NewResolver(githubGateway, s.IncludePullOnly, logger),
		usecase.NewAggregator(crawler, s.Concurrency, logger),
		counter,
		logger,
	)

	cc := domain.NewCrawlContext(time.Now(), s.Days)
	result, err := runner.Run(ctx, usecase.Options{Users: s.Users, Repos: s.Repos, Sort: s.Sort}, cc)
	if errors.Is(err, usecase.ErrNothingToDo) {
		fmt.Fprintln(stdout, "nothing to do")
		return 0
	}
	if err != nil {
		return reportFailure(stderr, err, s.Timeout)
	}
	if result.Empty() {
		fmt.Fprintln(stdout, "no pull requests and no issues")
		return 0
	}

	if err := write(s, result, stdout); err != nil {
		fmt.Fprintf(stderr, "Failed to write report: %v\n", err)
		return 1
	}
	return 0
}

// reportFailure prints one message per failure category.
func reportFailure(stderr io.Writer, err error, timeout time.Duration) int {
	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintf(stderr, "Timed out after %s: %v\n", timeout, err)
		return 1
	}
	if apiErr, ok := gateway.AsAPIError(err); ok {
		fmt.Fprintf(stderr, "GitHub request failed: %v\n", apiErr)
		return 1
	}
	fmt.Fprintf(stderr, "Failed to collect pull requests and issues: %v\n", err)
	return 1
}

func write(s *config.Settings, r *usecase.Report, stdout io.Writer) error {
	switch s.Output {
	case report.Table:
		return report.WriteTable(stdout, r, s.Color)
	case report.JSON:
		return report.WriteJSON(stdout, r)
	}

	f, err := os.Create(s.File)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.File, err)
	}
	if err := report.WriteHTML(f, r, s.WebURL); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.File, err)
	}
	fmt.Fprintf(stdout, "obtain %d opened pull request(s) and %d opened issue(s), written to %s\n", len(r.Pulls), len(r.Issues), s.File)

	if !s.Open {
		return nil
	}
	path, err := filepath.Abs(s.File)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", s.File, err)
	}
	b := browser.New("", stdout, os.Stderr)
	if err := b.Browse("file://" + filepath.ToSlash(path)); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}
