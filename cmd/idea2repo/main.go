// Package main idea2repo 命令行客户端：提交项目描述并把生成的骨架写到本地
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/client"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/domain/entity"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/interfaces/http/dto"
	"github.com/ScriptSorcerer23/Idea2Repo/internal/scaffold"
	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
	"github.com/ScriptSorcerer23/Idea2Repo/pkg/logger"
)

const defaultServer = "http://localhost:8000"

type options struct {
	server   string
	apiKey   string
	out      string
	html     bool
	git      bool
	saveKey  bool
	logLevel string
}

func main() {
	_ = godotenv.Load()

	var opts options
	fs := flag.NewFlagSet("idea2repo", flag.ExitOnError)
	fs.StringVarP(&opts.server, "server", "s", envOr("IDEA2REPO_SERVER", defaultServer), "Idea2Repo API base URL")
	fs.StringVarP(&opts.apiKey, "api-key", "k", "", "API key sent as X-API-Key (default: $API_KEY, then the OS keyring)")
	fs.StringVarP(&opts.out, "out", "o", ".", "directory the repository folder is created in")
	fs.BoolVar(&opts.html, "html", false, "also render README.html")
	fs.BoolVar(&opts.git, "git", false, "initialise a git repository and commit the files")
	fs.BoolVar(&opts.saveKey, "save-key", false, "store the API key in the OS keyring and exit")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: idea2repo [flags] <project description>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	logger.InitWithWriter(os.Stderr, opts.logLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, strings.Join(fs.Args(), " ")); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, prompt string) error {
	store, err := client.OpenKeyStore()
	if err != nil {
		logger.Warn(ctx, "keyring unavailable", "error", err.Error())
	}

	if opts.saveKey {
		if store == nil {
			return errors.New("OS keyring is not available")
		}
		if err := store.SaveFrom(opts.apiKey, os.Getenv("API_KEY")); err != nil {
			return err
		}
		fmt.Println("🔑 API key saved to keyring")
		return nil
	}

	minRunes, maxRunes := dto.PromptBounds()
	req := entity.GenerationRequest{Prompt: prompt}
	if err := req.Validate(minRunes, maxRunes); err != nil {
		return err
	}

	apiKey, err := client.ResolveAPIKey(opts.apiKey, os.Getenv("API_KEY"), store)
	if err != nil && !errors.Is(err, client.ErrNoAPIKey) {
		return err
	}
	// 开发模式下服务端不校验 key，缺省时照常请求

	c := client.New(opts.server, apiKey, nil)
	res, err := c.Generate(ctx, req.Description(), func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return fmt.Errorf("%s (%s)", appErr.Message, appErr.Code)
		}
		return err
	}

	var record any = res.Artifact
	if res.Fallback != nil {
		record = res.Fallback
		fmt.Printf("⚠️  %s\n", res.Fallback.Note)
	}

	dir := filepath.Join(opts.out, scaffold.DirName(res.Artifact.RepositoryName))
	written, err := scaffold.Write(dir, res.Artifact, record, scaffold.Options{
		HTML:        opts.html,
		Git:         opts.git,
		AuthorName:  os.Getenv("GIT_AUTHOR_NAME"),
		AuthorEmail: os.Getenv("GIT_AUTHOR_EMAIL"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("✅ %s: %s\n", res.Artifact.RepositoryName, res.Artifact.Description)
	for _, f := range written.Files {
		fmt.Printf("   %s\n", filepath.Join(written.Dir, f))
	}
	if written.Commit != "" {
		fmt.Printf("   commit %s\n", written.Commit[:7])
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
