// Package scaffold 把生成结果落盘为本地仓库骨架
package scaffold

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/yuin/goldmark"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/domain/entity"
)

const (
	FileReadme       = "README.md"
	FileReadmeHTML   = "README.html"
	FilePackageJSON  = "package.json"
	FileRequirements = "requirements.txt"

	defaultDirName = "ai-generated-project"
	commitMessage  = "Initial commit"
	requirementsTx = "# Add your project dependencies here\n"
)

// 描述中出现这些词时按 web 项目生成 package.json
var webKeywords = []string{"web", "react", "node", "javascript", "app"}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Options 落盘选项
type Options struct {
	// HTML 额外渲染 README.html
	HTML bool
	// Git 初始化仓库并提交
	Git         bool
	AuthorName  string
	AuthorEmail string
}

// Result 落盘结果
type Result struct {
	Dir    string
	Files  []string
	Commit string
}

type packageJSON struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Main        string            `json:"main"`
	Scripts     map[string]string `json:"scripts"`
	Keywords    []string          `json:"keywords"`
	Author      string            `json:"author"`
	License     string            `json:"license"`
}

// DirName 仓库名转为安全的目录名
func DirName(repositoryName string) string {
	name := unsafeNameChars.ReplaceAllString(strings.TrimSpace(repositoryName), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return defaultDirName
	}
	return name
}

// IsWebProject 描述是否指向 web 项目
func IsWebProject(description string) bool {
	lower := strings.ToLower(description)
	for _, kw := range webKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Write 在 dir 下写出骨架文件；record 为 done 事件的完整数据，写入 <名称>.json
func Write(dir string, artifact entity.RepositoryArtifact, record any, opts Options) (*Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	if record == nil {
		record = artifact
	}

	res := &Result{Dir: dir}
	write := func(name string, data []byte) error {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		res.Files = append(res.Files, name)
		return nil
	}

	readme := artifact.UnescapedReadme()
	if err := write(FileReadme, []byte(readme)); err != nil {
		return nil, err
	}

	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if err := write(DirName(artifact.RepositoryName)+".json", raw); err != nil {
		return nil, err
	}

	if IsWebProject(artifact.Description) {
		pkg, err := json.MarshalIndent(packageJSON{
			Name:        artifact.RepositoryName,
			Version:     "1.0.0",
			Description: artifact.Description,
			Main:        "index.js",
			Scripts:     map[string]string{"start": "node index.js", "dev": "nodemon index.js"},
			Keywords:    []string{},
			License:     "MIT",
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode package.json: %w", err)
		}
		if err := write(FilePackageJSON, pkg); err != nil {
			return nil, err
		}
	} else if err := write(FileRequirements, []byte(requirementsTx)); err != nil {
		return nil, err
	}

	if opts.HTML {
		html, err := RenderHTML(readme)
		if err != nil {
			return nil, err
		}
		if err := write(FileReadmeHTML, html); err != nil {
			return nil, err
		}
	}

	if opts.Git {
		hash, err := commitAll(dir, opts)
		if err != nil {
			return nil, err
		}
		res.Commit = hash
	}
	return res, nil
}

// RenderHTML Markdown 转 HTML
func RenderHTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// commitAll 初始化仓库（已存在则复用）并提交全部文件
func commitAll(dir string, opts Options) (string, error) {
	repo, err := git.PlainInit(dir, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		repo, err = git.PlainOpen(dir)
	}
	if err != nil {
		return "", fmt.Errorf("init git repository: %w", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	if err := w.AddGlob("."); err != nil {
		return "", fmt.Errorf("stage files: %w", err)
	}

	name, email := opts.AuthorName, opts.AuthorEmail
	if name == "" {
		name = "Idea2Repo"
	}
	if email == "" {
		email = "idea2repo@localhost"
	}
	hash, err := w.Commit(commitMessage, &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}
