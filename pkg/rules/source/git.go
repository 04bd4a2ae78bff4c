package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"ruleforge-hq/anvil/pkg/config"
	"ruleforge-hq/anvil/pkg/rules"
)

// ErrNotCloned is returned by repository operations before Open.
var ErrNotCloned = errors.New("repository not cloned")

// Commit describes the checked-out commit of a GitSource.
type Commit struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// PullResult is the outcome of a pull.
type PullResult struct {
	FromSHA      string
	ToSHA        string
	ChangedFiles []string // relative to the repository root
}

// HadChanges reports whether the pull moved HEAD.
func (r *PullResult) HadChanges() bool {
	return r.FromSHA != r.ToSHA
}

// GitSource loads rules from a file or directory inside a local clone of a
// Git repository. The clone is created on the first Load and updated with
// Pull.
type GitSource struct {
	cfg    *config.GitRulesConfig
	auth   transport.AuthMethod
	logger *slog.Logger
	files  *FileSource

	mu   sync.RWMutex
	repo *gogit.Repository
}

// NewGitSource creates a Git rule source. It does not touch the network;
// the repository is cloned by Open or the first Load.
func NewGitSource(cfg *config.GitRulesConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg == nil {
		return nil, errors.New("git config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, errors.New("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, errors.New("branch cannot be empty")
	}
	if cfg.LocalPath == "" {
		return nil, errors.New("local path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	auth, err := NewAuthMethod(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create git auth: %w", err)
	}

	logger = logger.With("repository", cfg.Repository, "branch", cfg.Branch)
	return &GitSource{
		cfg:    cfg,
		auth:   auth,
		logger: logger,
		files:  NewFileSource(filepath.Join(cfg.LocalPath, cfg.Path), logger),
	}, nil
}

// Path returns the local path of the rules inside the clone.
func (s *GitSource) Path() string {
	return s.files.Path()
}

// Open clones the repository, or opens an existing clone at the local
// path.
func (s *GitSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open(ctx)
}

func (s *GitSource) open(ctx context.Context) error {
	if s.repo != nil {
		return nil
	}

	if _, err := os.Stat(filepath.Join(s.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing clone: %w", err)
		}
		s.repo = repo
		s.logger.Debug("opened existing clone", "path", s.cfg.LocalPath)
		return nil
	}

	if err := os.MkdirAll(s.cfg.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}

	cloneCtx, cancel := s.timeout(ctx)
	defer cancel()

	start := time.Now()
	repo, err := gogit.PlainCloneContext(cloneCtx, s.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           s.cfg.Repository,
		Auth:          s.auth,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Depth:         s.cfg.Depth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	s.repo = repo

	s.logger.Info("cloned rule repository",
		"path", s.cfg.LocalPath,
		"duration", time.Since(start),
	)
	return nil
}

// Load clones the repository if needed and loads the rules at the
// configured path of the working tree.
func (s *GitSource) Load(ctx context.Context) (*rules.RuleSet, error) {
	s.mu.Lock()
	err := s.open(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files.Load(ctx)
}

// Head returns the checked-out commit.
func (s *GitSource) Head() (*Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.repo == nil {
		return nil, ErrNotCloned
	}
	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	c, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &Commit{
		SHA:       c.Hash.String(),
		Author:    c.Author.Name,
		Timestamp: c.Author.When,
		Message:   strings.TrimSpace(c.Message),
		Branch:    s.cfg.Branch,
	}, nil
}

// Pull fast-forwards the working tree to the remote branch and reports the
// files that changed.
func (s *GitSource) Pull(ctx context.Context) (*PullResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, ErrNotCloned
	}

	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	pullCtx, cancel := s.timeout(ctx)
	defer cancel()

	err = wt.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          s.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	newRef, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	res := &PullResult{FromSHA: ref.Hash().String(), ToSHA: newRef.Hash().String()}
	if res.HadChanges() {
		if res.ChangedFiles, err = s.changedFiles(ref.Hash(), newRef.Hash()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *GitSource) changedFiles(from, to plumbing.Hash) ([]string, error) {
	fromCommit, err := s.repo.CommitObject(from)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", from, err)
	}
	toCommit, err := s.repo.CommitObject(to)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", to, err)
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	files := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.To.Name != "" {
			files = append(files, ch.To.Name)
		} else {
			files = append(files, ch.From.Name)
		}
	}
	return files, nil
}

// RuleFilesChanged reports whether any of files, relative to the
// repository root, is a rule file under the configured rule path.
func (s *GitSource) RuleFilesChanged(files []string) bool {
	prefix := filepath.ToSlash(filepath.Clean(s.cfg.Path))
	for _, f := range files {
		if !IsRuleFile(f) {
			continue
		}
		if prefix == "." || f == prefix || strings.HasPrefix(f, prefix+"/") {
			return true
		}
	}
	return false
}

func (s *GitSource) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// NewAuthMethod returns the transport authentication for cfg; "none" and
// "" return nil for public repositories.
func NewAuthMethod(cfg *config.GitAuthConfig) (transport.AuthMethod, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil

	case "token":
		if cfg.Token == "" {
			return nil, errors.New("token auth requires non-empty token")
		}
		// Any username works with personal access tokens.
		return &http.BasicAuth{Username: "git", Password: cfg.Token}, nil

	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, errors.New("ssh auth requires ssh_key_path")
		}
		info, err := os.Stat(cfg.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access SSH key file: %w", err)
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
		}
		auth, err := ssh.NewPublicKeysFromFile("git", cfg.SSHKeyPath, cfg.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return auth, nil

	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}
