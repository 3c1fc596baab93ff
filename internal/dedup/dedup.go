// Package dedup renames telemetry shards from the transient names their
// producer writes (timestamp + host + process fields, unique only within one
// run) to canonical names carrying a freshly generated random token. The
// viewer's ingestion layer merges files by name, so shards from repeated runs
// collide unless renamed before ingestion.
//
// The rename is a claim-check: a single atomic os.Rename in the shard's own
// directory, never copy-then-delete. Content is never read or altered.
package dedup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNameCollision is returned when a canonical destination already exists.
var ErrNameCollision = errors.New("destination already exists")

// Config holds the filesystem naming contract.
type Config struct {
	// TransientPattern is a regular expression matched against base names.
	// The default matches the producer's timestamp-first scheme and cannot
	// match a canonical name (the uuid token always contains hyphens).
	TransientPattern string `yaml:"transient_pattern" json:"transient_pattern"`

	// CanonicalFormat receives the unique token and yields the destination
	// base name, <kind-prefix>.<token>.<static-suffix>.
	CanonicalFormat string `yaml:"canonical_format" json:"canonical_format"`
}

// DefaultConfig returns the shard naming contract for TensorBoard-style
// event files: events.out.tfevents.<ts>.<host>.<pid>.<seq> becomes
// events.out.tfevents.<uuid>.v2.
func DefaultConfig() Config {
	return Config{
		TransientPattern: `^events\.out\.tfevents\.\d+\.`,
		CanonicalFormat:  "events.out.tfevents.%s.v2",
	}
}

// Result summarizes one rename pass.
type Result struct {
	Matched int // transient shards found
	Renamed int // shards renamed (== Matched unless the pass aborted)
}

// Renamer performs the transient-to-canonical rename walk.
type Renamer struct {
	cfg     Config
	pattern *regexp.Regexp
	logger  *zap.Logger

	// newToken generates the unique token per file. uuid4 carries 122 bits
	// of randomness, collision-free in practice for the shard counts this
	// pipeline produces. Overridable in tests.
	newToken func() string
}

// New compiles the naming contract into a Renamer.
func New(cfg Config, logger *zap.Logger) (*Renamer, error) {
	if cfg.TransientPattern == "" {
		cfg = DefaultConfig()
	}
	pattern, err := regexp.Compile(cfg.TransientPattern)
	if err != nil {
		return nil, fmt.Errorf("compile transient pattern: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renamer{
		cfg:      cfg,
		pattern:  pattern,
		logger:   logger,
		newToken: uuid.NewString,
	}, nil
}

// Run walks root and renames every transient shard in place. The first
// failure aborts the walk; files already renamed stay renamed, and because
// canonical names no longer match the transient pattern, re-running the pass
// after fixing the fault picks up exactly where it stopped. Zero matches is
// a successful no-op.
func (r *Renamer) Run(root string) (Result, error) {
	var res Result
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !r.pattern.MatchString(info.Name()) {
			return nil
		}
		res.Matched++
		if _, err := r.renameOne(path); err != nil {
			return err
		}
		res.Renamed++
		return nil
	})
	if err != nil {
		return res, err
	}
	r.logger.Info("dedup pass complete",
		zap.String("root", root),
		zap.Int("matched", res.Matched),
		zap.Int("renamed", res.Renamed))
	return res, nil
}

// renameOne moves a single shard to its canonical name in the same directory.
func (r *Renamer) renameOne(path string) (string, error) {
	token := r.newToken()
	dest := filepath.Join(filepath.Dir(path), fmt.Sprintf(r.cfg.CanonicalFormat, token))
	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("rename %s: %w: %s", path, ErrNameCollision, dest)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", dest, err)
	}
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	r.logger.Debug("shard renamed",
		zap.String("from", path),
		zap.String("to", dest))
	return dest, nil
}
