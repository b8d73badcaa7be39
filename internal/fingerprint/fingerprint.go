// Package fingerprint computes deterministic digests of task unit directories.
//
// A fingerprint covers the relative directory structure and the byte content
// of every readable file. File timestamps, permissions and traversal order do
// not affect it: every entry is collected first and the entries are sorted
// before they are combined.
//
// Entry format:
//
//	DIR:<relative path>                   for every directory below the root
//	FILE:<relative path>:<content digest> for every readable file
//
// Relative paths always use "/" separators. With AlgorithmMD5 the result
// matches fingerprints produced by earlier registry tooling.
package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoContent is returned when the root does not exist or holds no entries.
var ErrNoContent = errors.New("fingerprint: no content")

// DefaultExclude lists directory names skipped at every depth.
var DefaultExclude = []string{"__pycache__", ".git", ".vscode"}

// Algorithm selects the digest used for file contents and the final combination.
type Algorithm string

const (
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA256 Algorithm = "sha256"
)

// ParseAlgorithm validates an algorithm name. The empty string selects MD5.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", AlgorithmMD5:
		return AlgorithmMD5, nil
	case AlgorithmSHA256:
		return AlgorithmSHA256, nil
	}
	return "", fmt.Errorf("unknown fingerprint algorithm %q: must be md5 or sha256", name)
}

func (a Algorithm) newHash() hash.Hash {
	if a == AlgorithmSHA256 {
		return sha256.New()
	}
	return md5.New()
}

// HexLen returns the length of a hex digest produced by the algorithm.
func (a Algorithm) HexLen() int {
	return a.newHash().Size() * 2
}

// Service computes and verifies directory fingerprints.
type Service struct {
	Algorithm Algorithm
}

// New creates a Service using algo.
func New(algo Algorithm) *Service {
	return &Service{Algorithm: algo}
}

// Fingerprint returns the hex digest of root. Directories whose base name is
// in exclude are skipped together with their contents. Unreadable files are
// left out. ErrNoContent is returned when nothing could be collected.
func (s *Service) Fingerprint(root string, exclude []string) (string, error) {
	entries, err := s.Entries(root, exclude)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoContent
	}

	combined := s.Algorithm.newHash()
	for _, e := range entries {
		io.WriteString(combined, e)
	}
	return hex.EncodeToString(combined.Sum(nil)), nil
}

// Verify reports whether root's current fingerprint equals expected.
// Hex case is ignored. A root without content never verifies.
func (s *Service) Verify(root, expected string, exclude []string) (bool, error) {
	actual, err := s.Fingerprint(root, exclude)
	if errors.Is(err, ErrNoContent) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, strings.TrimSpace(expected)), nil
}

// Entries returns the sorted structure and content entries for root.
func (s *Service) Entries(root string, exclude []string) ([]string, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoContent
	}
	if err != nil {
		return nil, fmt.Errorf("fingerprint: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fingerprint: %s is not a directory", root)
	}

	var entries []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			slog.Debug("fingerprint: skipping unreadable entry", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if slices.Contains(exclude, d.Name()) {
				return filepath.SkipDir
			}
			entries = append(entries, "DIR:"+rel)
			return nil
		}

		sum, ok := s.fileDigest(path)
		if !ok {
			return nil
		}
		entries = append(entries, "FILE:"+rel+":"+sum)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fingerprint: walk %s: %w", root, err)
	}

	slices.Sort(entries)
	return entries, nil
}

// fileDigest hashes a regular file or a symlink to one. Symlinks to
// directories are not followed.
func (s *Service) fileDigest(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		slog.Debug("fingerprint: skipping unreadable file", "path", path, "error", err)
		return "", false
	}
	defer f.Close()

	h := s.Algorithm.newHash()
	if _, err := io.Copy(h, f); err != nil {
		slog.Debug("fingerprint: skipping unreadable file", "path", path, "error", err)
		return "", false
	}
	return hex.EncodeToString(h.Sum(nil)), true
}
