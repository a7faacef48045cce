// File: internal/declarations/scan.go
// Brief: Collects stack names recorded in local declaration files.

package declarations

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/stackguard/internal/changeset"
	"github.com/example/stackguard/internal/check"
	"github.com/moby/patternmatcher"
)

// DefaultExcludes are skipped unless Options.Exclude is set explicitly.
var DefaultExcludes = []string{".git", "node_modules"}

const sniffLen = 8 * 1024

// Options tune a scan.
type Options struct {
	// Key is the declaration key; lines must start with "<Key>:".
	Key string
	// Exclude holds Docker-style patterns relative to the scan root.
	Exclude []string
}

// Scan walks root and returns every stack name declared by a line that
// literally starts with "stack_name:". Indented or commented lines do not count.
func Scan(ctx context.Context, root string, opts Options) (check.NameSet, error) {
	names := check.NewNameSet()
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = changeset.DefaultStackNameKey
	}
	prefix := []byte(key + ":")
	excludes := opts.Exclude
	if excludes == nil {
		excludes = DefaultExcludes
	}
	matcher, err := patternmatcher.New(excludes)
	if err != nil {
		return names, fmt.Errorf("parse exclude patterns: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return names, fmt.Errorf("scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return names, fmt.Errorf("scan root %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel != "." {
			skip, err := matcher.MatchesOrParentMatches(filepath.ToSlash(rel))
			if err != nil {
				return fmt.Errorf("match %s: %w", rel, err)
			}
			if skip {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return names, err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return names, err
		}
		found, err := scanFile(path, prefix)
		if err != nil {
			return names, err
		}
		for _, name := range found {
			names.Add(name)
		}
	}
	return names, nil
}

func scanFile(path string, prefix []byte) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	reader := bufio.NewReader(f)
	head, err := reader.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return nil, nil
	}
	var found []string
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, prefix) {
			continue
		}
		found = append(found, changeset.TrimValue(string(line[len(prefix):])))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return found, nil
}
