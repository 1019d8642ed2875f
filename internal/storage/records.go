// Package storage persists diagnosis records and their history index.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/util"
)

// ErrNotFound is returned when a named record does not exist.
var ErrNotFound = errors.New("record not found")

// recordFile is the on-disk JSON shape of a record.
type recordFile struct {
	Title     string          `json:"title"`
	Timestamp string          `json:"timestamp"`
	Output    string          `json:"output"`
	Kind      model.ProbeKind `json:"kind,omitempty"`
	Label     model.Label     `json:"label,omitempty"`
}

// Store keeps records as <title>_<timestamp>.txt and .json pairs in a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it when needed.
func NewStore(dir string) (*Store, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create records dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// RecordName returns the base file name for a title saved at ts.
func RecordName(title string, ts time.Time) string {
	title = util.SanitizeTitle(title)
	if title == "" {
		title = "result"
	}
	return fmt.Sprintf("%s_%s", title, ts.Format(model.RecordTimeLayout))
}

// Save writes both files of rec. A record saved twice within the same
// second under the same title replaces the earlier one.
func (s *Store) Save(rec model.LogRecord) (model.RecordInfo, error) {
	ts := rec.Timestamp.Truncate(time.Second)
	name := RecordName(rec.Title, ts)
	info := s.info(name, strings.TrimSuffix(name, "_"+ts.Format(model.RecordTimeLayout)), ts)

	data, err := json.MarshalIndent(recordFile{
		Title:     rec.Title,
		Timestamp: ts.Format(model.RecordTimeLayout),
		Output:    rec.Output,
		Kind:      rec.Kind,
		Label:     rec.Label,
	}, "", "  ")
	if err != nil {
		return model.RecordInfo{}, fmt.Errorf("failed to encode record: %w", err)
	}

	if err := os.WriteFile(info.TextPath, []byte(rec.Output), 0644); err != nil {
		return model.RecordInfo{}, fmt.Errorf("failed to write %s: %w", info.TextPath, err)
	}
	if err := os.WriteFile(info.JSONPath, data, 0644); err != nil {
		// A record is both files or neither.
		os.Remove(info.TextPath)
		return model.RecordInfo{}, fmt.Errorf("failed to write %s: %w", info.JSONPath, err)
	}

	util.Debug("Saved record %s", name)
	return info, nil
}

// List returns the stored records whose title matches pattern, newest
// first. An empty pattern matches everything. Patterns use doublestar
// syntax, for example "latency_*" or "{ping,gateway-ping}*".
func (s *Store) List(pattern string) ([]model.RecordInfo, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(s.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	infos := make([]model.RecordInfo, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(m, ".json")
		title, ts, ok := splitName(name)
		if !ok {
			continue
		}
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, title); !ok {
				continue
			}
		}
		infos = append(infos, s.info(name, title, ts))
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].Timestamp.Equal(infos[j].Timestamp) {
			return infos[i].Timestamp.After(infos[j].Timestamp)
		}
		return infos[i].Name > infos[j].Name
	})
	return infos, nil
}

// Load reads the named record. The name may carry a .json or .txt suffix.
// When the JSON file is unreadable the text file is used.
func (s *Store) Load(name string) (model.LogRecord, error) {
	name = strings.TrimSuffix(strings.TrimSuffix(filepath.Base(name), ".json"), ".txt")
	title, ts, ok := splitName(name)
	if !ok {
		return model.LogRecord{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	info := s.info(name, title, ts)

	data, err := os.ReadFile(info.JSONPath)
	if err == nil {
		var f recordFile
		jerr := json.Unmarshal(data, &f)
		if jerr == nil {
			return model.LogRecord{
				Title:     f.Title,
				Timestamp: ts,
				Output:    f.Output,
				Kind:      f.Kind,
				Label:     f.Label,
			}, nil
		}
		util.Warn("Record %s has unreadable JSON, falling back to text: %v", name, jerr)
	}

	text, terr := os.ReadFile(info.TextPath)
	if terr != nil {
		if errors.Is(terr, os.ErrNotExist) && (err == nil || errors.Is(err, os.ErrNotExist)) {
			return model.LogRecord{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return model.LogRecord{}, fmt.Errorf("failed to read record %s: %w", name, terr)
	}
	return model.LogRecord{Title: title, Timestamp: ts, Output: string(text)}, nil
}

func (s *Store) info(name, title string, ts time.Time) model.RecordInfo {
	return model.RecordInfo{
		Name:      name,
		Title:     title,
		Timestamp: ts,
		TextPath:  filepath.Join(s.dir, name+".txt"),
		JSONPath:  filepath.Join(s.dir, name+".json"),
	}
}

// splitName separates "<title>_<timestamp>" into its parts.
func splitName(name string) (string, time.Time, bool) {
	n := len(model.RecordTimeLayout)
	if len(name) < n+2 || name[len(name)-n-1] != '_' {
		return "", time.Time{}, false
	}
	ts, err := time.ParseInLocation(model.RecordTimeLayout, name[len(name)-n:], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return name[:len(name)-n-1], ts, true
}
