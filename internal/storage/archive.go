package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/util"
)

// Archive saves records to the store and indexes them.
type Archive struct {
	*Store
	Index *Index
}

// OpenArchive opens the record store and history index named by cfg.
func OpenArchive(cfg *util.Config) (*Archive, error) {
	store, err := NewStore(cfg.RecordsDir)
	if err != nil {
		return nil, err
	}
	if err := util.EnsureDir(filepath.Dir(cfg.IndexPath)); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}
	idx, err := OpenIndex(cfg.IndexPath)
	if err != nil {
		return nil, err
	}
	return &Archive{Store: store, Index: idx}, nil
}

// SaveResult persists rec and indexes it with the metrics of res. The
// record files are the source of truth, so an index failure is logged and
// not returned.
func (a *Archive) SaveResult(rec model.LogRecord, res model.ProbeResult) (model.RecordInfo, error) {
	info, err := a.Store.Save(rec)
	if err != nil {
		return model.RecordInfo{}, err
	}

	entry := EntryFor(info, res)
	if err := a.Index.Add(&entry); err != nil {
		util.Warn("History index not updated for %s: %v", info.Name, err)
	}
	return info, nil
}

// Delete removes a record's files and its history row.
func (a *Archive) Delete(name string) error {
	info, err := a.find(name)
	if err != nil {
		return err
	}
	for _, path := range []string{info.TextPath, info.JSONPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return a.Index.Remove(info.Name)
}

// Reindex adds a history row for every stored record missing from the
// index. Rows built this way carry the saved kind and label but no metrics.
func (a *Archive) Reindex() (int, error) {
	infos, err := a.Store.List("")
	if err != nil {
		return 0, err
	}

	n := 0
	for _, info := range infos {
		if ok, err := a.Index.Has(info.Name); err != nil {
			return n, err
		} else if ok {
			continue
		}
		rec, err := a.Store.Load(info.Name)
		if err != nil {
			util.Warn("Skipping %s: %v", info.Name, err)
			continue
		}
		entry := model.HistoryEntry{
			Name:      info.Name,
			Title:     info.Title,
			Kind:      rec.Kind,
			Label:     rec.Label,
			Timestamp: info.Timestamp,
		}
		if err := a.Index.Add(&entry); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (a *Archive) find(name string) (model.RecordInfo, error) {
	if _, err := a.Store.Load(name); err != nil {
		return model.RecordInfo{}, err
	}
	name = strings.TrimSuffix(strings.TrimSuffix(filepath.Base(name), ".json"), ".txt")
	title, ts, _ := splitName(name)
	return a.Store.info(name, title, ts), nil
}

// Close closes the index.
func (a *Archive) Close() error {
	return a.Index.Close()
}
