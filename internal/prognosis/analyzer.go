package prognosis

import (
	"errors"
	"fmt"

	"github.com/user/netdiag/internal/model"
)

// ErrNoRecords is returned when there is nothing to analyze.
var ErrNoRecords = errors.New("no records to analyze")

// RecordSource is the part of the record store the analyzer reads from.
type RecordSource interface {
	List(pattern string) ([]model.RecordInfo, error)
	Load(name string) (model.LogRecord, error)
}

// Analyzer runs prognoses over stored records.
type Analyzer struct {
	records RecordSource
}

// NewAnalyzer creates an analyzer over records.
func NewAnalyzer(records RecordSource) *Analyzer {
	return &Analyzer{records: records}
}

// Latest returns up to n records, newest first. Non-positive n means all.
func (a *Analyzer) Latest(n int) ([]model.RecordInfo, error) {
	infos, err := a.records.List("")
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if n > 0 && len(infos) > n {
		infos = infos[:n]
	}
	return infos, nil
}

// AnalyzeRecord loads the named record and analyzes its output.
func (a *Analyzer) AnalyzeRecord(name string) (Prognosis, error) {
	rec, err := a.records.Load(name)
	if err != nil {
		return Prognosis{}, fmt.Errorf("failed to load record %s: %w", name, err)
	}
	p := Analyze(rec.Output)
	p.Source = name
	return p, nil
}

// AnalyzeLatest analyzes the most recent record.
func (a *Analyzer) AnalyzeLatest() (Prognosis, error) {
	infos, err := a.Latest(1)
	if err != nil {
		return Prognosis{}, err
	}
	if len(infos) == 0 {
		return Prognosis{}, ErrNoRecords
	}
	return a.AnalyzeRecord(infos[0].Name)
}
