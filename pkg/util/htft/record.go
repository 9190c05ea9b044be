package htft

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

// Compile-time check to ensure MatchRecord implements Persistable interface
var _ Persistable = (*MatchRecord)(nil)

// Row is one raw line of a match log as loaded from a source table
type Row struct {
	MatchID       string `json:"matchId"`
	RawResultText string `json:"rawResultText"`
}

// MatchRecord is one match of the historical log with database persistence
// annotations. Records with an empty score never reach the scanner.
type MatchRecord struct {
	// Position in the sequence the record was built from
	Seq int `json:"seq" column:"seq" dbtype:"INTEGER NOT NULL" primary:"true"`

	MatchID       string `json:"matchId" column:"matchId" dbtype:"TEXT NOT NULL" index:"true"`
	RawResultText string `json:"rawResultText" column:"rawResultText" dbtype:"TEXT"`

	// Derived from RawResultText, empty when the text could not be parsed
	FirstHalfScore string `json:"firstHalfScore" column:"firstHalfScore" dbtype:"TEXT" index:"true"`
	FullTimeScore  string `json:"fullTimeScore" column:"fullTimeScore" dbtype:"TEXT" index:"true"`
}

// NewMatchRecord builds a record from a raw row, deriving both scores
func NewMatchRecord(seq int, row Row) (*MatchRecord, error) {
	m := &MatchRecord{Seq: seq, MatchID: row.MatchID, RawResultText: row.RawResultText}
	if err := m.ProcessResult(); err != nil {
		return m, err
	}
	return m, nil
}

// ProcessResult derives FirstHalfScore and FullTimeScore from the raw text.
// Both are cleared when the text cannot be used.
func (m *MatchRecord) ProcessResult() error {
	firstHalf, fullTime, err := ExtractResult(m.RawResultText)
	if err != nil {
		m.FirstHalfScore, m.FullTimeScore = "", ""
		return err
	}
	m.FirstHalfScore, m.FullTimeScore = firstHalf, fullTime
	return nil
}

// IsValid is true when both scores are present
func (m *MatchRecord) IsValid() bool {
	return m.FirstHalfScore != "" && m.FullTimeScore != ""
}

// FullTime parses the full-time score
func (m *MatchRecord) FullTime() (ScorePair, error) {
	return ParseScorePair(m.FullTimeScore)
}

// Row returns the raw row the record was built from
func (m *MatchRecord) Row() Row {
	return Row{MatchID: m.MatchID, RawResultText: m.RawResultText}
}

func (m *MatchRecord) String() string {
	return fmt.Sprintf("%s [%s / %s]", m.MatchID, m.FirstHalfScore, m.FullTimeScore)
}

// ToJSON serializes the record to JSON bytes
func (m *MatchRecord) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

/////////////////////////////////////////////////////////////////////////
////// Persistable Interface Implementation
/////////////////////////////////////////////////////////////////////////

// GetPrimaryKey returns the primary key as a map
func (m *MatchRecord) GetPrimaryKey() map[string]any {
	return map[string]any{
		"seq": m.Seq,
	}
}

// GetTableName returns the table name for match records
func (m *MatchRecord) GetTableName() string {
	return "match_record"
}

// BeforeSave derives the scores so the stored columns always agree with the raw text
func (m *MatchRecord) BeforeSave() error {
	if m.MatchID == "" {
		return fmt.Errorf("match record %d has no match id", m.Seq)
	}
	// unparseable rows are stored as well, the import keeps the log intact
	_ = m.ProcessResult()
	return nil
}

// AfterSave is called after saving the record
func (m *MatchRecord) AfterSave() error {
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// Record Collection Operations
/////////////////////////////////////////////////////////////////////////

// Chronological returns a reversed copy of rows. Match logs list the most
// recent match first; every analysis runs oldest first.
func Chronological(rows []Row) []Row {
	out := append([]Row(nil), rows...)
	return lo.Reverse(out)
}

// CleanStats summarises what CleanRecords dropped
type CleanStats struct {
	Total     int `json:"total"`
	Kept      int `json:"kept"`
	NoResult  int `json:"noResult"`
	Malformed int `json:"malformed"`
}

func persistables(records []*MatchRecord) []Persistable {
	return lo.Map(records, func(r *MatchRecord, _ int) Persistable { return r })
}

// SaveMatchRecords persists records to the store in one transaction
func (s *Store) SaveMatchRecords(records []*MatchRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.BulkSave(persistables(records)); err != nil {
		return fmt.Errorf("failed to bulk save match records: %w", err)
	}
	return nil
}

// ReplaceMatchRecords replaces every stored record with records atomically
func (s *Store) ReplaceMatchRecords(records []*MatchRecord) error {
	if err := s.ReplaceAll(&MatchRecord{}, persistables(records)); err != nil {
		return fmt.Errorf("failed to replace match records: %w", err)
	}
	return nil
}

// LoadMatchRecords reads every stored record in sequence order
func (s *Store) LoadMatchRecords() ([]*MatchRecord, error) {
	results, err := s.FindAll(&MatchRecord{}, "seq ASC")
	if err != nil {
		return nil, err
	}
	records := make([]*MatchRecord, 0, len(results))
	for _, r := range results {
		if rec, ok := r.(*MatchRecord); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}
