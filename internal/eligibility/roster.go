package eligibility

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"vouch/internal/identity"
)

// Roster allows only pre-approved addresses. Matching is byte-exact on the
// string as submitted; the source roster is not case-normalized and neither is
// the lookup.
type Roster struct {
	emails map[string]struct{}
}

func NewRoster(emails []string) *Roster {
	set := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		set[email] = struct{}{}
	}
	return &Roster{emails: set}
}

// LoadRosterCSV reads the authorized-address roster from a CSV file with an
// "email" header column. A UTF-8 BOM on the first line is tolerated because
// exported spreadsheets routinely carry one.
func LoadRosterCSV(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return readRoster(f)
}

func readRoster(r io.Reader) (*Roster, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}
	column := -1
	for i, name := range header {
		if strings.TrimPrefix(name, "\ufeff") == "email" {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, fmt.Errorf("roster is missing an %q column", "email")
	}

	var emails []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster row: %w", err)
		}
		if email := record[column]; email != "" {
			emails = append(emails, email)
		}
	}
	return NewRoster(emails), nil
}

func (r *Roster) Eligible(_ context.Context, email string, _ identity.Community) (bool, error) {
	_, ok := r.emails[email]
	return ok, nil
}

// Contains is the raw membership test, exposed for roster seeding.
func (r *Roster) Contains(email string) bool {
	_, ok := r.emails[email]
	return ok
}

// Emails returns the roster contents for mirroring into a shared store.
func (r *Roster) Emails() []string {
	emails := make([]string, 0, len(r.emails))
	for email := range r.emails {
		emails = append(emails, email)
	}
	return emails
}
