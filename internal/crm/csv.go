package crm

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ImportResult summarizes a bulk contact import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// importErrorLimit caps how many per-row messages an import reports back.
const importErrorLimit = 20

// ImportContacts reads CSV data and bulk-creates contacts for the tenant.
// The header row maps columns by name; "name" is required, and every row
// needs a phone or an email. Unknown columns land in the contact's custom
// field map. Rows that fail validation are skipped, not fatal.
func (s *Service) ImportContacts(ctx context.Context, tenantID string, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["name"]; !ok {
		return ImportResult{}, fmt.Errorf("csv header missing required column %q", "name")
	}

	known := map[string]bool{
		"name": true, "phone": true, "email": true,
		"document": true, "address": true, "tags": true,
	}
	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var result ImportResult
	var batch []*Contact
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped++
			if len(result.Errors) < importErrorLimit {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			}
			continue
		}

		c := &Contact{
			TenantID: tenantID,
			Name:     field(row, "name"),
			Phone:    field(row, "phone"),
			Email:    strings.ToLower(field(row, "email")),
			Document: field(row, "document"),
			Address:  field(row, "address"),
			Origin:   OriginImport,
			Status:   ContactActive,
		}
		if tags := field(row, "tags"); tags != "" {
			for _, t := range strings.Split(tags, ";") {
				if t = strings.TrimSpace(t); t != "" {
					c.Tags = append(c.Tags, t)
				}
			}
		}
		for name, i := range cols {
			if known[name] || i >= len(row) {
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				if c.Custom == nil {
					c.Custom = make(map[string]string)
				}
				c.Custom[name] = v
			}
		}

		if c.Name == "" {
			result.Skipped++
			if len(result.Errors) < importErrorLimit {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing name", line))
			}
			continue
		}
		if c.Phone == "" && c.Email == "" {
			result.Skipped++
			if len(result.Errors) < importErrorLimit {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing phone and email", line))
			}
			continue
		}
		batch = append(batch, c)
	}

	if len(batch) > 0 {
		if err := s.store.Contacts().BulkCreate(ctx, batch); err != nil {
			return result, err
		}
		result.Imported = len(batch)
	}
	return result, nil
}

// ExportContacts writes the tenant's contacts as CSV.
func (s *Service) ExportContacts(ctx context.Context, tenantID string, w io.Writer) error {
	contacts, err := s.store.Contacts().List(ctx, tenantID, statsFetchLimit, 0)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"name", "phone", "email", "document", "address", "tags", "status"}); err != nil {
		return err
	}
	for _, c := range contacts {
		row := []string{
			c.Name, c.Phone, c.Email, c.Document, c.Address,
			strings.Join(c.Tags, ";"), string(c.Status),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
