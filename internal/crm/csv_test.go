package crm

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestImportContacts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	data := strings.Join([]string{
		"name,phone,email,tags,city",
		"Ana Silva,11999990000,ana@acme.test,vip;retail,Sao Paulo",
		"Bruno Costa,,bruno@acme.test,,",
		",11888880000,,,",
		"Carla Dias,,,,Campinas",
	}, "\n")

	result, err := svc.ImportContacts(ctx, "t1", strings.NewReader(data))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("expected 2 imported, got %d", result.Imported)
	}
	if result.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", result.Skipped)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 row errors, got %v", result.Errors)
	}

	contacts, err := svc.ListContacts(ctx, "t1", 1, 50, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(contacts))
	}
	var ana *Contact
	for _, c := range contacts {
		if c.Name == "Ana Silva" {
			ana = c
		}
		if c.Origin != OriginImport {
			t.Errorf("imported contact should have import origin, got %q", c.Origin)
		}
	}
	if ana == nil {
		t.Fatal("Ana Silva not imported")
	}
	if len(ana.Tags) != 2 || ana.Tags[0] != "vip" || ana.Tags[1] != "retail" {
		t.Fatalf("tags not parsed: %v", ana.Tags)
	}
	if ana.Custom["city"] != "Sao Paulo" {
		t.Fatalf("unknown column should land in custom fields: %v", ana.Custom)
	}
}

func TestImportContactsRequiresNameColumn(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.ImportContacts(context.Background(), "t1", strings.NewReader("phone,email\n1,a@b.test\n"))
	if err == nil {
		t.Fatal("expected error for missing name column")
	}
}

func TestExportContacts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c := seedContact(t, svc, "t1", "Ana Silva", "11999990000", "ana@acme.test")
	c.Tags = []string{"vip", "retail"}
	if err := svc.UpdateContact(ctx, c); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	seedContact(t, svc, "t2", "Other Tenant", "11888880000", "")

	var buf bytes.Buffer
	if err := svc.ExportContacts(ctx, "t1", &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "name,phone,email,document,address,tags,status" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Ana Silva") || !strings.Contains(lines[1], "vip;retail") {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestImportThenExportRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	in := "name,phone,email\nAna,11999990000,ana@acme.test\n"
	if _, err := svc.ImportContacts(ctx, "t1", strings.NewReader(in)); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var buf bytes.Buffer
	if err := svc.ExportContacts(ctx, "t1", &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Ana,11999990000,ana@acme.test") {
		t.Fatalf("exported data missing imported contact: %q", buf.String())
	}
}
