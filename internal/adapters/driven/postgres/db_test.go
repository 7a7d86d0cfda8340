package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestNullString(t *testing.T) {
	if NullString(nil).Valid {
		t.Error("expected nil to map to NULL")
	}
	s := "text"
	ns := NullString(&s)
	if !ns.Valid || ns.String != "text" {
		t.Errorf("expected valid text, got %+v", ns)
	}

	back := StringPtr(ns)
	if back == nil || *back != "text" {
		t.Errorf("expected round trip, got %v", back)
	}
	if StringPtr(NullString(nil)) != nil {
		t.Error("expected NULL to map to nil")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505"}
	if !IsUniqueViolation(dup) {
		t.Error("expected 23505 to be a unique violation")
	}
	if !IsUniqueViolation(fmt.Errorf("insert: %w", dup)) {
		t.Error("expected wrapped violation to be detected")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("expected foreign key violation not to match")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Error("expected plain error not to match")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("postgres://localhost/db")
	if cfg.URL != "postgres://localhost/db" {
		t.Errorf("unexpected URL %s", cfg.URL)
	}
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 5 {
		t.Errorf("unexpected pool sizes %+v", cfg)
	}
}

func TestSchemaEmbedded(t *testing.T) {
	if schema == "" {
		t.Fatal("expected embedded schema")
	}
}
