package main

import (
	"strings"
	"testing"
)

func TestMigrationSource_List(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	source := NewMigrationSource()

	files, err := source.List()
	if err != nil {
		t.Fatalf("failed to list embedded migrations: %v", err)
	}

	if len(files) == 0 {
		t.Fatal("expected at least one embedded migration")
	}

	for _, file := range files {
		if !migrationFilenameRegex.MatchString(file) {
			t.Errorf("listed file %q does not match the naming standard", file)
		}
	}

	// Lexicographic order with zero-padded sequence numbers
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("files not sorted: %q before %q", files[i-1], files[i])
		}
	}
}

func TestMigrationSource_Validate(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	source := NewMigrationSource()

	if err := source.Validate(); err != nil {
		t.Fatalf("embedded migration set failed validation: %v", err)
	}

	// Second run exercises the checksum comparison path
	if err := source.Validate(); err != nil {
		t.Fatalf("revalidation failed: %v", err)
	}
}

func TestMigrationSource_Content(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	source := NewMigrationSource()

	content, err := source.Content("001_create_raw_leads.up.sql")
	if err != nil {
		t.Fatalf("failed to read embedded migration: %v", err)
	}

	if !strings.Contains(string(content), "raw_leads") {
		t.Error("expected the up migration to create raw_leads")
	}

	if _, err := source.Content("999_missing.up.sql"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	t.Run("valid up migration", func(t *testing.T) {
		info, err := parseMigrationFilename("001_create_raw_leads.up.sql")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if info.Sequence != 1 || info.Name != "create_raw_leads" || info.Direction != "up" {
			t.Errorf("unexpected parse result: %+v", info)
		}
	})

	t.Run("valid down migration", func(t *testing.T) {
		info, err := parseMigrationFilename("042_add_indexes.down.sql")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if info.Sequence != 42 || info.Direction != "down" {
			t.Errorf("unexpected parse result: %+v", info)
		}
	})

	t.Run("invalid filenames", func(t *testing.T) {
		invalid := []string{
			"1_short_sequence.up.sql",
			"0001_long_sequence.up.sql",
			"001_bad-chars.up.sql",
			"001_missing_direction.sql",
			"001_wrong_direction.sideways.sql",
			"notamigration.sql",
		}

		for _, filename := range invalid {
			if _, err := parseMigrationFilename(filename); err == nil {
				t.Errorf("expected %q to be rejected", filename)
			}
		}
	})
}

func TestChecksum_Deterministic(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	a := checksum([]byte("CREATE TABLE t (id int);"))
	b := checksum([]byte("CREATE TABLE t (id int);"))
	c := checksum([]byte("CREATE TABLE t (id bigint);"))

	if a != b {
		t.Error("expected identical content to produce identical checksums")
	}

	if a == c {
		t.Error("expected different content to produce different checksums")
	}
}
