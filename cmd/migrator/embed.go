package main

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// migrationFiles holds the SQL migrations compiled into the binary.
//
//go:embed *.sql
var migrationFiles embed.FS

// MigrationSource validates and serves the embedded migration files.
// Validation covers filename format, up/down pairing, sequence continuity
// and checksum integrity across repeated validation runs.
type MigrationSource struct {
	checksums map[string]string // filename -> checksum for integrity checking
}

// MigrationInfo contains parsed information about a migration file.
type MigrationInfo struct {
	Sequence  int
	Name      string
	Direction string // "up" or "down"
	Filename  string
}

// Migration filename format: 001_migration_name.up.sql or 001_migration_name.down.sql.
var migrationFilenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// NewMigrationSource creates a new embedded migration source.
func NewMigrationSource() *MigrationSource {
	return &MigrationSource{
		checksums: make(map[string]string),
	}
}

// List returns all embedded migration files that conform to the strict
// naming standard, sorted lexicographically. Invalid filenames are rejected
// to enforce consistency and prevent operational mistakes.
func (s *MigrationSource) List() ([]string, error) {
	entries, err := migrationFiles.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if filepath.Ext(filename) == ".sql" && migrationFilenameRegex.MatchString(filename) {
			files = append(files, filename)
		}
	}

	// Lexicographic sort works with the zero-padded naming standard
	sort.Strings(files)

	return files, nil
}

// Content returns the content of a specific embedded migration file.
func (s *MigrationSource) Content(filename string) ([]byte, error) {
	return migrationFiles.ReadFile(filename)
}

// Validate performs comprehensive validation of the embedded migration set:
// filename format, up/down pairing, sequence continuity and checksum
// integrity.
func (s *MigrationSource) Validate() error {
	files, err := s.List()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no migration files embedded")
	}

	if err := s.validateFilenames(files); err != nil {
		return err
	}

	if err := s.validatePairing(files); err != nil {
		return err
	}

	if err := s.validateSequence(files); err != nil {
		return err
	}

	if len(s.checksums) > 0 {
		if err := s.validateChecksums(files); err != nil {
			return err
		}
	}

	// Store checksums for future validation
	for _, file := range files {
		content, err := s.Content(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		s.checksums[file] = checksum(content)
	}

	return nil
}

// parseMigrationFilename parses a migration filename and extracts its components.
func parseMigrationFilename(filename string) (*MigrationInfo, error) {
	matches := migrationFilenameRegex.FindStringSubmatch(filename)
	if len(matches) != 4 {
		return nil, fmt.Errorf(
			"invalid migration filename format: %s (expected: 001_name.up.sql or 001_name.down.sql)",
			filename,
		)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid sequence number in filename %s: %w", filename, err)
	}

	return &MigrationInfo{
		Sequence:  sequence,
		Name:      matches[2],
		Direction: matches[3],
		Filename:  filename,
	}, nil
}

// validateFilenames validates that all migration files follow the naming convention.
func (s *MigrationSource) validateFilenames(files []string) error {
	for _, file := range files {
		if _, err := parseMigrationFilename(file); err != nil {
			return fmt.Errorf("filename validation failed for %s: %w", file, err)
		}
	}

	return nil
}

// validatePairing ensures every up migration has a corresponding down migration.
func (s *MigrationSource) validatePairing(files []string) error {
	migrations := make(map[string]map[string]*MigrationInfo) // sequence_name -> direction -> migration

	for _, file := range files {
		migration, err := parseMigrationFilename(file)
		if err != nil {
			return err // Caught earlier by filename validation
		}

		key := fmt.Sprintf("%03d_%s", migration.Sequence, migration.Name)
		if migrations[key] == nil {
			migrations[key] = make(map[string]*MigrationInfo)
		}

		migrations[key][migration.Direction] = migration
	}

	for key, directions := range migrations {
		if _, hasUp := directions["up"]; !hasUp {
			return fmt.Errorf("orphaned down migration: missing up migration for %s", key)
		}

		if _, hasDown := directions["down"]; !hasDown {
			return fmt.Errorf("orphaned up migration: missing down migration for %s", key)
		}
	}

	return nil
}

// validateSequence ensures there are no gaps in the migration sequence.
func (s *MigrationSource) validateSequence(files []string) error {
	sequences := make(map[int]bool)

	for _, file := range files {
		migration, err := parseMigrationFilename(file)
		if err != nil {
			return err // Caught earlier by filename validation
		}

		sequences[migration.Sequence] = true
	}

	var sequenceNumbers []int
	for seq := range sequences {
		sequenceNumbers = append(sequenceNumbers, seq)
	}

	sort.Ints(sequenceNumbers)

	if len(sequenceNumbers) == 0 {
		return nil
	}

	if sequenceNumbers[0] != 1 {
		return fmt.Errorf("migration sequence should start with 001, but found %03d", sequenceNumbers[0])
	}

	for i := 1; i < len(sequenceNumbers); i++ {
		expected := sequenceNumbers[i-1] + 1
		if sequenceNumbers[i] != expected {
			return fmt.Errorf("gap in migration sequence: expected %03d, found %03d", expected, sequenceNumbers[i])
		}
	}

	return nil
}

// checksum calculates the SHA256 checksum of content.
func checksum(content []byte) string {
	hash := sha256.Sum256(content)

	return fmt.Sprintf("%x", hash)
}

// validateChecksums verifies that migration files haven't changed since the
// last validation run.
func (s *MigrationSource) validateChecksums(files []string) error {
	for _, file := range files {
		content, err := s.Content(file)
		if err != nil {
			return fmt.Errorf("failed to read file %s for checksum validation: %w", file, err)
		}

		if stored, exists := s.checksums[file]; exists && checksum(content) != stored {
			return fmt.Errorf("checksum mismatch for %s: file has been modified", file)
		}
	}

	return nil
}
