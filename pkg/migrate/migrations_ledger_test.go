package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLedgerMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_credit_ledgers.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no credit ledger migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS credit_ledgers",
		"CHECK (small_credits >= 0)",
		"CHECK (medium_credits >= 0)",
		"CHECK (large_credits >= 0)",
		"CHECK (total_available = small_credits + medium_credits + large_credits)",
		"DROP TABLE IF EXISTS credit_ledgers",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEachTableIsCreatedByExactlyOneMigration(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}

	tables := []string{
		"credit_ledgers", "credit_packs", "purchases", "debit_events",
		"wallets", "wallet_entries", "withdrawal_requests",
		"withdrawal_transitions", "outbox_events",
	}
	counts := make(map[string]int, len(tables))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		content := string(data)
		for _, table := range tables {
			counts[table] += strings.Count(content, "CREATE TABLE IF NOT EXISTS "+table+" ")
		}
	}
	for _, table := range tables {
		if counts[table] != 1 {
			t.Errorf("table %s created by %d migrations, want 1", table, counts[table])
		}
	}
}

func TestDebitMigrationNamesDoubtUniqueIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_debit_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no debit events migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}

	// internal/debits keys its race fallback on this exact index name.
	if !strings.Contains(string(data), "CREATE UNIQUE INDEX IF NOT EXISTS idx_debit_events_doubt_id") {
		t.Error("missing unique index idx_debit_events_doubt_id on debit_events")
	}
}

func TestWalletMigrationReservesAgainstBalance(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_wallets.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no wallet migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CHECK (reserved_paise <= balance_paise)",
		"FOREIGN KEY (wallet_id) REFERENCES wallets(id) ON DELETE CASCADE",
		"CHECK (type IN ('earning', 'reserve', 'release', 'payout'))",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
