// ABOUTME: Migration utility that backfills legacy owner fields into association arrays
// ABOUTME: Provides dry-run and backup capabilities for safe data migration

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/harperreed/hirepipe/config"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/models"
	"go.uber.org/zap"
)

func main() {
	dbPath := flag.String("db", config.DefaultDBPath(), "Path to database file")
	tenant := flag.String("tenant", "", "Only migrate this tenant (default: every tenant)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create backup before migration")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	logger, err := logging.New(*verbose)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := migrate(*dbPath, *tenant, *dryRun, *backup, os.Stdout, logger); err != nil {
		logger.Error("migration failed", zap.Error(err))
		log.Fatalf("Migration failed: %v", err)
	}
}

func migrate(dbPath, tenant string, dryRun, createBackup bool, out io.Writer, logger *zap.Logger) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database file does not exist: %s", dbPath)
	}

	if createBackup && !dryRun {
		backupPath := fmt.Sprintf("%s.backup.%s", dbPath, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(dbPath)
		if err != nil {
			return fmt.Errorf("failed to read database: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		fmt.Fprintf(out, "Backup created: %s\n", backupPath)
	}

	database, err := db.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	tenants := []string{tenant}
	if tenant == "" {
		tenants, err = db.ListTenants(database)
		if err != nil {
			return err
		}
	}

	for _, t := range tenants {
		report, err := backfillTenant(database, t, dryRun, logger)
		if err != nil {
			return fmt.Errorf("tenant %s: %w", t, err)
		}
		prefix := ""
		if dryRun {
			prefix = "[DRY RUN] would update "
		}
		fmt.Fprintf(out, "%s: %s%d contact(s), %d company(ies), %d deal(s)\n",
			t, prefix, report.Contacts, report.Companies, report.Deals)
	}
	return nil
}

// Report counts rows whose associations changed.
type Report struct {
	Contacts  int
	Companies int
	Deals     int
}

// backfillTenant copies legacy owner ids into associations.salespeople and
// the legacy contact companyId into associations.companies. Legacy fields
// are left in place; readers already honour both.
func backfillTenant(database *sql.DB, tenantID string, dryRun bool, logger *zap.Logger) (Report, error) {
	var report Report

	contacts, err := db.ListContacts(database, tenantID)
	if err != nil {
		return report, fmt.Errorf("failed to list contacts: %w", err)
	}
	for _, c := range contacts {
		assoc, changed := mergeOwners(c.Associations, c.LegacyOwners)
		if c.CompanyID != "" && !containsRef(assoc.Companies, c.CompanyID) {
			assoc.Companies = append(assoc.Companies, models.IDRef(c.CompanyID))
			changed = true
		}
		if !changed {
			continue
		}
		report.Contacts++
		logger.Debug("backfill contact", zap.String("id", c.ID.String()), zap.Bool("dry_run", dryRun))
		if dryRun {
			continue
		}
		if err := db.SetAssociations(database, db.TableContacts, tenantID, c.ID, assoc); err != nil {
			return report, err
		}
	}

	companies, err := db.ListCompanies(database, tenantID)
	if err != nil {
		return report, fmt.Errorf("failed to list companies: %w", err)
	}
	for _, c := range companies {
		assoc, changed := mergeOwners(c.Associations, c.LegacyOwners)
		if !changed {
			continue
		}
		report.Companies++
		logger.Debug("backfill company", zap.String("id", c.ID.String()), zap.Bool("dry_run", dryRun))
		if dryRun {
			continue
		}
		if err := db.SetAssociations(database, db.TableCompanies, tenantID, c.ID, assoc); err != nil {
			return report, err
		}
	}

	deals, err := db.ListDeals(database, tenantID)
	if err != nil {
		return report, fmt.Errorf("failed to list deals: %w", err)
	}
	for _, d := range deals {
		assoc, changed := mergeOwners(d.Associations, d.LegacyOwners)
		if !changed {
			continue
		}
		report.Deals++
		logger.Debug("backfill deal", zap.String("id", d.ID.String()), zap.Bool("dry_run", dryRun))
		if dryRun {
			continue
		}
		if err := db.SetAssociations(database, db.TableDeals, tenantID, d.ID, assoc); err != nil {
			return report, err
		}
	}

	return report, nil
}

// mergeOwners appends legacy owner ids missing from salespeople.
func mergeOwners(assoc models.Associations, legacy models.LegacyOwners) (models.Associations, bool) {
	changed := false
	for _, id := range legacy.LegacyIDs() {
		if containsRef(assoc.Salespeople, id) {
			continue
		}
		assoc.Salespeople = append(assoc.Salespeople, models.IDRef(id))
		changed = true
	}
	return assoc, changed
}

func containsRef(refs []models.Ref, id string) bool {
	for _, r := range refs {
		if r.Key() == id {
			return true
		}
	}
	return false
}
