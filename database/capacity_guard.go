package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/reservation-app/utils"
	"gorm.io/gorm"
)

// capacityExceededMarker is the message every dialect's trigger raises.
const capacityExceededMarker = "capacity_exceeded"

var ErrCapacityExceeded = errors.New("table capacity exceeded")

// On mysql and postgres the guard locks the seating row before summing, so
// concurrent writers on one table are checked one after another.
//
// The guard skips updates that cannot grow a table's allocation, so editing
// price or end time on a table whose capacity was later reduced still works.
var sqliteGuard = []string{
	`DROP TRIGGER IF EXISTS trg_reservation_capacity_insert`,
	`DROP TRIGGER IF EXISTS trg_reservation_capacity_update`,
	`CREATE TRIGGER trg_reservation_capacity_insert
BEFORE INSERT ON reservations
WHEN NEW.status = 'confirmed' AND NEW.table_id IS NOT NULL
BEGIN
	SELECT RAISE(ABORT, 'capacity_exceeded')
	WHERE NEW.guest_count + COALESCE((SELECT SUM(guest_count) FROM reservations
		WHERE table_id = NEW.table_id AND status = 'confirmed' AND id <> NEW.id), 0)
		> COALESCE((SELECT capacity FROM restaurant_seating WHERE id = NEW.table_id), 0);
END`,
	`CREATE TRIGGER trg_reservation_capacity_update
BEFORE UPDATE ON reservations
WHEN NEW.status = 'confirmed' AND NEW.table_id IS NOT NULL
	AND (OLD.status <> 'confirmed' OR OLD.table_id IS NULL OR OLD.table_id <> NEW.table_id
		OR NEW.guest_count > OLD.guest_count)
BEGIN
	SELECT RAISE(ABORT, 'capacity_exceeded')
	WHERE NEW.guest_count + COALESCE((SELECT SUM(guest_count) FROM reservations
		WHERE table_id = NEW.table_id AND status = 'confirmed' AND id <> NEW.id), 0)
		> COALESCE((SELECT capacity FROM restaurant_seating WHERE id = NEW.table_id), 0);
END`,
}

const mysqlGuardBody = `
BEGIN
	DECLARE allocated INT DEFAULT 0;
	DECLARE seats INT DEFAULT 0;
	IF NEW.status = 'confirmed' AND NEW.table_id IS NOT NULL %s THEN
		SELECT capacity INTO seats FROM restaurant_seating WHERE id = NEW.table_id FOR UPDATE;
		SELECT COALESCE(SUM(guest_count), 0) INTO allocated FROM reservations
			WHERE table_id = NEW.table_id AND status = 'confirmed' AND id <> NEW.id FOR UPDATE;
		IF allocated + NEW.guest_count > seats THEN
			SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'capacity_exceeded';
		END IF;
	END IF;
END`

var mysqlGuard = []string{
	`DROP TRIGGER IF EXISTS trg_reservation_capacity_insert`,
	`DROP TRIGGER IF EXISTS trg_reservation_capacity_update`,
	`CREATE TRIGGER trg_reservation_capacity_insert BEFORE INSERT ON reservations FOR EACH ROW` +
		fmt.Sprintf(mysqlGuardBody, ""),
	`CREATE TRIGGER trg_reservation_capacity_update BEFORE UPDATE ON reservations FOR EACH ROW` +
		fmt.Sprintf(mysqlGuardBody, `AND (OLD.status <> 'confirmed' OR OLD.table_id IS NULL
			OR OLD.table_id <> NEW.table_id OR NEW.guest_count > OLD.guest_count)`),
}

var postgresGuard = []string{
	`CREATE OR REPLACE FUNCTION reservation_capacity_guard() RETURNS trigger AS $$
DECLARE
	allocated INT;
	seats INT;
BEGIN
	IF NEW.status <> 'confirmed' OR NEW.table_id IS NULL THEN
		RETURN NEW;
	END IF;
	IF TG_OP = 'UPDATE' AND OLD.status = 'confirmed' AND OLD.table_id IS NOT DISTINCT FROM NEW.table_id
		AND NEW.guest_count <= OLD.guest_count THEN
		RETURN NEW;
	END IF;
	SELECT capacity INTO seats FROM restaurant_seating WHERE id = NEW.table_id FOR UPDATE;
	seats := COALESCE(seats, 0);
	SELECT COALESCE(SUM(guest_count), 0) INTO allocated FROM reservations
		WHERE table_id = NEW.table_id AND status = 'confirmed' AND id <> NEW.id;
	IF allocated + NEW.guest_count > seats THEN
		RAISE EXCEPTION 'capacity_exceeded';
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_reservation_capacity ON reservations`,
	`CREATE TRIGGER trg_reservation_capacity BEFORE INSERT OR UPDATE ON reservations
	FOR EACH ROW EXECUTE FUNCTION reservation_capacity_guard()`,
}

// InstallCapacityGuard installs the triggers that reject any write leaving a
// table with more confirmed guests than seats. It is safe to run on every
// start.
func InstallCapacityGuard(db *gorm.DB) error {
	var statements []string
	switch db.Dialector.Name() {
	case "sqlite":
		statements = sqliteGuard
	case "mysql":
		statements = mysqlGuard
	case "postgres":
		statements = postgresGuard
	default:
		return fmt.Errorf("capacity guard: unsupported dialect %q", db.Dialector.Name())
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			utils.ErrorLogger.Errorf("Error executing capacity guard statement: %v", err)
			return fmt.Errorf("capacity guard: %w", err)
		}
	}

	utils.InfoLogger.Infof("Capacity guard installed (%d triggers)", countGuardTriggers(db))
	return nil
}

func countGuardTriggers(db *gorm.DB) int64 {
	var count int64
	switch db.Dialector.Name() {
	case "sqlite":
		db.Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND name LIKE 'trg_reservation_capacity%'`).Scan(&count)
	case "mysql":
		db.Raw(`SELECT COUNT(*) FROM information_schema.triggers
			WHERE TRIGGER_SCHEMA = DATABASE() AND TRIGGER_NAME LIKE 'trg_reservation_capacity%'`).Scan(&count)
	case "postgres":
		db.Raw(`SELECT COUNT(*) FROM pg_trigger WHERE tgname LIKE 'trg_reservation_capacity%'`).Scan(&count)
	}
	return count
}

// TranslateError maps a trigger rejection onto ErrCapacityExceeded and
// returns every other error unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCapacityExceeded) {
		return err
	}
	if strings.Contains(err.Error(), capacityExceededMarker) {
		return fmt.Errorf("%w: %v", ErrCapacityExceeded, err)
	}
	return err
}
