package audit

import (
	"database/sql"
	"net"
	"time"

	"github.com/golang/glog"
)

// Internal single-char indication of the auditable actions
const (
	create  = `C`
	replace = `R`
	update  = `U`
	delete  = `D`
)

// Create records an insert/create/POST action
func Create(
	db *sql.DB,
	itemTypeID int64,
	itemID int64,
	userID int64,
	seen time.Time,
	ipAddress net.IP) {

	recordAction(db, itemTypeID, itemID, userID, seen, ipAddress, create)
}

// Replace records a full update/replace/PUT action
func Replace(
	db *sql.DB,
	itemTypeID int64,
	itemID int64,
	userID int64,
	seen time.Time,
	ipAddress net.IP) {

	recordAction(db, itemTypeID, itemID, userID, seen, ipAddress, replace)
}

// Update records a partial update action
func Update(
	db *sql.DB,
	itemTypeID int64,
	itemID int64,
	userID int64,
	seen time.Time,
	ipAddress net.IP) {

	recordAction(db, itemTypeID, itemID, userID, seen, ipAddress, update)
}

// Delete records a remove/DELETE action
func Delete(
	db *sql.DB,
	itemTypeID int64,
	itemID int64,
	userID int64,
	seen time.Time,
	ipAddress net.IP) {

	recordAction(db, itemTypeID, itemID, userID, seen, ipAddress, delete)
}

// recordAction actually appends to the audit log
func recordAction(
	db *sql.DB,
	itemTypeID int64,
	itemID int64,
	userID int64,
	seen time.Time,
	ipAddress net.IP,
	action string,
) {
	if db == nil {
		return
	}

	var ip sql.NullString
	if ipAddress != nil {
		ip = sql.NullString{String: ipAddress.String(), Valid: true}
	} else if glog.V(2) {
		glog.Infof("IP Address was nil for itemTypeId = %d", itemTypeID)
	}

	_, err := db.Exec(`-- Record audit action
INSERT INTO audit_log (
    item_type, item_id, user_id, seen, action, ip
) VALUES (
    $1, $2, $3, $4, $5, $6
)`,
		itemTypeID,
		itemID,
		userID,
		seen,
		action,
		ip,
	)
	if err != nil {
		glog.Error(err)
		return
	}
}
