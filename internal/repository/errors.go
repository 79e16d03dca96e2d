// Package repository holds the MySQL implementations of the concert,
// ticket and order stores.  Lookups that find nothing return the
// sentinels from package model so the domain packages can match them
// with errors.Is regardless of the backend that is wired.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
