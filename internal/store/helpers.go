package store

import (
	"database/sql"
	"fmt"

	"github.com/olkaphoto/concierge/internal/models"
)

// orDefault returns s, or def when s is empty.
// Used for JSON blob columns of rows that do not exist yet.
func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// scanLeads reads lead rows in the shared column order.
func scanLeads(rows *sql.Rows) ([]models.Lead, error) {
	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		var level, albumType, contactMethod string
		err := rows.Scan(&l.SubmittedAt, &l.UserID, &level, &l.OrgNumber, &albumType,
			&l.CountChildren, &contactMethod, &l.Contact, &l.Username, &l.FullName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		l.Level = models.Level(level)
		l.AlbumType = models.AlbumType(albumType)
		l.ContactMethod = models.ContactMethod(contactMethod)
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	return leads, nil
}
