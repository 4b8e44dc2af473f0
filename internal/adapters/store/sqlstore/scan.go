package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

// timeLayouts are tried in order when a driver returns timestamps as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// timestamp scans time.Time values as well as their text encodings.
type timestamp struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false

		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true

		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case int64:
		t.Time, t.Valid = time.Unix(0, v).UTC(), true

		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed.UTC(), true

			return nil
		}
	}

	return fmt.Errorf("unrecognized timestamp %q", s)
}

func scanRevision(row rowScanner) (*domain.QuoteRevision, error) {
	var (
		rev        domain.QuoteRevision
		parentID   sql.NullString
		bundleID   sql.NullString
		status     string
		validUntil timestamp
		total      string
		final      string
		discount   string
		items      sql.NullString
		createdAt  timestamp
		updatedAt  timestamp
	)

	err := row.Scan(
		&rev.ID, &rev.TenantID, &rev.RootID, &parentID, &rev.VersionNumber, &bundleID,
		&rev.IsBundleContainer, &rev.IsActive, &status, &rev.QuoteNo, &rev.Title, &rev.Notes, &validUntil,
		&total, &final, &discount, &items, &rev.CustomerID, &rev.CreatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rev.ParentID = stringPtr(parentID)
	rev.BundleID = stringPtr(bundleID)
	rev.LifecycleStatus = domain.LifecycleStatus(status)
	rev.TotalAmount = domain.Decimal(total)
	rev.FinalAmount = domain.Decimal(final)
	rev.DiscountAmount = domain.Decimal(discount)
	rev.CreatedAt = createdAt.Time
	rev.UpdatedAt = updatedAt.Time

	if validUntil.Valid {
		v := validUntil.Time
		rev.ValidUntil = &v
	}

	if items.Valid && items.String != "" {
		rev.Items = json.RawMessage(items.String)
	}

	return &rev, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}

	v := ns.String

	return &v
}
