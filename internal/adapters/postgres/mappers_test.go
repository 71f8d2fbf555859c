package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/madcrow/auth-service/internal/domain"
)

func TestTranslateDBErr(t *testing.T) {
	t.Parallel()

	if err := translateDBErr(nil); err != nil {
		t.Fatalf("nil must stay nil, got %v", err)
	}

	if err := translateDBErr(gorm.ErrRecordNotFound); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("record-not-found must map to ErrNotFound, got %v", err)
	}

	// Driver and connection failures surface as a store outage, which the
	// HTTP layer answers with 503 instead of 500.
	err := translateDBErr(sql.ErrConnDone)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("driver error must map to ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("store outage must not read as not-found")
	}
}

func TestNullableAndDerefString(t *testing.T) {
	t.Parallel()

	if nullableString("  ") != nil {
		t.Fatalf("blank strings must store as NULL")
	}
	if got := nullableString(" 203.0.113.9 "); got == nil || *got != "203.0.113.9" {
		t.Fatalf("nullableString trimmed = %v", got)
	}
	if derefString(nil) != "" {
		t.Fatalf("nil must deref to empty string")
	}
}
