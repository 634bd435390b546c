package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type row struct {
	at time.Time
	id uuid.UUID
}

func position(r row) (time.Time, uuid.UUID) { return r.at, r.id }

func TestCursorRoundTripsWithinScope(t *testing.T) {
	vendor := "vendor:" + uuid.NewString()
	cursor := Cursor{Scope: vendor, CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC), ID: uuid.New()}

	parsed, err := ParseCursor(cursor.Encode(), vendor)
	require.NoError(t, err)
	require.True(t, cursor.CreatedAt.Equal(parsed.CreatedAt))
	require.Equal(t, cursor.ID, parsed.ID)

	_, err = ParseCursor(cursor.Encode(), "vendor:"+uuid.NewString())
	require.True(t, errors.Is(err, ErrInvalidCursor))
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	parsed, err := ParseCursor("  ", "scope")
	require.NoError(t, err)
	require.Nil(t, parsed)

	for _, value := range []string{"%%%", "bm90LWEtY3Vyc29y", Cursor{Scope: "scope"}.Encode()[:10]} {
		_, err := ParseCursor(value, "scope")
		require.ErrorIs(t, err, ErrInvalidCursor, value)
	}
}

func TestTrimIssuesCursorOnlyWhenRowsRemain(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]row, 0, 4)
	for i := 0; i < 4; i++ {
		rows = append(rows, row{at: base.Add(-time.Duration(i) * time.Minute), id: uuid.New()})
	}

	page, next := Trim(rows, 3, "ledger", position)
	require.Len(t, page, 3)
	cursor, err := ParseCursor(next, "ledger")
	require.NoError(t, err)
	require.Equal(t, rows[2].id, cursor.ID)

	clause, args := cursor.Before()
	require.Contains(t, clause, "created_at < ?")
	require.Len(t, args, 3)

	page, next = Trim(rows[:3], 3, "ledger", position)
	require.Len(t, page, 3)
	require.Empty(t, next)
}

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, 8, LimitWithBuffer(7))
}
