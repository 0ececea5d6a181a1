package accounts

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lunchmates/lunchmates/internal/shared"
)

func TestMapConstraint(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "email unique violation",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			want: shared.ErrDuplicateEmail,
		},
		{
			name: "username unique violation",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"},
			want: shared.ErrDuplicateUsername,
		},
		{
			name: "other constraint passes through",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "some_fk"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapConstraint(tc.err)
			if tc.want != nil {
				if !errors.Is(got, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
				return
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("expected original error, got %v", got)
			}
		})
	}
}
