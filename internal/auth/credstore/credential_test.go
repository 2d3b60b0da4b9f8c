package credstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(offset time.Duration) time.Time { return issued.Add(offset) }
	explicit := issued.Add(10 * time.Minute)

	tests := []struct {
		name string
		cred *Credential
		now  time.Time
		want bool
	}{
		{
			name: "nil credential",
			cred: nil,
			now:  issued,
			want: true,
		},
		{
			name: "no expiry information never expires",
			cred: &Credential{AccessToken: "a", CreatedAt: issued.UnixMilli()},
			now:  at(24 * 365 * time.Hour),
			want: false,
		},
		{
			name: "fresh token",
			cred: &Credential{AccessToken: "a", ExpiresIn: 3600, CreatedAt: issued.UnixMilli()},
			now:  at(time.Minute),
			want: false,
		},
		{
			name: "sixty seconds left is inside the margin",
			cred: &Credential{AccessToken: "a", ExpiresIn: 3600, CreatedAt: issued.UnixMilli()},
			now:  at(3600*time.Second - 60*time.Second),
			want: true,
		},
		{
			name: "exactly the margin left is still valid",
			cred: &Credential{AccessToken: "a", ExpiresIn: 3600, CreatedAt: issued.UnixMilli()},
			now:  at(3600*time.Second - 300*time.Second),
			want: false,
		},
		{
			name: "one second past the margin",
			cred: &Credential{AccessToken: "a", ExpiresIn: 3600, CreatedAt: issued.UnixMilli()},
			now:  at(3600*time.Second - 299*time.Second),
			want: true,
		},
		{
			name: "expires_at overrides expires_in",
			cred: &Credential{AccessToken: "a", ExpiresIn: 3600, CreatedAt: issued.UnixMilli(), ExpiresAt: &explicit},
			now:  at(6 * time.Minute),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpired(tt.cred, tt.now))
		})
	}
}
