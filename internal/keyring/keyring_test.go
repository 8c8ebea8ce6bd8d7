package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetGetDelete(t *testing.T) {
	gokeyring.MockInit()

	connStr := "postgres://habits@localhost:5432/habitline?sslmode=disable"
	if err := SetConnectionString(connStr); err != nil {
		t.Fatalf("SetConnectionString() error = %v", err)
	}
	got, err := GetConnectionString()
	if err != nil || got != connStr {
		t.Fatalf("GetConnectionString() = %q, %v", got, err)
	}

	if err := DeleteConnectionString(); err != nil {
		t.Fatalf("DeleteConnectionString() error = %v", err)
	}
	if _, err := GetConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetConnectionString() after delete error = %v, want ErrNotFound", err)
	}
	if err := DeleteConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteConnectionString() error = %v, want ErrNotFound", err)
	}
}

func TestSetConnectionStringEmpty(t *testing.T) {
	gokeyring.MockInit()
	if err := SetConnectionString(""); err == nil {
		t.Error("SetConnectionString(\"\") should return an error")
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()
	if !IsAvailable() {
		t.Error("mock keyring should be available")
	}

	gokeyring.MockInitWithError(errors.New("no dbus"))
	if IsAvailable() {
		t.Error("failing keyring reported as available")
	}
	if _, err := GetConnectionString(); !errors.Is(err, ErrKeyringUnavailable) {
		t.Errorf("GetConnectionString() error = %v, want ErrKeyringUnavailable", err)
	}
}

func TestResolveConnectionString(t *testing.T) {
	gokeyring.MockInit()
	t.Setenv(ConnectionEnvVar, "")

	if _, _, err := ResolveConnectionString(""); err == nil {
		t.Error("expected error with nothing configured")
	}

	if err := SetConnectionString("postgres://keyring@localhost/habitline"); err != nil {
		t.Fatalf("SetConnectionString() error = %v", err)
	}
	tests := []struct {
		name       string
		env        string
		configured string
		want       string
		source     Source
	}{
		{name: "keyring", want: "postgres://keyring@localhost/habitline", source: SourceKeyring},
		{name: "config", configured: "postgres://config@localhost/habitline", want: "postgres://config@localhost/habitline", source: SourceConfig},
		{name: "env wins", env: "postgres://env@localhost/habitline", configured: "postgres://config@localhost/habitline", want: "postgres://env@localhost/habitline", source: SourceEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConnectionEnvVar, tt.env)
			got, source, err := ResolveConnectionString(tt.configured)
			if err != nil {
				t.Fatalf("ResolveConnectionString() error = %v", err)
			}
			if got != tt.want || source != tt.source {
				t.Errorf("ResolveConnectionString() = %q (%s), want %q (%s)", got, source, tt.want, tt.source)
			}
		})
	}
}
