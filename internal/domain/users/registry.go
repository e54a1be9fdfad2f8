// Package users manages the username→roles registry behind the create_user
// tool. Two mutually exclusive operating modes, fixed per process: sandbox
// (rows in the local record store only) and system (real OS accounts, with a
// best-effort sandbox mirror for audit visibility).
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"os/user"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidUsername means the username fails the conservative identifier pattern.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidRoles means roles is not a sequence of well-formed role names.
	ErrInvalidRoles = errors.New("invalid roles")

	// ErrUserExists means the username is already taken in the active mode.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned by Get for unknown usernames.
	ErrUserNotFound = errors.New("user not found")
)

// Mode selects how Create behaves. Chosen from configuration at startup,
// never from request input.
type Mode string

const (
	// ModeSandbox records users in the local store only.
	ModeSandbox Mode = "sandbox"
	// ModeSystem creates real OS accounts (requires elevated privilege).
	ModeSystem Mode = "system"
)

// Lowercase letters, digits, underscore, hyphen; must not start with a digit
// or hyphen; at most 32 characters. Matches what useradd accepts portably.
var usernamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

// Same alphabet for role/group names.
var rolePattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

// User is one registry entry.
type User struct {
	Username   string    `json:"username"`
	Roles      []string  `json:"roles"`
	SystemUser bool      `json:"system_user"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidateUsername checks name against the identifier pattern.
func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, name)
	}
	return nil
}

// ValidateRoles checks every role against the role name pattern.
func ValidateRoles(roles []string) error {
	for _, role := range roles {
		if !rolePattern.MatchString(role) {
			return fmt.Errorf("%w: %q", ErrInvalidRoles, role)
		}
	}
	return nil
}

// Registry is the shared user store. Create serializes its read-check-write
// sequence behind a mutex so concurrent requests cannot both pass the
// duplicate check and lose an entry.
type Registry struct {
	db     *sql.DB
	mode   Mode
	logger *slog.Logger

	mu sync.Mutex
}

// NewRegistry creates a Registry in the given mode over the sandbox store.
func NewRegistry(db *sql.DB, mode Mode, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{db: db, mode: mode, logger: logger}
}

// Mode returns the fixed operating mode.
func (r *Registry) Mode() Mode {
	return r.mode
}

// Create adds a user. In sandbox mode the entry lives in the local store
// only. In system mode a real account is created via useradd with roles
// mapped to supplementary groups, and a mirror row is written to the sandbox
// store; mirror failure is logged but never fails the call.
func (r *Registry) Create(ctx context.Context, username string, roles []string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateRoles(roles); err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []string{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == ModeSystem {
		return r.createSystem(ctx, username, roles)
	}
	return r.createSandbox(ctx, username, roles)
}

// Get returns a registry entry by username.
func (r *Registry) Get(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT username, roles, system_user, created_at
		FROM sandbox_user
		WHERE username = ?
	`, username)

	var (
		u          User
		rolesRaw   string
		systemUser int
		createdAt  string
	)
	if err := row.Scan(&u.Username, &rolesRaw, &systemUser, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("users: get %q: %w", username, err)
	}

	if err := json.Unmarshal([]byte(rolesRaw), &u.Roles); err != nil {
		return nil, fmt.Errorf("users: decode roles for %q: %w", username, err)
	}
	u.SystemUser = systemUser == 1
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		u.CreatedAt = ts
	}
	return &u, nil
}

// --- sandbox mode ---

func (r *Registry) createSandbox(ctx context.Context, username string, roles []string) (*User, error) {
	u := &User{
		Username:   username,
		Roles:      roles,
		SystemUser: false,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Registry) insert(ctx context.Context, u *User) error {
	rolesRaw, err := json.Marshal(u.Roles)
	if err != nil {
		return fmt.Errorf("users: encode roles: %w", err)
	}

	systemUser := 0
	if u.SystemUser {
		systemUser = 1
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sandbox_user (username, roles, system_user, created_at)
		VALUES (?, ?, ?, ?)
	`, u.Username, string(rolesRaw), systemUser, u.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %q", ErrUserExists, u.Username)
		}
		return fmt.Errorf("users: insert %q: %w", u.Username, err)
	}
	return nil
}

// --- system mode ---

func (r *Registry) createSystem(ctx context.Context, username string, roles []string) (*User, error) {
	if _, err := user.Lookup(username); err == nil {
		return nil, fmt.Errorf("%w: OS account %q", ErrUserExists, username)
	}

	args := []string{"-m"}
	if len(roles) > 0 {
		args = append(args, "-G", strings.Join(roles, ","))
	}
	args = append(args, username)

	cmd := exec.CommandContext(ctx, "useradd", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("users: useradd %q: %w: %s", username, err, strings.TrimSpace(string(out)))
	}

	u := &User{
		Username:   username,
		Roles:      roles,
		SystemUser: true,
		CreatedAt:  time.Now().UTC(),
	}

	// Mirror row for audit visibility only. The account already exists, so a
	// failed mirror must not fail the call.
	if err := r.insert(ctx, u); err != nil {
		r.logger.Warn("sandbox mirror write failed after system user creation",
			"username", username, "error", err)
	}

	return u, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
