// Package share issues and validates time-limited share tokens for assets.
//
// A token is 32 random bytes, hex encoded. Each asset holds at most one
// token; issuing a new one replaces the old, and concurrent issues resolve
// last-write-wins. A token is valid up to and including its expiry instant.
package share

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"clipshare/internal/apperr"
	"clipshare/internal/database"
	"clipshare/internal/logging"
	"clipshare/internal/metrics"
)

// tokenBytes is the amount of randomness in a token.
const tokenBytes = 32

// DefaultMaxExpiry caps how far in the future a link may expire.
const DefaultMaxExpiry = 7 * 24 * time.Hour

// Store persists share state on assets.
type Store interface {
	GetAsset(ctx context.Context, id string) (*database.Asset, error)
	SetShare(ctx context.Context, id, token string, expiry time.Time, link string) error
	ClearShare(ctx context.Context, id string) error
}

// Link is the result of issuing a token.
type Link struct {
	ShareableLink string    `json:"shareableLink"`
	Expiry        time.Time `json:"expiry"`
}

// Manager issues and validates share tokens.
type Manager struct {
	store     Store
	baseURL   string
	maxExpiry time.Duration
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithMaxExpiry sets the longest allowed expiry.
func WithMaxExpiry(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxExpiry = d
		}
	}
}

// NewManager creates a Manager that builds links under baseURL.
func NewManager(store Store, baseURL string, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxExpiry: DefaultMaxExpiry,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a fresh token for an asset valid for expiryMinutes and
// returns the shareable link.
func (m *Manager) Issue(ctx context.Context, id string, expiryMinutes float64) (*Link, error) {
	if math.IsNaN(expiryMinutes) || math.IsInf(expiryMinutes, 0) || expiryMinutes <= 0 {
		return nil, apperr.Validation("Expiry must be a positive number of minutes")
	}
	if expiryMinutes > m.maxExpiry.Minutes() {
		return nil, apperr.Validation(fmt.Sprintf("Expiry must not exceed %d minutes", int64(m.maxExpiry/time.Minute)))
	}
	validFor := time.Duration(expiryMinutes * float64(time.Minute))

	if _, err := m.getAsset(ctx, id); err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to generate token", err)
	}

	expiry := m.now().Add(validFor).UTC().Truncate(time.Millisecond)
	link := m.linkFor(id, token)

	if err := m.store.SetShare(ctx, id, token, expiry, link); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.NotFound("Video not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to save share token", err)
	}

	metrics.ShareTokensIssued.Inc()
	logging.Info("Issued share link for %s expiring %s", id, expiry.Format(time.RFC3339))

	return &Link{ShareableLink: link, Expiry: expiry}, nil
}

// Validate checks token against the asset's current token and expiry and
// returns the asset when access is allowed.
func (m *Manager) Validate(ctx context.Context, id, token string) (asset *database.Asset, err error) {
	defer func() { metrics.ShareValidationsTotal.WithLabelValues(validationResult(err)).Inc() }()

	if token == "" {
		return nil, apperr.Validation("Token is required")
	}

	asset, err = m.getAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	if asset.ShareToken == "" || subtle.ConstantTimeCompare([]byte(asset.ShareToken), []byte(token)) != 1 {
		return nil, apperr.Unauthorized("Invalid share token")
	}

	if asset.ShareExpiry == nil || m.now().After(*asset.ShareExpiry) {
		return nil, apperr.Unauthorized("Shareable link has expired").WithDetail("Expired")
	}

	return asset, nil
}

// Revoke removes the asset's token, expiry and link.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	err := m.store.ClearShare(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return apperr.NotFound("Video not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "Failed to revoke share token", err)
	}
	logging.Info("Revoked share link for %s", id)
	return nil
}

func (m *Manager) getAsset(ctx context.Context, id string) (*database.Asset, error) {
	asset, err := m.store.GetAsset(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("Video not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to load video", err)
	}
	return asset, nil
}

func (m *Manager) linkFor(id, token string) string {
	return m.baseURL + "/video/" + url.PathEscape(id) + "/share?token=" + url.QueryEscape(token)
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case apperr.DetailOf(err) == "Expired":
		return "expired"
	case apperr.Is(err, apperr.KindUnauthorized):
		return "invalid"
	case apperr.Is(err, apperr.KindNotFound):
		return "not_found"
	case apperr.Is(err, apperr.KindValidation):
		return "missing"
	default:
		return "error"
	}
}
