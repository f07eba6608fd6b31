// Package subscription stores which novena each user is praying and how far
// along they are.
//
// The reminder scheduler reads active subscriptions; the operator CLI and
// the app backend move them forward.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the format of LastCompleted: a calendar date in the
// scheduler's time zone.
const DateLayout = "2006-01-02"

var (
	// ErrNotFound is returned for an unknown user.
	ErrNotFound = errors.New("subscription not found")
	// ErrInvalid is returned for a record that fails validation.
	ErrInvalid = errors.New("invalid subscription")
)

// Platform is the device family a push token belongs to.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return true
	}
	return false
}

// Subscription is one user's progress through one novena.
type Subscription struct {
	UserID        string    `json:"userId"`
	NovenaID      string    `json:"novenaId"`
	NovenaTitle   string    `json:"novenaTitle"`
	CurrentDay    int       `json:"currentDay"`
	Active        bool      `json:"active"`
	LastCompleted string    `json:"lastCompleted"` // YYYY-MM-DD or ""
	Token         string    `json:"-"`
	Platform      Platform  `json:"platform"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CompletedOn reports whether the day's prayer was completed on date.
func (s Subscription) CompletedOn(date string) bool {
	return s.LastCompleted != "" && s.LastCompleted == date
}

// Validate checks the fields a reminder needs.
func (s Subscription) Validate() error {
	var errs []error
	if s.UserID == "" {
		errs = append(errs, errors.New("user id is required"))
	}
	if s.NovenaID == "" {
		errs = append(errs, errors.New("novena id is required"))
	}
	if s.NovenaTitle == "" {
		errs = append(errs, errors.New("novena title is required"))
	}
	if s.CurrentDay < 1 {
		errs = append(errs, fmt.Errorf("current day must be >= 1, got %d", s.CurrentDay))
	}
	if s.Token == "" {
		errs = append(errs, errors.New("push token is required"))
	}
	if !s.Platform.Valid() {
		errs = append(errs, fmt.Errorf("unknown platform %q", s.Platform))
	}
	if s.LastCompleted != "" {
		if _, err := time.Parse(DateLayout, s.LastCompleted); err != nil {
			errs = append(errs, fmt.Errorf("last completed %q is not YYYY-MM-DD", s.LastCompleted))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Store is the full record lifecycle.
type Store interface {
	Upsert(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, userID string) (*Subscription, error)
	MarkCompleted(ctx context.Context, userID, date string) error
	Advance(ctx context.Context, userID string) error
	SetActive(ctx context.Context, userID string, active bool) error
	ListActive(ctx context.Context) ([]Subscription, error)
	List(ctx context.Context) ([]Subscription, error)
}
