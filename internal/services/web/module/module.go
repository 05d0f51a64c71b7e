// Package module defines the feature contract used by web composition.
package module

import (
	"net/http"
	"time"

	"golang.org/x/text/language"
)

// Viewer is the signed-in user as the web chrome sees it.
type Viewer struct {
	UserID      string
	SessionID   string
	DisplayName string
	Email       string
	Lang        language.Tag
	Location    *time.Location
}

// SignedIn reports whether the viewer carries a user.
func (v Viewer) SignedIn() bool {
	return v.UserID != ""
}

// Mount describes a module route mount.
type Mount struct {
	Prefix  string
	Handler http.Handler
}

// Module declares the minimum contract required by web composition.
type Module interface {
	ID() string
	Mount() (Mount, error)
}
