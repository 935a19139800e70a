//go:build !swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
)

// MountSwagger does nothing in default builds; the swagger build tag
// swaps in the version that serves the OpenAPI UI.
func MountSwagger(r chi.Router) {}
