package sources

import (
	"context"
	"time"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

// Direct fetches the identifier value itself. It backs both catalog links
// and staff overrides.
type Direct struct {
	source entities.SourceName
}

// NewLink handles identifiers extracted from catalog link fields.
func NewLink() *Direct { return &Direct{source: entities.SourceLink} }

// NewStaff handles URLs entered by staff as manual overrides.
func NewStaff() *Direct { return &Direct{source: entities.SourceStaff} }

func (d *Direct) Name() entities.SourceName { return d.source }

func (d *Direct) Applies(ident *entities.Identifier) bool {
	return ident.Source == d.source && ident.Value != ""
}

func (d *Direct) ImageURL(_ context.Context, ident *entities.Identifier) (string, bool) {
	if !d.Applies(ident) {
		return "", false
	}
	return ident.Value, true
}

func (d *Direct) Validate(resp *Response) bool { return statusOK(resp) }

func (d *Direct) Filename(ident *entities.Identifier, now time.Time) string {
	return sourceOnlyFilename(ident, now)
}
