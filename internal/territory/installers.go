package territory

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-cli/internal/store"
)

// ErrNoDirectory is returned by installer operations when the service
// was built without WithDirectory.
var ErrNoDirectory = errors.New("territory: no installer directory configured")

// ErrInvalidInstaller is returned for installer writes without an id.
var ErrInvalidInstaller = errors.New("territory: invalid installer")

// ListInstallers returns every installer in the directory.
func (s *Service) ListInstallers(ctx context.Context) ([]store.Installer, error) {
	if s.directory == nil {
		return nil, ErrNoDirectory
	}
	list, err := s.directory.ListInstallers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "territory: list installers")
	}
	if list == nil {
		list = []store.Installer{}
	}
	return list, nil
}

// UpsertInstaller creates or replaces installer metadata.
func (s *Service) UpsertInstaller(ctx context.Context, inst store.Installer) (*store.Installer, error) {
	if s.directory == nil {
		return nil, ErrNoDirectory
	}
	inst.ID = strings.TrimSpace(inst.ID)
	if inst.ID == "" {
		return nil, eris.Wrap(ErrInvalidInstaller, "installer id is required")
	}
	inst.UpdatedAt = s.now().UTC()
	if err := s.directory.UpsertInstaller(ctx, inst); err != nil {
		return nil, eris.Wrapf(err, "territory: upsert installer %s", inst.ID)
	}
	return &inst, nil
}
