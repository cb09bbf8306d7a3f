package core

import (
	"context"

	pmqerrors "pmq/internal/errors"
	"pmq/util"
)

// UnlinkMode removes a queue by name and exits.
type UnlinkMode struct {
	Name   string
	Unlink UnlinkFunc
	Logger *util.Logger
}

// Run unlinks the queue.  Processes that still have it open keep
// their handles.
func (m *UnlinkMode) Run(context.Context) error {
	if err := m.Unlink(m.Name); err != nil {
		m.Logger.Error("Unable to unlink queue %q: %v", m.Name, cause(err))
		return pmqerrors.Command("unlink", pmqerrors.ExitCode(err), err)
	}
	m.Logger.Verbose("unlinked %s", m.Name)
	return nil
}
