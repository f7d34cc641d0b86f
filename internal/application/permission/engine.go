// Package permission answers whether a user may mutate a device: the model
// permission, the operational area, the responsible entity and whether the
// user can create anything at all.
package permission

import (
	"context"

	"github.com/google/uuid"

	"github.com/cityinfra/trafficcontrol/internal/domain/organization"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// Actions checked against the model permissions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionImport = "import"
)

// GrantReader loads what a user is granted directly or through groups.
type GrantReader interface {
	OperationalAreas(ctx context.Context, userID uuid.UUID) ([]geo.Geometry, error)
	ResponsibleEntityIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ParentOf(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
}

// ContainmentChecker evaluates geometry containment in the store.
type ContainmentChecker interface {
	Within(ctx context.Context, g, area geo.Geometry) (bool, error)
}

// ModelEnforcer decides model level permissions.
type ModelEnforcer interface {
	Enforce(subject, object, action string) (bool, error)
}

type Engine struct {
	grants   GrantReader
	spatial  ContainmentChecker
	enforcer ModelEnforcer
	logger   logger.Interface
}

// NewEngine builds an engine. A nil enforcer grants every model permission.
func NewEngine(grants GrantReader, spatial ContainmentChecker, enforcer ModelEnforcer, logger logger.Interface) *Engine {
	return &Engine{grants: grants, spatial: spatial, enforcer: enforcer, logger: logger}
}

// CheckModelPermission asks the enforcer whether u may perform action on
// object, e.g. "traffic_sign_plan".
func (e *Engine) CheckModelPermission(u *models.UserModel, object, action string) error {
	if u.IsSuperuser || e.enforcer == nil {
		return nil
	}
	ok, err := e.enforcer.Enforce(u.ID.String(), object, action)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Warnw("model permission denied", "user", u.Username, "object", object, "action", action)
		return apperrors.New(apperrors.KindForbidden, "You do not have permission to perform this action.", object+":"+action)
	}
	return nil
}

// CheckOperationalArea denies when location lies outside every area granted
// to u. Points are tested point in polygon and plan areas polygon within
// polygon, both through Within.
func (e *Engine) CheckOperationalArea(ctx context.Context, u *models.UserModel, location geo.Geometry) error {
	if u.BypassOperationalArea || u.IsSuperuser {
		return nil
	}
	if location.IsZero() {
		return apperrors.New(apperrors.KindMissingRequiredField, "location is required", "location")
	}
	areas, err := e.grants.OperationalAreas(ctx, u.ID)
	if err != nil {
		return err
	}
	for _, area := range areas {
		ok, err := e.spatial.Within(ctx, location, area)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	e.logger.Warnw("operational area denied", "user", u.Username, "location", location.String())
	return apperrors.New(apperrors.KindOperationalAreaDenied,
		"You do not have permissions to create or modify objects in this location.")
}

// CheckResponsibleEntity denies when entityID is outside the subtrees
// granted to u. Devices without a responsible entity pass.
func (e *Engine) CheckResponsibleEntity(ctx context.Context, u *models.UserModel, entityID *uuid.UUID) error {
	if u.BypassResponsibleEntity || u.IsSuperuser || entityID == nil {
		return nil
	}
	granted, err := e.grantedEntities(ctx, u)
	if err != nil {
		return err
	}
	ok, err := e.withinGranted(ctx, *entityID, granted)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Warnw("responsible entity denied", "user", u.Username, "responsible_entity_id", entityID)
		return apperrors.New(apperrors.KindResponsibleEntityDenied,
			"You do not have permissions to create or modify objects of this responsible entity.", entityID.String())
	}
	return nil
}

// CanCreate denies users without bypass who have no responsible entity to
// assign new devices to.
func (e *Engine) CanCreate(ctx context.Context, u *models.UserModel) error {
	if u.BypassResponsibleEntity || u.IsSuperuser {
		return nil
	}
	granted, err := e.grants.ResponsibleEntityIDs(ctx, u.ID)
	if err != nil {
		return err
	}
	if len(granted) == 0 {
		return apperrors.New(apperrors.KindNoResponsibleEntityTargets,
			"You are not attached to any responsible entity and cannot create objects.")
	}
	return nil
}

// CheckImportRows runs before any import write. Every row must name a
// responsible entity u is permitted for, otherwise the import is forbidden.
func (e *Engine) CheckImportRows(ctx context.Context, u *models.UserModel, object string, entityIDs []*uuid.UUID) error {
	if err := e.CheckModelPermission(u, object, ActionImport); err != nil {
		return err
	}
	if u.BypassResponsibleEntity || u.IsSuperuser {
		return nil
	}
	granted, err := e.grantedEntities(ctx, u)
	if err != nil {
		return err
	}
	for i, id := range entityIDs {
		if id == nil {
			return apperrors.Newf(apperrors.KindForbidden,
				"Row %d: a responsible entity is required to import objects.", i+1)
		}
		ok, err := e.withinGranted(ctx, *id, granted)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Newf(apperrors.KindForbidden,
				"Row %d: you do not have permissions for responsible entity %s.", i+1, id)
		}
	}
	return nil
}

// AuthorizeMutation applies every check relevant to action on one device.
func (e *Engine) AuthorizeMutation(ctx context.Context, u *models.UserModel, object, action string, location geo.Geometry, entityID *uuid.UUID) error {
	if err := e.CheckModelPermission(u, object, action); err != nil {
		return err
	}
	if action == ActionCreate {
		if err := e.CanCreate(ctx, u); err != nil {
			return err
		}
	}
	if err := e.CheckOperationalArea(ctx, u, location); err != nil {
		return err
	}
	return e.CheckResponsibleEntity(ctx, u, entityID)
}

func (e *Engine) grantedEntities(ctx context.Context, u *models.UserModel) (map[uuid.UUID]struct{}, error) {
	ids, err := e.grants.ResponsibleEntityIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	granted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		granted[id] = struct{}{}
	}
	return granted, nil
}

func (e *Engine) withinGranted(ctx context.Context, entityID uuid.UUID, granted map[uuid.UUID]struct{}) (bool, error) {
	if len(granted) == 0 {
		return false, nil
	}
	ancestors, err := organization.AncestorIDs(entityID, func(id uuid.UUID) (*uuid.UUID, error) {
		return e.grants.ParentOf(ctx, id)
	})
	if err != nil {
		return false, err
	}
	return organization.IsWithinSubtree(ancestors, granted), nil
}
