package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/organization"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

// GrantRepositoryImpl reads the operational areas and responsible entities a
// user is granted directly or through groups.
type GrantRepositoryImpl struct {
	db *gorm.DB
}

func NewGrantRepository(gdb *gorm.DB) *GrantRepositoryImpl {
	return &GrantRepositoryImpl{db: gdb}
}

var (
	userAreaIDs = fmt.Sprintf(
		"SELECT operational_area_id FROM %s WHERE user_id = @user", constants.JoinUserOperationalAreas)
	groupAreaIDs = fmt.Sprintf(
		"SELECT ga.operational_area_id FROM %s ga JOIN %s ug ON ug.group_id = ga.group_id WHERE ug.user_id = @user",
		constants.JoinGroupOperationalAreas, constants.JoinUserGroups)
	userEntityIDs = fmt.Sprintf(
		"SELECT responsible_entity_id FROM %s WHERE user_id = @user", constants.JoinUserResponsibleEntities)
	groupEntityIDs = fmt.Sprintf(
		"SELECT ge.responsible_entity_id FROM %s ge JOIN %s ug ON ug.group_id = ge.group_id WHERE ug.user_id = @user",
		constants.JoinGroupResponsibleEntities, constants.JoinUserGroups)
)

// OperationalAreas returns the union of the user's and the user's groups' areas.
func (r *GrantRepositoryImpl) OperationalAreas(ctx context.Context, userID uuid.UUID) ([]geo.Geometry, error) {
	var areas []models.OperationalAreaModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("id IN ("+userAreaIDs+") OR id IN ("+groupAreaIDs+")", map[string]any{"user": userID}).
		Find(&areas).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load operational areas: %w", err)
	}
	out := make([]geo.Geometry, 0, len(areas))
	for _, a := range areas {
		if !a.Location.IsZero() {
			out = append(out, a.Location)
		}
	}
	return out, nil
}

// ResponsibleEntityIDs returns the union of the user's and the user's groups'
// responsible entities.
func (r *GrantRepositoryImpl) ResponsibleEntityIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.GetTxFromContext(ctx, r.db).Model(&models.ResponsibleEntityModel{}).
		Where("id IN ("+userEntityIDs+") OR id IN ("+groupEntityIDs+")", map[string]any{"user": userID}).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load responsible entities: %w", err)
	}
	return ids, nil
}

// ParentOf returns the parent of the responsible entity id, nil for a root.
func (r *GrantRepositoryImpl) ParentOf(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	var re models.ResponsibleEntityModel
	if err := db.GetTxFromContext(ctx, r.db).Select("id", "parent_id").Where("id = ?", id).First(&re).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load responsible entity: %w", err)
	}
	return re.ParentID, nil
}

// FullPath renders the names from the root down to id.
func (r *GrantRepositoryImpl) FullPath(ctx context.Context, id uuid.UUID) (string, error) {
	ids, err := organization.AncestorIDs(id, func(x uuid.UUID) (*uuid.UUID, error) { return r.ParentOf(ctx, x) })
	if err != nil {
		return "", err
	}
	var rows []models.ResponsibleEntityModel
	if err := db.GetTxFromContext(ctx, r.db).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return "", fmt.Errorf("failed to load responsible entities: %w", err)
	}
	names := make(map[uuid.UUID]string, len(rows))
	for _, re := range rows {
		names[re.ID] = re.Name
	}
	path := make([]string, 0, len(ids))
	for _, x := range slices.Backward(ids) {
		path = append(path, names[x])
	}
	return organization.FullPath(path), nil
}
