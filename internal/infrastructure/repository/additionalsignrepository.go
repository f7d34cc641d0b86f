package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/domain/device"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	"github.com/cityinfra/trafficcontrol/internal/shared/geo"
)

// ParkingSignRow is an additional sign real with its device type details.
type ParkingSignRow struct {
	ID                    uuid.UUID
	Location              geo.Geometry
	AdditionalInformation string
	ContentS              datatypes.JSON
	MissingContent        bool
	AttachmentURL         string
	DeviceTypeCode        string
	ContentSchema         datatypes.JSON
}

type AdditionalSignRepositoryImpl struct {
	db *gorm.DB
}

func NewAdditionalSignRepository(gdb *gorm.DB) *AdditionalSignRepositoryImpl {
	return &AdditionalSignRepositoryImpl{db: gdb}
}

// ActiveRealsByCodes lists active additional sign reals whose device type
// code is one of codes.
func (r *AdditionalSignRepositoryImpl) ActiveRealsByCodes(ctx context.Context, codes []string) ([]ParkingSignRow, error) {
	var rows []ParkingSignRow
	err := db.GetTxFromContext(ctx, r.db).
		Table(device.FamilyAdditionalSign.RealTable()+" a").
		Select("a.id, a.location, COALESCE(a.additional_information, '') AS additional_information, "+
			"a.content_s, a.missing_content, COALESCE(a.attachment_url, '') AS attachment_url, dt.code AS device_type_code, dt.content_schema").
		Joins("JOIN "+constants.TableDeviceTypes+" dt ON dt.id = a.device_type_id").
		Where("a.is_active = ?", true).
		Where("dt.code IN ?", codes).
		Order("dt.code, a.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list additional sign reals: %w", err)
	}
	return rows, nil
}

// UpdateContent writes the enriched text and, when content is non-nil, the
// structured content clearing missing_content.
func (r *AdditionalSignRepositoryImpl) UpdateContent(ctx context.Context, id uuid.UUID, info string, content datatypes.JSON) error {
	fields := map[string]any{"additional_information": info}
	if content != nil {
		fields["content_s"] = content
		fields["missing_content"] = false
	}
	err := db.GetTxFromContext(ctx, r.db).Model(&models.AdditionalSignRealModel{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("failed to update additional sign %s: %w", id, err)
	}
	return nil
}
