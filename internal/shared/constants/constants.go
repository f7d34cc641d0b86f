package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Placeholder account that never counts as a real user
	AnonymousUsername = "AnonymousUser"
	// Actor recorded for writes made by batch commands
	SystemUsername = "system"

	// Database table names
	TableUsers                    = "users"
	TableGroups                   = "groups"
	TableUserDeactivationStatuses = "user_deactivation_statuses"
	TableOwners                   = "owners"
	TableMountTypes               = "mount_types"
	TableDeviceTypes              = "traffic_control_device_types"
	TablePlans                    = "plans"
	TableResponsibleEntities      = "responsible_entities"
	TableOperationalAreas         = "operational_areas"
	TableAuditLogEntries          = "audit_log_entries"
	TablePlanGeometryImportLogs   = "plan_geometry_import_logs"
	TableParkingZoneUpdateInfos   = "parking_zone_update_infos"
	TablePlanRealMappingLogs      = "plan_real_mapping_logs"

	// Join tables
	JoinUserOperationalAreas     = "user_operational_areas"
	JoinUserResponsibleEntities  = "user_responsible_entities"
	JoinUserGroups               = "user_groups"
	JoinGroupOperationalAreas    = "group_operational_areas"
	JoinGroupResponsibleEntities = "group_responsible_entities"

	// Email recipient caps
	DefaultEmailMaxRecipients  = 10
	AdminFallbackMaxRecipients = 50
	AdminReportMaxRecipients   = 100
)
