package store

import (
	"context"
	"fmt"
)

// Info categories rendered into the grounding document, in fixed order.
const (
	CategoryAccess   = "access"
	CategoryRules    = "rules"
	CategoryTech     = "tech"
	CategoryContacts = "contacts"
	CategoryNotes    = "notes"
)

// InfoCategories is the rendering order for structured blocks.
var InfoCategories = []string{
	CategoryAccess, CategoryRules, CategoryTech, CategoryContacts, CategoryNotes,
}

// PropertyInfo is the structured data for one tenant, keyed by category then
// field name. Values are host-entered free text.
type PropertyInfo map[string]map[string]string

// GetPropertyInfo loads all structured info rows for a tenant.
func (s *Store) GetPropertyInfo(ctx context.Context, tenantID string) (PropertyInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, field, value FROM property_info WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get property info: %w", err)
	}
	defer func() { _ = rows.Close() }()

	info := make(PropertyInfo)
	for rows.Next() {
		var category, field, value string
		if err := rows.Scan(&category, &field, &value); err != nil {
			return nil, fmt.Errorf("scan property info: %w", err)
		}
		if info[category] == nil {
			info[category] = make(map[string]string)
		}
		info[category][field] = value
	}
	return info, rows.Err()
}

// SetPropertyField writes one structured field. Used by provisioning and tests.
func (s *Store) SetPropertyField(ctx context.Context, tenantID, category, field, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_info (tenant_id, category, field, value) VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, category, field) DO UPDATE SET value = excluded.value`,
		tenantID, category, field, value)
	if err != nil {
		return fmt.Errorf("set property field: %w", err)
	}
	return nil
}
