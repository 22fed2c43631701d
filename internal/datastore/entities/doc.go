// Package entities contains the GORM models of the SafeTrack schema.
//
// Tables:
//   - areas: physical areas that are inspected
//   - inspections: one checklist run against an area
//   - inspection_items: the questions of an inspection, ordered by order_index
//   - item_responses: at most one current answer per (inspection_id, inspection_item_id)
//   - user_roles: application roles granted to users
//   - audit_logs: append-only record of engine changes
//
// IDs are UUID strings generated by the application so the same schema works
// on SQLite, MySQL and PostgreSQL.
package entities
