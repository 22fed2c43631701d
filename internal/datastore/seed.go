package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/safetrack/safetrack/internal/datastore/entities"
	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/logger"
	"gorm.io/gorm"
)

// Demo dataset identifiers. Fixed so seeding twice is a no-op.
const (
	DemoAreaID       = "00000000-0000-4000-8000-000000000a01"
	DemoInspectionID = "00000000-0000-4000-8000-000000000b01"
	DemoSupervisorID = "demo-supervisor"
	DemoOperatorID   = "demo-operator"
	DemoAuditorID    = "demo-auditor"
)

var demoChecklist = []string{
	"Fire extinguishers charged and accessible",
	"Emergency exits clear and signposted",
	"First aid kit complete",
	"Forklift daily check signed",
	"Hearing protection available at the press line",
	"Spill kit stocked",
}

// DemoData describes what SeedDemo created.
type DemoData struct {
	AreaID       string
	InspectionID string
	Items        int
	Users        map[string]inspection.Role
}

// SeedDemo inserts an area, an in-progress inspection with a short checklist
// and role grants for three demo users. Existing rows are left untouched.
func (m *Manager) SeedDemo(ctx context.Context) (*DemoData, error) {
	now := time.Now().UTC()
	users := map[string]inspection.Role{
		DemoSupervisorID: inspection.RoleSupervisor,
		DemoOperatorID:   inspection.RoleOperario,
		DemoAuditorID:    inspection.RoleAuditor,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		location := "Building A, ground floor"
		area := entities.Area{ID: DemoAreaID, Name: "Warehouse bay 1", Location: &location}
		if err := tx.FirstOrCreate(&area, entities.Area{ID: DemoAreaID}).Error; err != nil {
			return err
		}

		insp := entities.Inspection{
			ID:          DemoInspectionID,
			AreaID:      DemoAreaID,
			Status:      string(inspection.StatusInProgress),
			ScheduledAt: now,
			StartedAt:   &now,
			CreatedBy:   DemoSupervisorID,
		}
		assignee := DemoOperatorID
		insp.AssignedTo = &assignee
		if err := tx.FirstOrCreate(&insp, entities.Inspection{ID: DemoInspectionID}).Error; err != nil {
			return err
		}

		for i, label := range demoChecklist {
			item := entities.InspectionItem{
				ID:           demoItemID(i),
				InspectionID: DemoInspectionID,
				Label:        label,
				OrderIndex:   i,
				Required:     true,
			}
			if err := tx.FirstOrCreate(&item, entities.InspectionItem{ID: item.ID}).Error; err != nil {
				return err
			}
		}

		for userID, role := range users {
			grant := entities.UserRole{ID: demoRoleID(userID), UserID: userID, Role: string(role)}
			if err := tx.FirstOrCreate(&grant, entities.UserRole{UserID: userID, Role: string(role)}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, dbError(err, "seed_demo", errors.PriorityMedium)
	}

	m.log.Info("demo data seeded",
		logger.String("inspection_id", DemoInspectionID),
		logger.Int("items", len(demoChecklist)))
	return &DemoData{
		AreaID:       DemoAreaID,
		InspectionID: DemoInspectionID,
		Items:        len(demoChecklist),
		Users:        users,
	}, nil
}

func demoItemID(i int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-0000000c%02d00", i+1)
}

func demoRoleID(userID string) string {
	switch userID {
	case DemoSupervisorID:
		return "00000000-0000-4000-8000-000000000d01"
	case DemoOperatorID:
		return "00000000-0000-4000-8000-000000000d02"
	default:
		return "00000000-0000-4000-8000-000000000d03"
	}
}
