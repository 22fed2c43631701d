package api

import (
	"time"

	"github.com/safetrack/safetrack/internal/inspection"
)

// InspectionDTO is the JSON form of an inspection.
type InspectionDTO struct {
	ID               string     `json:"id"`
	AreaID           string     `json:"area_id"`
	Status           string     `json:"status"`
	PercentComplete  float64    `json:"percent_complete"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	ForceCloseReason *string    `json:"force_close_reason,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
}

// ItemDTO is one checklist row with its display state.
type ItemDTO struct {
	ID              string       `json:"id"`
	Label           string       `json:"label"`
	Description     *string      `json:"description,omitempty"`
	OrderIndex      int          `json:"order_index"`
	Required        bool         `json:"required"`
	State           string       `json:"state"`
	NeedsAnnotation bool         `json:"needs_annotation"`
	ReadOnly        bool         `json:"read_only"`
	Response        *ResponseDTO `json:"response,omitempty"`
}

// ResponseDTO is the JSON form of a stored response.
type ResponseDTO struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"inspection_item_id"`
	UserID    string    `json:"user_id"`
	State     string    `json:"state"`
	Comment   *string   `json:"comment"`
	Photos    []string  `json:"photos"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressDTO is the derived tally.
type ProgressDTO struct {
	Total              int     `json:"total"`
	Responded          int     `json:"responded"`
	OK                 int     `json:"ok"`
	NOK                int     `json:"nok"`
	NA                 int     `json:"na"`
	Pending            int     `json:"pending"`
	UnresolvedNOK      int     `json:"unresolved_nok"`
	PercentComplete    float64 `json:"percent_complete"`
	HasIncompleteItems bool    `json:"has_incomplete_items"`
	HasNOKItems        bool    `json:"has_nok_items"`
}

// InspectionView is returned by GET and by lifecycle operations.
type InspectionView struct {
	Inspection InspectionDTO `json:"inspection"`
	Items      []ItemDTO     `json:"items,omitempty"`
	Progress   ProgressDTO   `json:"progress"`
	Marked     *int          `json:"marked,omitempty"` // responses written by mark-na
}

// AttachmentDTO describes an uploaded file to reference from a response.
type AttachmentDTO struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Ref         string `json:"ref"`
}

// RecordResponseRequest is the body of PUT .../items/:itemId/response.
type RecordResponseRequest struct {
	State       string          `json:"state"`
	Comment     *string         `json:"comment"`
	Photos      []string        `json:"photos"`
	Attachments []AttachmentDTO `json:"attachments"`
}

// RejectedAttachmentDTO reports one attachment that was not stored.
type RejectedAttachmentDTO struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// RecordResponseResult is returned after a response write.
type RecordResponseResult struct {
	Response ResponseDTO             `json:"response"`
	Rejected []RejectedAttachmentDTO `json:"rejected,omitempty"`
	Progress ProgressDTO             `json:"progress"`
}

// CompleteRequest is the body of POST .../complete.
type CompleteRequest struct {
	Force  bool   `json:"force"`
	Reason string `json:"reason"`
}

// MarkNARequest is the body of POST .../mark-na. With Complete set the
// inspection is completed right after the remaining items are marked.
type MarkNARequest struct {
	Reason   string `json:"reason"`
	Complete bool   `json:"complete"`
}

// ReasonRequest is the body of POST .../mark-incomplete.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func toInspectionDTO(i inspection.Inspection) InspectionDTO {
	return InspectionDTO{
		ID:               i.ID,
		AreaID:           i.AreaID,
		Status:           string(i.Status),
		PercentComplete:  i.PercentComplete,
		StartedAt:        i.StartedAt,
		FinishedAt:       i.FinishedAt,
		ForceCloseReason: i.ForceCloseReason,
		Notes:            i.Notes,
	}
}

func toResponseDTO(r inspection.ItemResponse) ResponseDTO {
	photos := r.Photos
	if photos == nil {
		photos = []string{}
	}
	return ResponseDTO{
		ID:        r.ID,
		ItemID:    r.InspectionItemID,
		UserID:    r.UserID,
		State:     string(r.State),
		Comment:   r.Comment,
		Photos:    photos,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toProgressDTO(p inspection.Progress) ProgressDTO {
	return ProgressDTO{
		Total:              p.Total,
		Responded:          p.Responded,
		OK:                 p.OK,
		NOK:                p.NOK,
		NA:                 p.NA,
		Pending:            p.Pending,
		UnresolvedNOK:      p.UnresolvedNOK,
		PercentComplete:    p.PercentComplete,
		HasIncompleteItems: p.HasIncompleteItems,
		HasNOKItems:        p.HasNOKItems,
	}
}

func toItemDTOs(views []inspection.ItemView) []ItemDTO {
	items := make([]ItemDTO, 0, len(views))
	for _, v := range views {
		item := ItemDTO{
			ID:              v.Item.ID,
			Label:           v.Item.Label,
			Description:     v.Item.Description,
			OrderIndex:      v.Item.OrderIndex,
			Required:        v.Item.Required,
			State:           string(v.State),
			NeedsAnnotation: v.NeedsAnnotation,
			ReadOnly:        v.ReadOnly,
		}
		if v.Response != nil {
			r := toResponseDTO(*v.Response)
			item.Response = &r
		}
		items = append(items, item)
	}
	return items
}

func toAttachments(in []AttachmentDTO) []inspection.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]inspection.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, inspection.Attachment{
			Name:        a.Name,
			ContentType: a.ContentType,
			Size:        a.Size,
			Ref:         a.Ref,
		})
	}
	return out
}
