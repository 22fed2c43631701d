package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/logger"
)

// openSession binds the engine to the inspection in the path and the caller.
func (c *Controller) openSession(ctx echo.Context) (*inspection.Session, error) {
	userID, _ := ctx.Get(contextUserIDKey).(string)
	actor := inspection.Actor{UserID: userID, Roles: c.roles.ForUser(userID)}
	return c.engine.Open(ctx.Request().Context(), ctx.Param("id"), actor)
}

func viewOf(s *inspection.Session, withItems bool) InspectionView {
	view := InspectionView{
		Inspection: toInspectionDTO(s.Inspection()),
		Progress:   toProgressDTO(s.Progress()),
	}
	if withItems {
		view.Items = toItemDTOs(s.Items())
	}
	return view
}

// GetInspection handles GET /api/v2/inspections/:id
func (c *Controller) GetInspection(ctx echo.Context) error {
	session, err := c.openSession(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "get_inspection")
	}
	return ctx.JSON(http.StatusOK, viewOf(session, true))
}

// RecordResponse handles PUT /api/v2/inspections/:id/items/:itemId/response
func (c *Controller) RecordResponse(ctx echo.Context) error {
	var req RecordResponseRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	session, err := c.openSession(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "record_response")
	}

	result, err := session.RecordResponse(ctx.Request().Context(), inspection.ResponseInput{
		ItemID:      ctx.Param("itemId"),
		State:       inspection.ResponseState(req.State),
		Comment:     req.Comment,
		Photos:      req.Photos,
		Attachments: toAttachments(req.Attachments),
	})
	if result == nil {
		return c.HandleError(ctx, err, "record_response")
	}
	if err != nil {
		// The response was stored; only the progress cache write failed.
		c.log.Warn("response stored but progress cache not updated",
			logger.String("inspection_id", ctx.Param("id")),
			logger.Error(err))
	}

	out := RecordResponseResult{
		Response: toResponseDTO(result.Response),
		Progress: toProgressDTO(result.Progress),
	}
	for _, r := range result.Rejected {
		out.Rejected = append(out.Rejected, RejectedAttachmentDTO{Name: r.Name, Error: r.Err.Error()})
	}
	return ctx.JSON(http.StatusOK, out)
}

// CompleteInspection handles POST /api/v2/inspections/:id/complete
func (c *Controller) CompleteInspection(ctx echo.Context) error {
	var req CompleteRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	session, err := c.openSession(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "complete")
	}
	if _, err := session.Complete(ctx.Request().Context(), req.Force, req.Reason); err != nil {
		return c.HandleError(ctx, err, "complete")
	}
	return ctx.JSON(http.StatusOK, viewOf(session, false))
}

// MarkRemainingNA handles POST /api/v2/inspections/:id/mark-na
func (c *Controller) MarkRemainingNA(ctx echo.Context) error {
	var req MarkNARequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	session, err := c.openSession(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "mark_na")
	}

	var (
		marked int
		insp   *inspection.Inspection
	)
	if req.Complete {
		insp, marked, err = session.ResolveAndComplete(ctx.Request().Context(), req.Reason)
	} else {
		marked, err = session.MarkIncompleteAsNA(ctx.Request().Context(), req.Reason)
	}
	switch {
	case err != nil && insp != nil:
		// Completed; only the progress cache write failed.
		c.log.Warn("inspection completed but progress cache not updated",
			logger.String("inspection_id", ctx.Param("id")),
			logger.Error(err))
	case err != nil:
		resp := c.errorResponse(ctx, err, "mark_na")
		resp.Marked = &marked
		return ctx.JSON(resp.Code, resp)
	}

	view := viewOf(session, false)
	view.Marked = &marked
	return ctx.JSON(http.StatusOK, view)
}

// MarkIncomplete handles POST /api/v2/inspections/:id/mark-incomplete
func (c *Controller) MarkIncomplete(ctx echo.Context) error {
	var req ReasonRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	session, err := c.openSession(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "mark_incomplete")
	}
	if _, err := session.MarkIncomplete(ctx.Request().Context(), req.Reason); err != nil {
		return c.HandleError(ctx, err, "mark_incomplete")
	}
	return ctx.JSON(http.StatusOK, viewOf(session, false))
}

// ReopenInspection handles POST /api/v2/inspections/:id/reopen
func (c *Controller) ReopenInspection(ctx echo.Context) error {
	session, err := c.openSession(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "reopen")
	}
	if _, err := session.Reopen(ctx.Request().Context()); err != nil {
		return c.HandleError(ctx, err, "reopen")
	}
	return ctx.JSON(http.StatusOK, viewOf(session, false))
}
