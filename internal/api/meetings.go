package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"meeting-planner/internal/apperr"
	"meeting-planner/internal/calendar"
	"meeting-planner/internal/service"
)

// BatchRequest is the body of POST /meetings/batch.
type BatchRequest struct {
	RecurrenceID uint                 `json:"recurrence_id"`
	Meeting      service.MeetingInput `json:"meeting"`
	Dates        []time.Time          `json:"dates"`
}

func decodeJSON(c echo.Context, v any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		return badRequest("can not understand the requested json: %v", err)
	}
	return nil
}

func CreateMeetingHandler(meetings *service.MeetingService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var input service.MeetingInput
		if err := decodeJSON(c, &input); err != nil {
			return err
		}
		m, err := meetings.CreateWithRecurrence(c.Request().Context(), input)
		if err != nil {
			// An unknown recurrence_id is a problem with the body.
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) {
				return badRequest("%s", nf.Detail)
			}
			return err
		}
		return c.JSON(http.StatusOK, m)
	}
}

func ListMeetingsHandler(meetings *service.MeetingService) echo.HandlerFunc {
	return func(c echo.Context) error {
		skip, limit, err := pagination(c)
		if err != nil {
			return err
		}
		ms, err := meetings.List(c.Request().Context(), skip, limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ms)
	}
}

func BatchCreateMeetingsHandler(meetings *service.MeetingService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req BatchRequest
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		ms, err := meetings.BatchCreateWithRecurrence(c.Request().Context(), req.RecurrenceID, req.Meeting, req.Dates)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ms)
	}
}

func ListMeetingsByUserHandler(meetings *service.MeetingService, userParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := pathUUID(c, userParam)
		if err != nil {
			return err
		}
		skip, limit, err := pagination(c)
		if err != nil {
			return err
		}
		ms, err := meetings.ListByUser(c.Request().Context(), userID, skip, limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ms)
	}
}

func GetMeetingHandler(meetings *service.MeetingService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		m, err := meetings.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, m)
	}
}

func UpdateMeetingHandler(meetings *service.MeetingService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		var update service.MeetingUpdate
		if err := decodeJSON(c, &update); err != nil {
			return err
		}
		m, err := meetings.Update(c.Request().Context(), id, update)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, m)
	}
}

func DeleteMeetingHandler(meetings *service.MeetingService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		if err := meetings.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// CompleteMeetingHandler completes a meeting and advances its series.
func CompleteMeetingHandler(meetings *service.MeetingService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		done, _, err := meetings.CompleteAndAdvance(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, done)
	}
}

func AddRecurrenceHandler(meetings *service.MeetingService, param, recurrenceParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		recurrenceID, err := pathUint(c, recurrenceParam)
		if err != nil {
			return err
		}
		m, err := meetings.AddRecurrence(c.Request().Context(), id, recurrenceID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, m)
	}
}

// NextMeetingHandler serves the next meeting of a series. The optional
// "after" query parameter is an RFC 3339 timestamp.
func NextMeetingHandler(meetings *service.MeetingService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		after, err := queryTime(c, "after")
		if err != nil {
			return err
		}
		m, err := meetings.GetSubsequentMeeting(c.Request().Context(), id, after)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, m)
	}
}

func MeetingICSHandler(meetings *service.MeetingService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		m, err := meetings.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, calendarContentType, []byte(calendar.RenderMeeting(*m)))
	}
}

func ListAttendeesHandler(meetings *service.MeetingService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		users, err := meetings.ListAttendees(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, users)
	}
}

func AddAttendeeHandler(meetings *service.MeetingService, param, userParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		userID, err := pathUUID(c, userParam)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		if err := meetings.AddAttendee(ctx, id, userID); err != nil {
			return err
		}
		users, err := meetings.ListAttendees(ctx, id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, users)
	}
}

func RemoveAttendeeHandler(meetings *service.MeetingService, param, userParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		userID, err := pathUUID(c, userParam)
		if err != nil {
			return err
		}
		if err := meetings.RemoveAttendee(c.Request().Context(), id, userID); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func ListMeetingTasksHandler(tasks *service.TaskService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		ts, err := tasks.ListByMeeting(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ts)
	}
}

func LinkTaskHandler(meetings *service.MeetingService, param, taskParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		taskID, err := pathUint(c, taskParam)
		if err != nil {
			return err
		}
		if err := meetings.LinkTask(c.Request().Context(), id, taskID); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func UnlinkTaskHandler(meetings *service.MeetingService, param, taskParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		taskID, err := pathUint(c, taskParam)
		if err != nil {
			return err
		}
		if err := meetings.UnlinkTask(c.Request().Context(), id, taskID); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}
