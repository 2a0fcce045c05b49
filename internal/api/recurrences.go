package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"meeting-planner/internal/calendar"
	"meeting-planner/internal/service"
)

const calendarContentType = "text/calendar; charset=utf-8"

// NextOccurrence is the body of GET /recurrences/:id/next.
type NextOccurrence struct {
	Next time.Time `json:"next"`
}

func queryTime(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, badRequest("%s must be an RFC 3339 timestamp, got %q", name, raw)
	}
	return t, nil
}

func CreateRecurrenceHandler(recs *service.RecurrenceService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var input service.RecurrenceInput
		if err := decodeJSON(c, &input); err != nil {
			return err
		}
		rec, err := recs.Create(c.Request().Context(), input)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	}
}

func ListRecurrencesHandler(recs *service.RecurrenceService) echo.HandlerFunc {
	return func(c echo.Context) error {
		skip, limit, err := pagination(c)
		if err != nil {
			return err
		}
		list, err := recs.List(c.Request().Context(), skip, limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}
}

func GetRecurrenceHandler(recs *service.RecurrenceService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		rec, err := recs.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	}
}

func UpdateRecurrenceHandler(recs *service.RecurrenceService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		var update service.RecurrenceUpdate
		if err := decodeJSON(c, &update); err != nil {
			return err
		}
		rec, err := recs.Update(c.Request().Context(), id, update)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	}
}

func DeleteRecurrenceHandler(recs *service.RecurrenceService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		if err := recs.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// NextOccurrenceHandler evaluates the rule from "after", now by default.
func NextOccurrenceHandler(recs *service.RecurrenceService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		after, err := queryTime(c, "after")
		if err != nil {
			return err
		}
		if after.IsZero() {
			after = time.Now().UTC().Truncate(time.Second)
		}
		next, err := recs.NextOccurrence(c.Request().Context(), id, after)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, NextOccurrence{Next: next})
	}
}

// OccurrencesHandler lists occurrences in [from, to]; both are required.
func OccurrencesHandler(recs *service.RecurrenceService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		from, err := queryTime(c, "from")
		if err != nil {
			return err
		}
		to, err := queryTime(c, "to")
		if err != nil {
			return err
		}
		if from.IsZero() || to.IsZero() {
			return badRequest("from and to are required")
		}
		occ, err := recs.Occurrences(c.Request().Context(), id, from, to)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, occ)
	}
}

func SeriesICSHandler(meetings *service.MeetingService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		rec, ms, err := meetings.ListSeries(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, calendarContentType, []byte(calendar.RenderSeries(*rec, ms)))
	}
}
