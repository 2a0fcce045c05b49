// Package api exposes the planner over HTTP with echo.
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"meeting-planner/internal/service"
)

// Services are the handlers' dependencies.
type Services struct {
	Meetings    *service.MeetingService
	Recurrences *service.RecurrenceService
	Tasks       *service.TaskService
	Users       *service.UserService
}

// BuildServer returns an echo instance with every route registered. Paths
// are served with or without a trailing slash.
func BuildServer(svc Services, loglevel string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.AddTrailingSlash())

	SetLevel(e, loglevel)
	e.HTTPErrorHandler = ErrorHandler(e)
	e.Use(middleware.Recover())
	e.Use(LogHandlerFunc)

	{
		meetingID := "meeting_id"
		userID := "user_id"
		taskID := "task_id"
		g := e.Group("/meetings")
		g.POST("/", CreateMeetingHandler(svc.Meetings))
		g.GET("/", ListMeetingsHandler(svc.Meetings))
		g.POST("/batch/", BatchCreateMeetingsHandler(svc.Meetings))
		g.GET("/user/:user_id/", ListMeetingsByUserHandler(svc.Meetings, userID))
		g.GET("/:meeting_id/", GetMeetingHandler(svc.Meetings, meetingID))
		g.PUT("/:meeting_id/", UpdateMeetingHandler(svc.Meetings, meetingID))
		g.DELETE("/:meeting_id/", DeleteMeetingHandler(svc.Meetings, meetingID))
		g.POST("/:meeting_id/complete/", CompleteMeetingHandler(svc.Meetings, meetingID))
		g.POST("/:meeting_id/add_recurrence/:recurrence_id/", AddRecurrenceHandler(svc.Meetings, meetingID, "recurrence_id"))
		g.GET("/:meeting_id/next/", NextMeetingHandler(svc.Meetings, meetingID))
		g.GET("/:meeting_id/ics/", MeetingICSHandler(svc.Meetings, meetingID))

		g.GET("/:meeting_id/attendees/", ListAttendeesHandler(svc.Meetings, meetingID))
		g.POST("/:meeting_id/attendees/:user_id/", AddAttendeeHandler(svc.Meetings, meetingID, userID))
		g.DELETE("/:meeting_id/attendees/:user_id/", RemoveAttendeeHandler(svc.Meetings, meetingID, userID))

		g.GET("/:meeting_id/tasks/", ListMeetingTasksHandler(svc.Tasks, meetingID))
		g.POST("/:meeting_id/tasks/:task_id/", LinkTaskHandler(svc.Meetings, meetingID, taskID))
		g.DELETE("/:meeting_id/tasks/:task_id/", UnlinkTaskHandler(svc.Meetings, meetingID, taskID))
	}

	{
		recurrenceID := "recurrence_id"
		g := e.Group("/recurrences")
		g.POST("/", CreateRecurrenceHandler(svc.Recurrences))
		g.GET("/", ListRecurrencesHandler(svc.Recurrences))
		g.GET("/:recurrence_id/", GetRecurrenceHandler(svc.Recurrences, recurrenceID))
		g.PUT("/:recurrence_id/", UpdateRecurrenceHandler(svc.Recurrences, recurrenceID))
		g.DELETE("/:recurrence_id/", DeleteRecurrenceHandler(svc.Recurrences, recurrenceID))
		g.GET("/:recurrence_id/next/", NextOccurrenceHandler(svc.Recurrences, recurrenceID))
		g.GET("/:recurrence_id/occurrences/", OccurrencesHandler(svc.Recurrences, recurrenceID))
		g.GET("/:recurrence_id/ics/", SeriesICSHandler(svc.Meetings, recurrenceID))
	}

	{
		taskID := "task_id"
		g := e.Group("/tasks")
		g.POST("/", CreateTaskHandler(svc.Tasks))
		g.GET("/", ListTasksHandler(svc.Tasks))
		g.GET("/unassigned/", ListUnassignedTasksHandler(svc.Tasks))
		g.GET("/user/:user_id/", ListTasksByUserHandler(svc.Tasks, "user_id"))
		g.GET("/:task_id/", GetTaskHandler(svc.Tasks, taskID))
		g.PUT("/:task_id/", UpdateTaskHandler(svc.Tasks, taskID))
		g.DELETE("/:task_id/", DeleteTaskHandler(svc.Tasks, taskID))
		g.POST("/:task_id/complete/", CompleteTaskHandler(svc.Tasks, taskID))
	}

	{
		userID := "user_id"
		g := e.Group("/users")
		g.POST("/", CreateUserHandler(svc.Users))
		g.GET("/", ListUsersHandler(svc.Users))
		g.GET("/:user_id/", GetUserHandler(svc.Users, userID))
		g.PUT("/:user_id/", UpdateUserHandler(svc.Users, userID))
		g.DELETE("/:user_id/", DeleteUserHandler(svc.Users, userID))
	}

	return e
}
