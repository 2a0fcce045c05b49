package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"meeting-planner/internal/service"
)

func CreateTaskHandler(tasks *service.TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var input service.TaskInput
		if err := decodeJSON(c, &input); err != nil {
			return err
		}
		task, err := tasks.CreateTask(c.Request().Context(), input)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, task)
	}
}

func ListTasksHandler(tasks *service.TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		skip, limit, err := pagination(c)
		if err != nil {
			return err
		}
		list, err := tasks.ListTasks(c.Request().Context(), skip, limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}
}

func ListUnassignedTasksHandler(tasks *service.TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := tasks.ListUnassigned(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}
}

func ListTasksByUserHandler(tasks *service.TaskService, userParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := pathUUID(c, userParam)
		if err != nil {
			return err
		}
		list, err := tasks.ListByUser(c.Request().Context(), userID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}
}

func GetTaskHandler(tasks *service.TaskService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		task, err := tasks.GetTask(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, task)
	}
}

func UpdateTaskHandler(tasks *service.TaskService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		var update service.TaskUpdate
		if err := decodeJSON(c, &update); err != nil {
			return err
		}
		task, err := tasks.UpdateTask(c.Request().Context(), id, update)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, task)
	}
}

func DeleteTaskHandler(tasks *service.TaskService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		if err := tasks.DeleteTask(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func CompleteTaskHandler(tasks *service.TaskService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUint(c, param)
		if err != nil {
			return err
		}
		task, err := tasks.MarkTaskComplete(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, task)
	}
}
