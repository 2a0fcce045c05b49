package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"meeting-planner/internal/service"
)

func CreateUserHandler(users *service.UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var input service.UserInput
		if err := decodeJSON(c, &input); err != nil {
			return err
		}
		user, err := users.Create(c.Request().Context(), input)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, user)
	}
}

func ListUsersHandler(users *service.UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		skip, limit, err := pagination(c)
		if err != nil {
			return err
		}
		list, err := users.List(c.Request().Context(), skip, limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}
}

func GetUserHandler(users *service.UserService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUUID(c, param)
		if err != nil {
			return err
		}
		user, err := users.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, user)
	}
}

func UpdateUserHandler(users *service.UserService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUUID(c, param)
		if err != nil {
			return err
		}
		var update service.UserUpdate
		if err := decodeJSON(c, &update); err != nil {
			return err
		}
		user, err := users.Update(c.Request().Context(), id, update)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, user)
	}
}

func DeleteUserHandler(users *service.UserService, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUUID(c, param)
		if err != nil {
			return err
		}
		if err := users.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}
