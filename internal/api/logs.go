package api

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// LogHandlerFunc logs every request and its response.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		begin := time.Now()
		c.Logger().Infof("< request %s %s", meth, path)

		var err error
		defer func() {
			c.Logger().Infof(
				"> response status = %d (for %s %s) in %v / error = %v",
				c.Response().Status, meth, path, time.Since(begin), err,
			)
		}()

		err = next(c)
		return err
	}
}

// SetLevel sets the level of echo's logger and of the package-level logger
// used by services. Level is one of debug, info, warn, error or off.
func SetLevel(e *echo.Echo, loglevel string) {
	lvl, known := ParseLevel(loglevel)
	e.Logger.SetLevel(lvl)
	log.SetLevel(lvl)
	if !known {
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}
}

// ParseLevel maps a level name to a gommon level. Unknown names map to warn.
func ParseLevel(loglevel string) (log.Lvl, bool) {
	switch strings.ToLower(strings.TrimSpace(loglevel)) {
	case "debug":
		return log.DEBUG, true
	case "info":
		return log.INFO, true
	case "warn", "":
		return log.WARN, true
	case "error":
		return log.ERROR, true
	case "off":
		return log.OFF, true
	default:
		return log.WARN, false
	}
}
