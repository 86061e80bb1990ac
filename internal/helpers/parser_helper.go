package helpers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// QueryInt reads an integer query parameter, returning def when it is absent.
func QueryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return StringToInt(raw)
}
