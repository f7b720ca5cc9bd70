package web

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Context wraps the gin context with the request scoped context.Context
// handlers pass down to repositories, plus parameter bookkeeping.
type Context struct {
	*gin.Context
	Ctx context.Context

	paramErrs []FieldError
	queryErrs []FieldError
}

// Respond converts a Go value to JSON and sends it to the client.
func (c *Context) Respond(data interface{}, status int) error {
	if status == http.StatusNoContent {
		c.Status(status)
		return nil
	}

	c.JSON(status, data)
	return nil
}

// RespondError sends an error response back to the client.
func (c *Context) RespondError(err error) error {
	var webErr *Error
	if errors.As(err, &webErr) {
		c.JSON(webErr.Status, ErrorResponse{
			Status: false,
			Error:  webErr.Err.Error(),
			Fields: webErr.Fields,
		})
		return err
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Status: false,
		Error:  http.StatusText(http.StatusInternalServerError),
	})
	return err
}

// BindFunc binds the request body into data and checks that every listed
// field is set. Field names may also be passed comma separated.
func (c *Context) BindFunc(data interface{}, requiredFields ...string) error {
	if err := c.ShouldBind(data); err != nil {
		return NewRequestError(errors.Wrap(err, "binding request"), http.StatusBadRequest)
	}

	v := reflect.Indirect(reflect.ValueOf(data))
	if v.Kind() != reflect.Struct {
		return nil
	}

	var fields []FieldError
	for _, group := range requiredFields {
		for _, name := range strings.Split(group, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			f := v.FieldByName(name)
			if !f.IsValid() {
				continue
			}
			if f.IsZero() || (f.Kind() == reflect.Ptr && f.Elem().Kind() == reflect.String && strings.TrimSpace(f.Elem().String()) == "") ||
				(f.Kind() == reflect.String && strings.TrimSpace(f.String()) == "") {
				fields = append(fields, FieldError{Field: name, Error: "required"})
			}
		}
	}

	if len(fields) > 0 {
		return &Error{
			Err:    errors.New("field validation error"),
			Status: http.StatusBadRequest,
			Fields: fields,
		}
	}

	return nil
}

// GetParam reads a path parameter converted to kind. Conversion failures are
// collected and reported by ValidParam.
func (c *Context) GetParam(kind reflect.Kind, key string) interface{} {
	raw := c.Param(key)

	switch kind {
	case reflect.Int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.paramErrs = append(c.paramErrs, FieldError{Field: key, Error: "must be an integer"})
		}
		return v
	default:
		if strings.TrimSpace(raw) == "" {
			c.paramErrs = append(c.paramErrs, FieldError{Field: key, Error: "required"})
		}
		return raw
	}
}

// ValidParam reports parameter conversion errors collected by GetParam.
func (c *Context) ValidParam() error {
	if len(c.paramErrs) == 0 {
		return nil
	}

	return &Error{
		Err:    errors.New("invalid path parameter"),
		Status: http.StatusBadRequest,
		Fields: c.paramErrs,
	}
}

// GetQueryFunc reads an optional query parameter converted to kind. It
// returns a pointer to the value, or nil when the parameter is absent.
func (c *Context) GetQueryFunc(kind reflect.Kind, key string) interface{} {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil
	}

	switch kind {
	case reflect.Int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.queryErrs = append(c.queryErrs, FieldError{Field: key, Error: "must be an integer"})
			return nil
		}
		return &v
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.queryErrs = append(c.queryErrs, FieldError{Field: key, Error: "must be a boolean"})
			return nil
		}
		return &v
	case reflect.String:
		return &raw
	default:
		c.queryErrs = append(c.queryErrs, FieldError{Field: key, Error: fmt.Sprintf("unsupported kind %s", kind)})
		return nil
	}
}

// ValidQuery reports query conversion errors collected by GetQueryFunc.
func (c *Context) ValidQuery() error {
	if len(c.queryErrs) == 0 {
		return nil
	}

	return &Error{
		Err:    errors.New("invalid query parameter"),
		Status: http.StatusBadRequest,
		Fields: c.queryErrs,
	}
}
