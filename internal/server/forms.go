package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vector76/forum_server/internal/model"
)

const topTagsLimit = 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// formErrors maps a form field name to the message shown next to it.
type formErrors map[string]string

// fieldOrder fixes which error first() reports.
var fieldOrder = []string{"username", "name", "title", "body", "tags", "parent_id"}

func (e formErrors) first() string {
	for _, f := range fieldOrder {
		if msg, ok := e[f]; ok {
			return f + ": " + msg
		}
	}
	for f, msg := range e {
		return f + ": " + msg
	}
	return ""
}

// addValidation records a model or store validation error against its field.
// It reports whether err was a validation error.
func (e formErrors) addValidation(err error) bool {
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	e[ve.Field] = ve.Message
	return true
}

// check runs struct validation on form and converts failures to messages.
func check(form any) formErrors {
	errs := formErrors{}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["form"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = messageFor(fe)
	}
	return errs
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "number":
		return "Enter a whole number."
	default:
		return "Enter a valid value."
	}
}

type groupForm struct {
	Title string `form:"title" validate:"required,max=200"`
	Name  string `form:"name" validate:"required,max=100"`
}

func (f groupForm) validate() formErrors {
	errs := check(f)
	if _, bad := errs["name"]; !bad {
		errs.addValidation(model.ValidateGroupName(f.Name))
	}
	return errs
}

type topicForm struct {
	Title string `form:"title" validate:"required,max=200"`
	Body  string `form:"body" validate:"required"`
	Tags  string `form:"tags" validate:"max=500"`
}

func (f topicForm) validate() formErrors {
	return check(f)
}

// topicPatch validates the optional fields of an API topic update with the
// same rules as topicForm.
type topicPatch struct {
	Title *string `form:"title" validate:"omitnil,required,max=200"`
	Body  *string `form:"body" validate:"omitnil,required"`
}

func (p topicPatch) validate() formErrors {
	return check(p)
}

type replyForm struct {
	Body     string `form:"body" validate:"required"`
	ParentID string `form:"parent_id" validate:"omitempty,number"`
}

func (f replyForm) validate() formErrors {
	errs := check(f)
	if _, bad := errs["parent_id"]; !bad {
		if _, err := f.parent(); err != nil {
			errs["parent_id"] = "Enter a whole number."
		}
	}
	return errs
}

// parent returns the parsed parent comment id, or nil for a top-level reply.
func (f replyForm) parent() (*int64, error) {
	if f.ParentID == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(f.ParentID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parent_id: %w", err)
	}
	return &id, nil
}

type loginForm struct {
	Username string `form:"username" validate:"required,max=50"`
}

func (f loginForm) validate() formErrors {
	return check(f)
}

// bindForm parses the request body and trims every named field.
func bindForm(r *http.Request) (func(string) string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return func(name string) string {
		return strings.TrimSpace(r.PostForm.Get(name))
	}, nil
}
