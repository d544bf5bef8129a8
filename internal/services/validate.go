package services

import (
	"errors"
	"reflect"
	"strings"

	"agora/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).IsValid()
	})
	return v
}

// fieldMessages 与前端表单保持一致的提示文案。
// 先按 "<Struct>.<field>.<tag>" 查找，再按 "<field>.<tag>" 查找。
var fieldMessages = map[string]string{
	"title.max":         "Title must be less than 200 characters",
	"content.required":  "Content is required",
	"content.max":       "Content must be less than 10000 characters",
	"category.category": "Invalid category",

	"CommentInput.content.required": "Comment cannot be empty",
	"CommentInput.content.max":      "Comment must be less than 5000 characters",

	"name.required":     "Name is required",
	"name.max":          "Name must be less than 50 characters",
	"email.required":    "Email is required",
	"email.email":       "Invalid email address",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 8 characters",
	"password.max":      "Password must be at most 72 characters",
	"image.url":         "Image must be a valid URL",

	"file_name.required":    "File name is required",
	"content_type.required": "Content type is required",
	"file_key.required":     "File key is required",
	"mime_type.required":    "Mime type is required",
	"file_size.required":    "File size is required",
	"file_size.gt":          "File size must be greater than 0",
	"position.min":          "Position cannot be negative",
}

// validateInput runs struct validation and converts failures into *Error.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Kind: KindValidation, Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out.Fields[field]; seen {
			continue
		}
		msg, ok := fieldMessages[fe.Namespace()+"."+fe.Tag()]
		if !ok {
			msg, ok = fieldMessages[field+"."+fe.Tag()]
		}
		if !ok {
			msg = "Invalid " + strings.ReplaceAll(field, "_", " ")
		}
		out.Fields[field] = msg
		if out.Message == "" {
			out.Message = msg
		}
	}
	return out
}
