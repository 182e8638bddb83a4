package validation

import (
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"

	"tapdetail-backend/internal/schedule"
)

type Validator struct {
	v *validator.Validate
}

func stringField(fl validator.FieldLevel) (string, bool) {
	if fl.Field().Kind() != reflect.String {
		return "", false
	}
	return fl.Field().String(), true
}

func New() *Validator {
	v := validator.New()

	v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		value, ok := stringField(fl)
		if !ok {
			return false
		}
		_, err := schedule.ParseDate(value)
		return err == nil
	})

	v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		value, ok := stringField(fl)
		if !ok {
			return false
		}
		_, err := schedule.ParseClock(value)
		return err == nil
	})

	// closing accepts 24:00 for business hours that run until midnight
	v.RegisterValidation("closing", func(fl validator.FieldLevel) bool {
		value, ok := stringField(fl)
		if !ok {
			return false
		}
		_, err := schedule.ParseClosingClock(value)
		return err == nil
	})

	v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		value, ok := stringField(fl)
		if !ok {
			return false
		}
		_, err := schedule.ParseWeekday(value)
		return err == nil
	})

	v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		value, ok := stringField(fl)
		if !ok {
			return false
		}
		_, err := schedule.ParseStatus(value)
		return err == nil
	})

	v.RegisterValidation("durationunit", func(fl validator.FieldLevel) bool {
		value, ok := stringField(fl)
		if !ok {
			return false
		}
		return value == "minutes" || value == "hours"
	})

	phoneRegex := regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		value, ok := stringField(fl)
		if !ok {
			return false
		}
		return phoneRegex.MatchString(value)
	})

	v.RegisterValidation("minutes15", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Int && fl.Field().Kind() != reflect.Int32 && fl.Field().Kind() != reflect.Int64 {
			return false
		}
		val := fl.Field().Int()
		return val > 0 && val%schedule.StepMinutes == 0
	})

	return &Validator{v: v}
}

func (v *Validator) Struct(s interface{}) error {
	return v.v.Struct(s)
}

func (v *Validator) ValidationErrors(err error) validator.ValidationErrors {
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		return ve
	}
	return nil
}
