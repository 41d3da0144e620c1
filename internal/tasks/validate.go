package tasks

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/models"
)

var statusValues = func() []any {
	out := make([]any, len(models.Statuses))
	for i, s := range models.Statuses {
		out[i] = s
	}
	return out
}()

// scale accepts nil or an integer in [1, 5].
var scale = validation.By(func(v any) error {
	p, _ := v.(*int)
	if p == nil {
		return nil
	}
	if *p < 1 || *p > 5 {
		return errors.New("must be between 1 and 5")
	}
	return nil
})

// hours accepts nil or a non-negative number.
var hours = validation.By(func(v any) error {
	p, _ := v.(*float64)
	if p == nil {
		return nil
	}
	if *p < 0 {
		return errors.New("must not be negative")
	}
	return nil
})

func validateStatus(s models.Status) error {
	if err := validation.Validate(s, validation.Required, validation.In(statusValues...)); err != nil {
		return apperr.Validation("status: %v", err)
	}
	return nil
}

func validateInput(in *models.TaskInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Status, validation.Required, validation.In(statusValues...)),
		validation.Field(&in.Priority, scale),
		validation.Field(&in.GoalRelationship, scale),
		validation.Field(&in.EffortEstimate, hours),
		validation.Field(&in.ActualEffort, hours),
	)
	return asValidation(err)
}

func validatePatch(p *models.TaskPatch) error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.Status, validation.By(func(v any) error {
			s, _ := v.(*models.Status)
			if s == nil {
				return nil
			}
			return validation.Validate(*s, validation.Required, validation.In(statusValues...))
		})),
		validation.Field(&p.Priority, scale),
		validation.Field(&p.GoalRelationship, scale),
		validation.Field(&p.EffortEstimate, hours),
		validation.Field(&p.ActualEffort, hours),
	)
	return asValidation(err)
}

func asValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return apperr.Validation("%s", verrs.Error())
	}
	return fmt.Errorf("tasks: validate: %w", err)
}
