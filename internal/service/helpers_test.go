package service

import (
	"errors"

	"inkwell/internal/models"
)

func asAppError(err error, target **models.AppError) bool {
	return errors.As(err, target)
}
