package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/polyclinic/appointment-core/internal/booking"
)

// Единый формат ошибки API: {"error":{"kind":"...","message":"..."}}.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeError(c *gin.Context, log *zap.Logger, err error) {
	if ve, ok := booking.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: errorBody{
			Kind:    "validation_error",
			Message: ve.Message,
			Rule:    ve.Rule,
		}})
		return
	}

	switch {
	case errors.Is(err, booking.ErrSlotConflict):
		c.JSON(http.StatusConflict, errorEnvelope{Error: errorBody{
			Kind:    "slot_conflict",
			Message: "слот уже занят",
		}})
	case errors.Is(err, booking.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorEnvelope{Error: errorBody{
			Kind:    "invalid_transition",
			Message: "запись не в статусе scheduled",
		}})
	case errors.Is(err, booking.ErrAppointmentNotFound),
		errors.Is(err, booking.ErrDoctorNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, errorEnvelope{Error: errorBody{
			Kind:    "not_found",
			Message: "объект не найден",
		}})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorEnvelope{Error: errorBody{
			Kind:    "internal",
			Message: "внутренняя ошибка",
		}})
	}
}

func writeBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorEnvelope{Error: errorBody{
		Kind:    "validation_error",
		Message: message,
	}})
}
