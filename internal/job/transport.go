package job

import (
	"strings"

	"github.com/ahmethakanbesel/psx-data/internal/apperror"
)

type GetJobRequest struct {
	ID int64
}

func (r GetJobRequest) Validate() *apperror.AppError {
	if r.ID <= 0 {
		return apperror.New(apperror.BadRequest, "invalid job id")
	}
	return nil
}

type ListJobsRequest struct {
	Symbol string
}

func (r ListJobsRequest) Validate() *apperror.AppError {
	if strings.ContainsAny(r.Symbol, " \t\n") {
		return apperror.New(apperror.BadRequest, "symbol must not contain whitespace")
	}
	return nil
}
