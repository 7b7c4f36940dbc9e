package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/medicore/internal/authorization"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

type ListPatientRequest struct {
	Limit  int
	Search string
	Type   string
	Ward   string
}

type ListPatientFilter struct {
	Search string
	Type   string
	Ward   string
	Limit  int
}

type ListPatientResponse struct {
	Patients []Patient `json:"patients"`
}

type Service interface {
	List(ctx context.Context, actor authorization.Actor, req ListPatientRequest) (ListPatientResponse, error)
	GetByID(ctx context.Context, id snowflake.ID) (Patient, error)
	Lookup(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]Patient, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("patient_not_found")
)
