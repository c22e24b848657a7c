package registration

import "context"

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (RegistrationResponse, error)
	Get(ctx context.Context, empCode string) (RegistrationResponse, error)
	List(ctx context.Context) ([]RegistrationResponse, error)
	Update(ctx context.Context, empCode string, req UpdateRegistrationRequest) (RegistrationResponse, error)
	Delete(ctx context.Context, empCode string) error
	Health(ctx context.Context) error
}
