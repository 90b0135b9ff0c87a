package services

import (
	"context"
	"errors"
	"fmt"

	"mobicomm_store/internal/checkout"
)

// User-facing gate failures. Handlers map these to inline messages; any
// other error means the backend could not be reached.
var (
	ErrInvalidMobile = errors.New("please enter a valid mobile number")
	ErrNotSubscriber = errors.New("enter a valid MobiComm number")
)

// IdentityService is the gate in front of the purchase flow: no screen
// past the home page runs without a validated subscriber number.
type IdentityService struct {
	store   checkout.Store
	backend *BackendClient
}

func NewIdentityService(store checkout.Store, backend *BackendClient) *IdentityService {
	return &IdentityService{store: store, backend: backend}
}

// ValidateAndBind confirms the number belongs to a subscriber and binds
// it to the session. The format check runs first so malformed input
// never costs a round-trip. On any failure the session is untouched and
// the caller stays on the same screen; retries are user-initiated.
func (s *IdentityService) ValidateAndBind(ctx context.Context, sid, mobile string) error {
	if !checkout.ValidMobileNumber(mobile) {
		return ErrInvalidMobile
	}

	token, err := s.backend.ValidateMobile(ctx, mobile)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return ErrNotSubscriber
		}
		return fmt.Errorf("validate mobile: %w", err)
	}
	if token == "" {
		// OK status without a token still means unrecognized
		return ErrNotSubscriber
	}

	return checkout.SaveIdentity(ctx, s.store, sid, checkout.Identity{
		MobileNumber: mobile,
		Token:        token,
	})
}

// ChangeNumber rebinds the session to a different number. Same
// validation path as the initial gate.
func (s *IdentityService) ChangeNumber(ctx context.Context, sid, mobile string) error {
	return s.ValidateAndBind(ctx, sid, mobile)
}
